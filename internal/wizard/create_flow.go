package wizard

import (
	"fmt"
	"strings"
	"time"

	"raidcall/internal/models"
	"raidcall/internal/notify"
	"raidcall/internal/utils"
)

// CreateFlow collects name, target squads and start time for a new raid,
// then persists it and offers an immediate handoff into pin composition.
type CreateFlow struct {
	Squads SquadStore
	Raids  RaidCreator
	Loc    *time.Location
	Now    func() time.Time
}

// Start begins the flow for a conversation
func (f *CreateFlow) Start(st *State, fromMenu string) Reply {
	*st = State{Flow: FlowCreate, Step: StepCreateName, FromMenu: fromMenu}
	return Reply{Text: "Enter the raid name:"}
}

// Advance processes one input turn. The state is mutated in place; when the
// flow leaves FlowCreate the terminal action has already been performed.
func (f *CreateFlow) Advance(st *State, in Input) (Reply, error) {
	switch st.Step {
	case StepCreateName:
		return f.advanceName(st, in)
	case StepCreateSquad:
		return f.advanceSquad(st, in)
	case StepCreateTime:
		return f.advanceTime(st, in)
	default:
		return Reply{}, fmt.Errorf("create flow: unexpected step %q", st.Step)
	}
}

func (f *CreateFlow) advanceName(st *State, in Input) (Reply, error) {
	name := strings.TrimSpace(in.Text)
	if name == "" {
		return Reply{Text: "The raid needs a name. Enter the raid name:"}, nil
	}
	st.Name = name

	squads, err := f.Squads.DistinctSquads()
	if err != nil {
		return Reply{}, err
	}
	if len(squads) == 0 {
		menu := st.FromMenu
		*st = State{}
		return Reply{Text: "No squads registered yet, raid creation aborted.", Menu: menu}, nil
	}

	// Snapshot the choices; the selection step indexes into this list
	st.SquadChoices = squads
	st.Step = StepCreateSquad
	return Reply{Text: squadPrompt("Pick the squads for the raid:", squads)}, nil
}

func (f *CreateFlow) advanceSquad(st *State, in Input) (Reply, error) {
	squad, err := resolveAudienceInput(in.Text, st.SquadChoices)
	if err != nil {
		return Reply{Text: "Invalid selection. Enter squad numbers separated by commas (e.g. 1,3), 0 for all squads or * for everyone."}, nil
	}
	st.Squad = squad
	st.Step = StepCreateTime

	example := f.Now().In(f.Loc).Add(2 * time.Hour).Format(utils.RaidTimeLayout)
	return Reply{Text: fmt.Sprintf("Enter the start time (e.g. %s):", example)}, nil
}

func (f *CreateFlow) advanceTime(st *State, in Input) (Reply, error) {
	start, err := utils.ParseRaidStart(strings.TrimSpace(in.Text), f.Now().In(f.Loc), f.Loc)
	if err != nil {
		return Reply{Text: fmt.Sprintf("Invalid time format, expected something like 25.06 23:00.\nError: %v", err)}, nil
	}

	raid, err := f.Raids.Create(st.Name, st.Squad, start, nil)
	if err != nil {
		return Reply{}, err
	}

	// Flow complete; keep the raid id and origin menu around so the pin
	// flow can pick them up without re-asking.
	*st = State{FromMenu: st.FromMenu, RaidID: raid.ID}

	return Reply{
		Text: fmt.Sprintf("Raid created.\nStarts: %s\nIssue the raid pin now?", start.Format(utils.RaidTimeDisplayLayout)),
		Buttons: [][]notify.Button{
			{{Text: "Issue raid pin", Data: "pin_start"}},
			{{Text: "Cancel", Data: "cancel"}},
		},
	}, nil
}

// squadPrompt renders a numbered squad list plus the sentinel options
func squadPrompt(header string, squads []string) string {
	var b strings.Builder
	b.WriteString(header)
	for i, s := range squads {
		fmt.Fprintf(&b, "\n%d. %s", i+1, s)
	}
	b.WriteString("\n\nEnter numbers separated by commas (e.g. 1,3)")
	b.WriteString("\n0 - all squads\n* - all registered users")
	return b.String()
}

// resolveAudienceInput turns raw multi-select input into an audience
// descriptor: a sentinel or a comma-joined squad list.
func resolveAudienceInput(raw string, choices []string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "*":
		return models.AudienceAllUsers, nil
	case "0":
		return models.AudienceAllSquads, nil
	}
	selected, err := utils.ParseSelection(raw, choices)
	if err != nil {
		return "", err
	}
	return strings.Join(selected, ", "), nil
}
