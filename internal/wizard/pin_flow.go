package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"raidcall/internal/notify"
	"raidcall/internal/repository"
	"raidcall/internal/utils"
)

// PinSender performs the terminal action of the pin flow: persist the pin
// content, resolve the raid audience and deliver to every recipient.
// It returns the number of successful deliveries.
type PinSender interface {
	SendPin(ctx context.Context, adminID, raidID int64, km int, title, description string) (int, error)
}

// PinFlow composes a raid announcement: raid selection (skipped when a raid
// id is already carried in state), distance, title, body, then a preview
// with confirm, edit and cancel exits.
type PinFlow struct {
	Raids  RaidStore
	Sender PinSender
	Loc    *time.Location
}

const (
	pinConfirmLabel = "send pin"
	pinEditLabel    = "edit"
)

// Start begins the flow. A raid id already in state (left by raid creation)
// skips the selection step.
func (f *PinFlow) Start(st *State, fromMenu string) (Reply, error) {
	carried := st.RaidID
	*st = State{Flow: FlowPin, FromMenu: fromMenu, RaidID: carried}

	if carried != 0 {
		if _, err := f.Raids.GetByID(carried); err == nil {
			st.Step = StepPinKm
			return Reply{Text: "Enter the distance to the rendezvous point in km (e.g. 12):"}, nil
		}
		// Stale carry-over, fall back to the list
		st.RaidID = 0
	}

	raids, err := f.Raids.ActiveOrdered()
	if err != nil {
		return Reply{}, err
	}
	if len(raids) == 0 {
		*st = State{}
		return Reply{Text: "No active raids to pin.", Menu: fromMenu}, nil
	}

	st.Step = StepPinSelectRaid
	var b strings.Builder
	b.WriteString("Active raids:")
	for i, r := range raids {
		st.RaidChoices = append(st.RaidChoices, r.ID)
		fmt.Fprintf(&b, "\n%d. %s (ID %d) - %s", i+1, r.Name, r.ID, r.StartTime.In(f.Loc).Format(utils.RaidTimeLayout))
	}
	b.WriteString("\n\nEnter the raid number from the list (e.g. 1).")
	return Reply{Text: b.String()}, nil
}

// Advance processes one input turn
func (f *PinFlow) Advance(ctx context.Context, st *State, in Input) (Reply, error) {
	switch st.Step {
	case StepPinSelectRaid:
		return f.advanceSelectRaid(st, in)
	case StepPinKm:
		return f.advanceKm(st, in)
	case StepPinTitle:
		st.Title = strings.TrimSpace(in.Text)
		st.Step = StepPinBody
		return Reply{Text: "Enter the announcement body:"}, nil
	case StepPinBody:
		return f.advanceBody(st, in)
	case StepPinConfirm:
		return f.advanceConfirm(ctx, st, in)
	default:
		return Reply{}, fmt.Errorf("pin flow: unexpected step %q", st.Step)
	}
}

func (f *PinFlow) advanceSelectRaid(st *State, in Input) (Reply, error) {
	text := strings.TrimSpace(in.Text)
	idx, err := strconv.Atoi(text)
	if err != nil {
		return Reply{Text: "Enter the raid number from the list (a single number)."}, nil
	}
	if idx < 1 || idx > len(st.RaidChoices) {
		return Reply{Text: "No raid with that number, pick one from the list."}, nil
	}

	st.RaidID = st.RaidChoices[idx-1]
	st.Step = StepPinKm
	return Reply{Text: "Enter the distance to the rendezvous point in km (e.g. 12):"}, nil
}

func (f *PinFlow) advanceKm(st *State, in Input) (Reply, error) {
	km, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil || km < 0 || km > 100 {
		return Reply{Text: "Enter a number between 0 and 100 (e.g. 12)."}, nil
	}
	st.Km = km
	st.Step = StepPinTitle
	return Reply{Text: "Enter the announcement title:"}, nil
}

func (f *PinFlow) advanceBody(st *State, in Input) (Reply, error) {
	st.Body = strings.TrimSpace(in.Text)

	raid, err := f.Raids.GetByID(st.RaidID)
	if err != nil {
		if repository.IsNotFound(err) {
			menu := st.FromMenu
			*st = State{}
			return Reply{Text: "Raid not found.", Menu: menu}, nil
		}
		return Reply{}, err
	}

	preview := fmt.Sprintf("%s\n%d km\nRaid: %s\nTime: %s\n\n%s",
		st.Title, st.Km, raid.Name,
		raid.StartTime.In(f.Loc).Format(utils.RaidTimeDisplayLayout),
		st.Body)

	st.Step = StepPinConfirm
	return Reply{
		Text: "Pin preview:\n\n" + preview,
		Buttons: [][]notify.Button{
			{{Text: "Send pin", Data: "pin_confirm"}},
			{{Text: "Edit", Data: "pin_edit"}, {Text: "Cancel", Data: "cancel"}},
		},
	}, nil
}

func (f *PinFlow) advanceConfirm(ctx context.Context, st *State, in Input) (Reply, error) {
	switch strings.ToLower(strings.TrimSpace(in.Text)) {
	case pinEditLabel, "pin_edit":
		// Restart the content steps, keeping the selected raid
		st.Step = StepPinKm
		return Reply{Text: "Starting over. Enter the distance:"}, nil

	case pinConfirmLabel, "pin_confirm":
		count, err := f.Sender.SendPin(ctx, in.UserID, st.RaidID, st.Km, st.Title, st.Body)
		if err != nil {
			if repository.IsNotFound(err) {
				menu := st.FromMenu
				*st = State{}
				return Reply{Text: "Raid not found.", Menu: menu}, nil
			}
			return Reply{}, err
		}
		menu := st.FromMenu
		*st = State{}
		return Reply{Text: fmt.Sprintf("Pin delivered to %d players.", count), Menu: menu}, nil

	default:
		return Reply{Text: "Use the buttons: Send pin, Edit or Cancel."}, nil
	}
}
