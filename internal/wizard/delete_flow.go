package wizard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"raidcall/internal/models"
	"raidcall/internal/notify"
	"raidcall/internal/repository"
	"raidcall/internal/utils"
)

// DeleteFlow removes a raid after an explicit confirmation. The pending raid
// id lives in the per-conversation state, so two admins deleting at once
// cannot see each other's confirmation.
type DeleteFlow struct {
	Raids RaidStore
	Loc   *time.Location
}

const deleteConfirmLabel = "yes, delete"

var raidStatusLabels = map[string]string{
	models.RaidStatusActive:    "active",
	models.RaidStatusFinished:  "finished",
	models.RaidStatusCancelled: "cancelled",
}

// Start lists recent raids and asks for the id to delete
func (f *DeleteFlow) Start(st *State, fromMenu string) (Reply, error) {
	raids, err := f.Raids.Recent(10)
	if err != nil {
		return Reply{}, err
	}
	if len(raids) == 0 {
		*st = State{}
		return Reply{Text: "No raids to delete.", Menu: fromMenu}, nil
	}

	*st = State{Flow: FlowDelete, Step: StepDeleteID, FromMenu: fromMenu}

	var b strings.Builder
	b.WriteString("Recent raids:")
	for _, r := range raids {
		fmt.Fprintf(&b, "\nID %d: %s | %s\n  %s | %s",
			r.ID, r.Name, r.Squad,
			r.StartTime.In(f.Loc).Format(utils.RaidTimeLayout),
			raidStatusLabels[r.Status])
	}
	b.WriteString("\n\nEnter the ID of the raid to delete, or cancel.")
	return Reply{Text: b.String()}, nil
}

// Advance processes one input turn
func (f *DeleteFlow) Advance(st *State, in Input) (Reply, error) {
	switch st.Step {
	case StepDeleteID:
		return f.advanceID(st, in)
	case StepDeleteConfirm:
		return f.advanceConfirm(st, in)
	default:
		return Reply{}, fmt.Errorf("delete flow: unexpected step %q", st.Step)
	}
}

func (f *DeleteFlow) advanceID(st *State, in Input) (Reply, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
	if err != nil {
		return Reply{Text: "Enter a numeric raid ID."}, nil
	}

	raid, err := f.Raids.GetByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			menu := st.FromMenu
			*st = State{}
			return Reply{Text: "Raid not found.", Menu: menu}, nil
		}
		return Reply{}, err
	}

	st.PendingDeleteID = raid.ID
	st.Step = StepDeleteConfirm
	return Reply{
		Text: fmt.Sprintf("Delete raid %q and all its RSVPs, reminders and pin data?", raid.Name),
		Buttons: [][]notify.Button{
			{{Text: "Yes, delete", Data: "delete_confirm"}, {Text: "Cancel", Data: "cancel"}},
		},
	}, nil
}

func (f *DeleteFlow) advanceConfirm(st *State, in Input) (Reply, error) {
	switch strings.ToLower(strings.TrimSpace(in.Text)) {
	case deleteConfirmLabel, "delete_confirm":
		raid, err := f.Raids.GetByID(st.PendingDeleteID)
		if err != nil {
			if repository.IsNotFound(err) {
				menu := st.FromMenu
				*st = State{}
				return Reply{Text: "Raid not found.", Menu: menu}, nil
			}
			return Reply{}, err
		}
		if err := f.Raids.Delete(raid.ID); err != nil {
			return Reply{}, err
		}
		menu := st.FromMenu
		*st = State{}
		return Reply{Text: fmt.Sprintf("Raid %q deleted.", raid.Name), Menu: menu}, nil

	default:
		return Reply{Text: "Use the buttons: Yes, delete or Cancel."}, nil
	}
}
