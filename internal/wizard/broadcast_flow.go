package wizard

import (
	"context"
	"fmt"
	"strings"
)

// BroadcastSender performs the terminal action of the broadcast flow:
// resolve the audience descriptor against current squad membership and
// deliver the content, returning the number of successful sends.
type BroadcastSender interface {
	SendBroadcast(ctx context.Context, content BroadcastContent, audience string) (int, error)
}

// BroadcastFlow captures a text or photo payload and a squad selection,
// then delivers to every resolved recipient.
type BroadcastFlow struct {
	Squads SquadStore
	Sender BroadcastSender
}

// Start begins the flow for a conversation
func (f *BroadcastFlow) Start(st *State, fromMenu string) Reply {
	*st = State{Flow: FlowBroadcast, Step: StepBroadcastContent, FromMenu: fromMenu}
	return Reply{Text: "Send the broadcast text, or a photo with a caption:"}
}

// Advance processes one input turn
func (f *BroadcastFlow) Advance(ctx context.Context, st *State, in Input) (Reply, error) {
	switch st.Step {
	case StepBroadcastContent:
		return f.advanceContent(st, in)
	case StepBroadcastTarget:
		return f.advanceTarget(ctx, st, in)
	default:
		return Reply{}, fmt.Errorf("broadcast flow: unexpected step %q", st.Step)
	}
}

func (f *BroadcastFlow) advanceContent(st *State, in Input) (Reply, error) {
	switch {
	case in.PhotoRef != "":
		st.Content = &BroadcastContent{PhotoRef: in.PhotoRef, Caption: in.Caption}
	case strings.TrimSpace(in.Text) != "":
		st.Content = &BroadcastContent{Text: strings.TrimSpace(in.Text)}
	default:
		return Reply{Text: "Only text or a photo with a caption is supported."}, nil
	}

	squads, err := f.Squads.DistinctSquads()
	if err != nil {
		return Reply{}, err
	}

	st.SquadChoices = squads
	st.Step = StepBroadcastTarget
	return Reply{Text: squadPrompt("Who should receive the broadcast:", squads)}, nil
}

func (f *BroadcastFlow) advanceTarget(ctx context.Context, st *State, in Input) (Reply, error) {
	audience, err := resolveAudienceInput(in.Text, st.SquadChoices)
	if err != nil {
		return Reply{Text: "Invalid selection. Enter squad numbers separated by commas (e.g. 1,3), 0 for all squads or * for everyone."}, nil
	}

	count, err := f.Sender.SendBroadcast(ctx, *st.Content, audience)
	if err != nil {
		return Reply{}, err
	}

	menu := st.FromMenu
	*st = State{}
	return Reply{Text: fmt.Sprintf("Broadcast delivered to %d players.", count), Menu: menu}, nil
}
