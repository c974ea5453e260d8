package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"raidcall/internal/models"
	"raidcall/internal/repository"
	"raidcall/internal/service"
	"raidcall/internal/utils"
	"raidcall/internal/wizard"
)

const journalLimit = 10

func (r *Router) handleJoin(userID int64, rawID string) (wizard.Reply, error) {
	raidID, err := parseID(rawID)
	if err != nil {
		return wizard.Reply{}, fmt.Errorf("bad raid id in join callback: %w", err)
	}
	raid, err := r.raids.Join(userID, raidID)
	if err != nil {
		if reply, ok := raidGoneReply(err); ok {
			return reply, nil
		}
		return wizard.Reply{}, err
	}
	return wizard.Reply{Text: fmt.Sprintf("You're in for %q at %s. See you there!",
		raid.Name, r.formatStart(raid.StartTime))}, nil
}

func (r *Router) handleLeave(userID int64, rawID string) (wizard.Reply, error) {
	raidID, err := parseID(rawID)
	if err != nil {
		return wizard.Reply{}, fmt.Errorf("bad raid id in leave callback: %w", err)
	}
	raid, err := r.raids.Decline(userID, raidID)
	if err != nil {
		if reply, ok := raidGoneReply(err); ok {
			return reply, nil
		}
		return wizard.Reply{}, err
	}
	return wizard.Reply{Text: fmt.Sprintf("Noted, you're skipping %q.", raid.Name)}, nil
}

func (r *Router) handleRemind(userID int64, rawID string) (wizard.Reply, error) {
	raidID, err := parseID(rawID)
	if err != nil {
		return wizard.Reply{}, fmt.Errorf("bad raid id in remind callback: %w", err)
	}
	created, raid, err := r.raids.SetReminder(userID, raidID)
	if err != nil {
		if reply, ok := raidGoneReply(err); ok {
			return reply, nil
		}
		return wizard.Reply{}, err
	}
	if !created {
		return wizard.Reply{Text: "You already have a reminder for this raid."}, nil
	}
	return wizard.Reply{Text: fmt.Sprintf("Reminder set. I'll ping you an hour before %q.", raid.Name)}, nil
}

func (r *Router) handleUpcoming(userID int64) (wizard.Reply, error) {
	upcoming, err := r.raids.Upcoming(userID, time.Now().In(r.loc))
	if err != nil {
		if repository.IsNotFound(err) {
			return wizard.Reply{Text: "You're not registered yet.", Menu: MenuMain}, nil
		}
		return wizard.Reply{}, err
	}
	if len(upcoming) == 0 {
		return wizard.Reply{Text: "No raids scheduled right now.", Menu: r.menuFor(userID)}, nil
	}

	var b strings.Builder
	b.WriteString("Upcoming raids:\n")
	for _, entry := range upcoming {
		fmt.Fprintf(&b, "\n#%d %s — %s", entry.Raid.ID, entry.Raid.Name, r.formatStart(entry.Raid.StartTime))
		if entry.Pin != nil {
			fmt.Fprintf(&b, "\n   %s, %d km", entry.Pin.Title, entry.Pin.Km)
		}
		switch entry.RSVP {
		case models.ParticipationSignedUp:
			b.WriteString("\n   You're in.")
		case models.ParticipationDeclined:
			b.WriteString("\n   You declined.")
		}
	}
	return wizard.Reply{Text: b.String(), Menu: r.menuFor(userID)}, nil
}

func (r *Router) handleJournal() (wizard.Reply, error) {
	batches, err := r.pins.Journal(journalLimit)
	if err != nil {
		return wizard.Reply{}, err
	}
	if len(batches) == 0 {
		return wizard.Reply{Text: "No pins sent yet.", Menu: MenuAdmin}, nil
	}

	var b strings.Builder
	b.WriteString("Recent pin batches:\n")
	for _, batch := range batches {
		sender := batch.AdminName
		if sender == "" {
			sender = fmt.Sprintf("admin %d", batch.AdminID)
		}
		fmt.Fprintf(&b, "\n%s by %s to %d players\n%s",
			batch.SentAt.In(r.loc).Format(utils.RaidTimeDisplayLayout),
			sender, batch.Recipients, firstLine(batch.PinText))
	}
	return wizard.Reply{Text: b.String(), Menu: MenuAdmin}, nil
}

func (r *Router) handleReport(arg string) (wizard.Reply, error) {
	raidID, err := parseID(arg)
	if err != nil {
		return wizard.Reply{Text: "Usage: /report <raid id>", Menu: MenuAdmin}, nil
	}
	report, err := r.raids.Participants(raidID)
	if err != nil {
		if repository.IsNotFound(err) {
			return wizard.Reply{Text: "Raid not found.", Menu: MenuAdmin}, nil
		}
		return wizard.Reply{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Raid %q — %s\n", report.Raid.Name, r.formatStart(report.Raid.StartTime))
	writeNames(&b, "Signed up", report.SignedUp)
	writeNames(&b, "Attended", report.Attended)
	writeNames(&b, "Declined", report.Declined)
	writeNames(&b, "No response", report.Silent)
	return wizard.Reply{Text: b.String(), Menu: MenuAdmin}, nil
}

func (r *Router) handleActivity() (wizard.Reply, error) {
	counts, err := r.raids.WeeklyActivity(time.Now().In(r.loc))
	if err != nil {
		return wizard.Reply{}, err
	}
	if len(counts) == 0 {
		return wizard.Reply{Text: "No raid activity this week.", Menu: MenuAdmin}, nil
	}

	var b strings.Builder
	b.WriteString("Raid activity, last 7 days:\n")
	for i, c := range counts {
		fmt.Fprintf(&b, "\n%d. %s — %d", i+1, c.Nickname, c.Count)
	}
	return wizard.Reply{Text: b.String(), Menu: MenuAdmin}, nil
}

func (r *Router) formatStart(t time.Time) string {
	return t.In(r.loc).Format(utils.RaidTimeDisplayLayout)
}

func writeNames(b *strings.Builder, label string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d): %s", label, len(names), strings.Join(names, ", "))
}

// raidGoneReply maps deleted and closed raids onto a user-facing message
func raidGoneReply(err error) (wizard.Reply, bool) {
	switch {
	case repository.IsNotFound(err):
		return wizard.Reply{Text: "This raid no longer exists."}, true
	case errors.Is(err, service.ErrRaidClosed):
		return wizard.Reply{Text: "This raid is already closed."}, true
	}
	return wizard.Reply{}, false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
