package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"raidcall/internal/service"
	"raidcall/internal/wizard"
)

// Menu tags attached to replies so the transport can render the right
// reply keyboard
const (
	MenuMain  = "main"
	MenuAdmin = "raid_admin"
)

// Update is one incoming event from the bot gateway
type Update struct {
	UserID   int64 // sender's game id
	ChatID   int64
	Text     string
	PhotoRef string
	Caption  string
}

// Router dispatches gateway updates to menu commands, callbacks and the
// active wizard flow of the conversation
type Router struct {
	store      *wizard.Store
	createFlow *wizard.CreateFlow
	pinFlow    *wizard.PinFlow
	broadcast  *wizard.BroadcastFlow
	deleteFlow *wizard.DeleteFlow
	raids      *service.RaidService
	pins       *service.PinService
	admins     map[int64]bool
	loc        *time.Location
}

// NewRouter creates a router. adminIDs are the game ids allowed to run the
// admin wizards and reports.
func NewRouter(
	store *wizard.Store,
	createFlow *wizard.CreateFlow,
	pinFlow *wizard.PinFlow,
	broadcast *wizard.BroadcastFlow,
	deleteFlow *wizard.DeleteFlow,
	raids *service.RaidService,
	pins *service.PinService,
	adminIDs []int64,
	loc *time.Location,
) *Router {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Router{
		store:      store,
		createFlow: createFlow,
		pinFlow:    pinFlow,
		broadcast:  broadcast,
		deleteFlow: deleteFlow,
		raids:      raids,
		pins:       pins,
		admins:     admins,
		loc:        loc,
	}
}

// HandleMessage processes one text or photo message
func (r *Router) HandleMessage(ctx context.Context, up Update) (wizard.Reply, error) {
	key := wizard.Key{UserID: up.UserID, ChatID: up.ChatID}

	if st, ok := r.store.Get(key); ok {
		return r.advanceFlow(ctx, key, st, up)
	}

	if wizard.IsCancel(up.Text) {
		// Nothing to cancel
		return wizard.Reply{Text: "Nothing in progress.", Menu: MenuMain}, nil
	}

	return r.dispatchCommand(ctx, key, up)
}

// HandleCallback processes one inline-button press. Flow-owned callbacks
// (confirm/edit buttons) are fed to the active flow as if typed.
func (r *Router) HandleCallback(ctx context.Context, up Update) (wizard.Reply, error) {
	data := strings.TrimSpace(up.Text)

	switch {
	case strings.HasPrefix(data, "raid_join_"):
		return r.handleJoin(up.UserID, strings.TrimPrefix(data, "raid_join_"))
	case strings.HasPrefix(data, "raid_leave_"):
		return r.handleLeave(up.UserID, strings.TrimPrefix(data, "raid_leave_"))
	case strings.HasPrefix(data, "remind_"):
		return r.handleRemind(up.UserID, strings.TrimPrefix(data, "remind_"))
	}

	// Everything else belongs to whichever wizard is running
	key := wizard.Key{UserID: up.UserID, ChatID: up.ChatID}
	if st, ok := r.store.Get(key); ok {
		return r.advanceFlow(ctx, key, st, up)
	}
	if data == "pin_start" {
		return r.startPinFlowAt(key, wizard.State{})
	}
	log.Printf("Dropping stray callback %q from user %d", data, up.UserID)
	return wizard.Reply{}, nil
}

func (r *Router) advanceFlow(ctx context.Context, key wizard.Key, st wizard.State, up Update) (wizard.Reply, error) {
	if wizard.IsCancel(up.Text) {
		menu := st.FromMenu
		r.store.Clear(key)
		if menu == "" {
			menu = MenuMain
		}
		return wizard.Reply{Text: "Cancelled.", Menu: menu}, nil
	}

	in := wizard.Input{UserID: up.UserID, Text: up.Text, PhotoRef: up.PhotoRef, Caption: up.Caption}

	var (
		reply wizard.Reply
		err   error
	)
	switch st.Flow {
	case wizard.FlowCreate:
		reply, err = r.createFlow.Advance(&st, in)
	case wizard.FlowPin:
		reply, err = r.pinFlow.Advance(ctx, &st, in)
	case wizard.FlowBroadcast:
		reply, err = r.broadcast.Advance(ctx, &st, in)
	case wizard.FlowDelete:
		reply, err = r.deleteFlow.Advance(&st, in)
	case wizard.FlowNone:
		// Carry-over from a finished create flow waiting on the pin
		// handoff button. Anything else abandons the handoff.
		if strings.EqualFold(strings.TrimSpace(up.Text), "pin_start") {
			return r.startPinFlowAt(key, st)
		}
		r.store.Clear(key)
		return r.dispatchCommand(ctx, key, up)
	default:
		r.store.Clear(key)
		return wizard.Reply{}, fmt.Errorf("unknown flow %q for user %d", st.Flow, key.UserID)
	}
	if err != nil {
		r.store.Clear(key)
		return wizard.Reply{}, err
	}

	if st.Empty() {
		r.store.Clear(key)
	} else {
		r.store.Set(key, st)
	}
	return reply, nil
}

func (r *Router) dispatchCommand(ctx context.Context, key wizard.Key, up Update) (wizard.Reply, error) {
	cmd, arg := splitCommand(up.Text)

	switch cmd {
	case "/start", "/menu":
		return wizard.Reply{Text: "Welcome to raid control.", Menu: r.menuFor(up.UserID)}, nil

	case "/raids":
		return r.handleUpcoming(up.UserID)

	case "/newraid":
		return r.requireAdmin(up.UserID, func() (wizard.Reply, error) {
			var st wizard.State
			reply := r.createFlow.Start(&st, MenuAdmin)
			r.store.Set(key, st)
			return reply, nil
		})

	case "/pin":
		return r.requireAdmin(up.UserID, func() (wizard.Reply, error) {
			// Reuse a raid id left behind by a just-finished create flow
			st, _ := r.store.Get(key)
			return r.startPinFlowAt(key, st)
		})

	case "/broadcast":
		return r.requireAdmin(up.UserID, func() (wizard.Reply, error) {
			var st wizard.State
			reply := r.broadcast.Start(&st, MenuAdmin)
			r.store.Set(key, st)
			return reply, nil
		})

	case "/delraid":
		return r.requireAdmin(up.UserID, func() (wizard.Reply, error) {
			var st wizard.State
			reply, err := r.deleteFlow.Start(&st, MenuAdmin)
			if err != nil {
				return wizard.Reply{}, err
			}
			if !st.Empty() {
				r.store.Set(key, st)
			}
			return reply, nil
		})

	case "/journal":
		return r.requireAdmin(up.UserID, r.handleJournal)

	case "/report":
		return r.requireAdmin(up.UserID, func() (wizard.Reply, error) {
			return r.handleReport(arg)
		})

	case "/activity":
		return r.requireAdmin(up.UserID, r.handleActivity)
	}

	return wizard.Reply{Text: "Unknown command. Try /raids.", Menu: r.menuFor(up.UserID)}, nil
}

func (r *Router) startPinFlowAt(key wizard.Key, st wizard.State) (wizard.Reply, error) {
	reply, err := r.pinFlow.Start(&st, MenuAdmin)
	if err != nil {
		return wizard.Reply{}, err
	}
	if st.Empty() {
		r.store.Clear(key)
	} else {
		r.store.Set(key, st)
	}
	return reply, nil
}

func (r *Router) requireAdmin(userID int64, fn func() (wizard.Reply, error)) (wizard.Reply, error) {
	if !r.admins[userID] {
		log.Printf("Denied admin command for user %d", userID)
		return wizard.Reply{Text: "This command is for raid admins.", Menu: MenuMain}, nil
	}
	return fn()
}

func (r *Router) menuFor(userID int64) string {
	if r.admins[userID] {
		return MenuAdmin
	}
	return MenuMain
}

func splitCommand(text string) (cmd, arg string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", ""
	}
	return strings.ToLower(fields[0]), strings.Join(fields[1:], " ")
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}
