package wizard

import (
	"strings"
	"sync"
	"time"

	"raidcall/internal/models"
	"raidcall/internal/notify"
)

// Flow identifies which multi-step input flow a conversation is in
type Flow string

const (
	FlowNone      Flow = ""
	FlowCreate    Flow = "create"
	FlowPin       Flow = "pin"
	FlowBroadcast Flow = "broadcast"
	FlowDelete    Flow = "delete"
)

// Step identifies the pending prompt within a flow
type Step string

const (
	StepCreateName  Step = "create_name"
	StepCreateSquad Step = "create_squad"
	StepCreateTime  Step = "create_time"

	StepPinSelectRaid Step = "pin_select_raid"
	StepPinKm         Step = "pin_km"
	StepPinTitle      Step = "pin_title"
	StepPinBody       Step = "pin_body"
	StepPinConfirm    Step = "pin_confirm"

	StepBroadcastContent Step = "broadcast_content"
	StepBroadcastTarget  Step = "broadcast_target"

	StepDeleteID      Step = "delete_id"
	StepDeleteConfirm Step = "delete_confirm"
)

// BroadcastContent is the captured payload of a broadcast: either plain
// text, or a photo reference with a caption.
type BroadcastContent struct {
	Text     string
	PhotoRef string
	Caption  string
}

// State is the accumulated per-conversation input of one flow. It is keyed
// by (user, chat) and never visible across conversations.
type State struct {
	Flow     Flow
	Step     Step
	FromMenu string

	// Raid creation
	Name         string
	SquadChoices []string
	Squad        string

	// Pin composition. RaidID may be carried over from raid creation.
	RaidID      int64
	RaidChoices []int64
	Km          int
	Title       string
	Body        string

	// Broadcast
	Content *BroadcastContent

	// Deletion confirmation, held here instead of any process-global map
	PendingDeleteID int64
}

// Empty reports whether the state carries nothing worth keeping
func (s *State) Empty() bool {
	return s.Flow == FlowNone && s.RaidID == 0 && s.FromMenu == ""
}

// Input is one turn of user input
type Input struct {
	UserID   int64
	Text     string
	PhotoRef string
	Caption  string
}

// Reply is what the flow asks the boundary to show next
type Reply struct {
	Text    string
	Buttons [][]notify.Button
	// Menu routes the user to a reply-keyboard menu; empty leaves the
	// current one in place.
	Menu string
}

// IsCancel reports whether the input is the designated cancellation token
func IsCancel(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "cancel" || t == "/cancel"
}

// Key identifies one conversation's state
type Key struct {
	UserID int64
	ChatID int64
}

// Store holds in-flight wizard state per conversation
type Store struct {
	mu     sync.Mutex
	states map[Key]State
}

func NewStore() *Store {
	return &Store{states: make(map[Key]State)}
}

// Get returns a copy of the conversation's state
func (s *Store) Get(key Key) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[key]
	return st, ok
}

// Set replaces the conversation's state
func (s *Store) Set(key Key, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = st
}

// Clear removes the conversation's state. Clearing an absent key is a no-op.
func (s *Store) Clear(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
}

// Narrow store interfaces the flows advance against. Implemented by the
// repository and service layers; faked in tests.

type SquadStore interface {
	DistinctSquads() ([]string, error)
}

type RaidStore interface {
	GetByID(id int64) (*models.RaidEvent, error)
	ActiveOrdered() ([]models.RaidEvent, error)
	Recent(limit int) ([]models.RaidEvent, error)
	Delete(id int64) error
}

type RaidCreator interface {
	Create(name, squad string, startTime time.Time, locationID *int64) (*models.RaidEvent, error)
}
