package wizard

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"raidcall/internal/models"
)

type fakeSquads struct {
	squads []string
}

func (f *fakeSquads) DistinctSquads() ([]string, error) {
	return f.squads, nil
}

type fakeRaids struct {
	raids   map[int64]*models.RaidEvent
	created []*models.RaidEvent
	deleted []int64
	nextID  int64
}

func newFakeRaids() *fakeRaids {
	return &fakeRaids{raids: make(map[int64]*models.RaidEvent), nextID: 1}
}

func (f *fakeRaids) Create(name, squad string, startTime time.Time, locationID *int64) (*models.RaidEvent, error) {
	raid := &models.RaidEvent{
		ID:        f.nextID,
		Name:      name,
		Squad:     squad,
		StartTime: startTime,
		Status:    models.RaidStatusActive,
	}
	f.nextID++
	f.raids[raid.ID] = raid
	f.created = append(f.created, raid)
	return raid, nil
}

func (f *fakeRaids) GetByID(id int64) (*models.RaidEvent, error) {
	raid, ok := f.raids[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return raid, nil
}

func (f *fakeRaids) ActiveOrdered() ([]models.RaidEvent, error) {
	var out []models.RaidEvent
	for id := int64(1); id < f.nextID; id++ {
		if raid, ok := f.raids[id]; ok && raid.Status == models.RaidStatusActive {
			out = append(out, *raid)
		}
	}
	return out, nil
}

func (f *fakeRaids) Recent(limit int) ([]models.RaidEvent, error) {
	raids, _ := f.ActiveOrdered()
	if len(raids) > limit {
		raids = raids[:limit]
	}
	return raids, nil
}

func (f *fakeRaids) Delete(id int64) error {
	delete(f.raids, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakePinSender struct {
	calls []pinCall
	count int
}

type pinCall struct {
	adminID, raidID int64
	km              int
	title, body     string
}

func (f *fakePinSender) SendPin(ctx context.Context, adminID, raidID int64, km int, title, description string) (int, error) {
	f.calls = append(f.calls, pinCall{adminID, raidID, km, title, description})
	return f.count, nil
}

type fakeBroadcastSender struct {
	audience string
	content  BroadcastContent
	count    int
}

func (f *fakeBroadcastSender) SendBroadcast(ctx context.Context, content BroadcastContent, audience string) (int, error) {
	f.content = content
	f.audience = audience
	return f.count, nil
}

func testLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return loc
}

func TestCreateFlow(t *testing.T) {
	loc := testLocation(t)
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, loc)
	raids := newFakeRaids()
	flow := &CreateFlow{
		Squads: &fakeSquads{squads: []string{"Rangers", "Outcasts", "Nomads"}},
		Raids:  raids,
		Loc:    loc,
		Now:    func() time.Time { return now },
	}

	t.Run("full path with explicit squads", func(t *testing.T) {
		var st State
		flow.Start(&st, "raid_admin")
		if st.Step != StepCreateName {
			t.Fatalf("step = %v, want %v", st.Step, StepCreateName)
		}

		reply, err := flow.Advance(&st, Input{Text: "Night Run"})
		if err != nil {
			t.Fatalf("name step error: %v", err)
		}
		if st.Step != StepCreateSquad || len(st.SquadChoices) != 3 {
			t.Fatalf("after name: step=%v choices=%v", st.Step, st.SquadChoices)
		}
		if !strings.Contains(reply.Text, "1. Rangers") {
			t.Errorf("squad prompt %q should list choices", reply.Text)
		}

		if _, err := flow.Advance(&st, Input{Text: "1,3"}); err != nil {
			t.Fatalf("squad step error: %v", err)
		}
		if st.Squad != "Rangers, Nomads" {
			t.Errorf("squad = %q, want Rangers, Nomads", st.Squad)
		}

		reply, err = flow.Advance(&st, Input{Text: "25.06 23:00"})
		if err != nil {
			t.Fatalf("time step error: %v", err)
		}
		if len(raids.created) != 1 {
			t.Fatalf("created %d raids, want 1", len(raids.created))
		}
		raid := raids.created[0]
		want := time.Date(2026, time.June, 25, 23, 0, 0, 0, loc)
		if !raid.StartTime.Equal(want) {
			t.Errorf("start time = %v, want %v", raid.StartTime, want)
		}
		if raid.Status != models.RaidStatusActive {
			t.Errorf("status = %v, want active", raid.Status)
		}

		// Flow is done but the raid id is carried for the pin handoff
		if st.Flow != FlowNone || st.RaidID != raid.ID || st.FromMenu != "raid_admin" {
			t.Errorf("post-create state = %+v, want idle carry-over", st)
		}
		if len(reply.Buttons) == 0 {
			t.Error("completion reply should offer the pin handoff button")
		}
	})

	t.Run("all-users sentinel", func(t *testing.T) {
		var st State
		flow.Start(&st, "raid_admin")
		flow.Advance(&st, Input{Text: "Night Run"})
		flow.Advance(&st, Input{Text: "*"})
		if st.Squad != models.AudienceAllUsers {
			t.Errorf("squad = %q, want %q", st.Squad, models.AudienceAllUsers)
		}
	})

	t.Run("all-squads sentinel", func(t *testing.T) {
		var st State
		flow.Start(&st, "raid_admin")
		flow.Advance(&st, Input{Text: "Night Run"})
		flow.Advance(&st, Input{Text: "0"})
		if st.Squad != models.AudienceAllSquads {
			t.Errorf("squad = %q, want %q", st.Squad, models.AudienceAllSquads)
		}
	})

	t.Run("invalid squad selection re-prompts without advancing", func(t *testing.T) {
		var st State
		flow.Start(&st, "raid_admin")
		flow.Advance(&st, Input{Text: "Night Run"})

		reply, err := flow.Advance(&st, Input{Text: "x,y"})
		if err != nil {
			t.Fatalf("squad step error: %v", err)
		}
		if st.Step != StepCreateSquad {
			t.Errorf("step = %v, state advanced on invalid input", st.Step)
		}
		if !strings.Contains(reply.Text, "Invalid selection") {
			t.Errorf("reply %q should re-prompt", reply.Text)
		}
	})

	t.Run("malformed time re-prompts with the parse error", func(t *testing.T) {
		var st State
		flow.Start(&st, "raid_admin")
		flow.Advance(&st, Input{Text: "Night Run"})
		flow.Advance(&st, Input{Text: "1"})

		before := len(raids.created)
		reply, err := flow.Advance(&st, Input{Text: "tomorrow"})
		if err != nil {
			t.Fatalf("time step error: %v", err)
		}
		if st.Step != StepCreateTime {
			t.Errorf("step = %v, state advanced on malformed time", st.Step)
		}
		if len(raids.created) != before {
			t.Error("raid was created from malformed time input")
		}
		if !strings.Contains(reply.Text, "Error:") {
			t.Errorf("reply %q should append the parse error", reply.Text)
		}
	})

	t.Run("empty name re-prompts", func(t *testing.T) {
		var st State
		flow.Start(&st, "raid_admin")
		if _, err := flow.Advance(&st, Input{Text: "   "}); err != nil {
			t.Fatalf("name step error: %v", err)
		}
		if st.Step != StepCreateName {
			t.Errorf("step = %v, state advanced on empty name", st.Step)
		}
	})
}

func TestPinFlow(t *testing.T) {
	loc := testLocation(t)
	ctx := context.Background()

	newFlow := func(raids *fakeRaids, sender *fakePinSender) *PinFlow {
		return &PinFlow{Raids: raids, Sender: sender, Loc: loc}
	}

	t.Run("carried raid id skips selection", func(t *testing.T) {
		raids := newFakeRaids()
		raid, _ := raids.Create("Night Run", "Rangers", time.Now().Add(time.Hour), nil)
		flow := newFlow(raids, &fakePinSender{})

		st := State{RaidID: raid.ID}
		reply, err := flow.Start(&st, "raid_admin")
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		if st.Step != StepPinKm {
			t.Errorf("step = %v, want %v", st.Step, StepPinKm)
		}
		if !strings.Contains(reply.Text, "distance") {
			t.Errorf("reply %q should ask for the distance", reply.Text)
		}
	})

	t.Run("no active raids aborts", func(t *testing.T) {
		flow := newFlow(newFakeRaids(), &fakePinSender{})
		var st State
		reply, err := flow.Start(&st, "raid_admin")
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		if !st.Empty() {
			t.Errorf("state = %+v, want cleared", st)
		}
		if reply.Menu != "raid_admin" {
			t.Errorf("menu = %q, want origin menu", reply.Menu)
		}
	})

	t.Run("full path with selection, preview and confirm", func(t *testing.T) {
		raids := newFakeRaids()
		raids.Create("Day Run", "Outcasts", time.Date(2026, 6, 20, 12, 0, 0, 0, loc), nil)
		target, _ := raids.Create("Night Run", "Rangers", time.Date(2026, 6, 25, 23, 0, 0, 0, loc), nil)
		sender := &fakePinSender{count: 7}
		flow := newFlow(raids, sender)

		var st State
		if _, err := flow.Start(&st, "raid_admin"); err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		if st.Step != StepPinSelectRaid || len(st.RaidChoices) != 2 {
			t.Fatalf("after start: step=%v choices=%v", st.Step, st.RaidChoices)
		}

		if _, err := flow.Advance(ctx, &st, Input{Text: "2"}); err != nil {
			t.Fatalf("select step error: %v", err)
		}
		if st.RaidID != target.ID {
			t.Fatalf("raid id = %d, want %d", st.RaidID, target.ID)
		}

		flow.Advance(ctx, &st, Input{Text: "12"})
		flow.Advance(ctx, &st, Input{Text: "Rendezvous"})
		reply, err := flow.Advance(ctx, &st, Input{Text: "Bring supplies"})
		if err != nil {
			t.Fatalf("body step error: %v", err)
		}
		if st.Step != StepPinConfirm {
			t.Fatalf("step = %v, want confirm", st.Step)
		}
		if !strings.Contains(reply.Text, "Night Run") || !strings.Contains(reply.Text, "12 km") {
			t.Errorf("preview %q should include the raid name and distance", reply.Text)
		}

		reply, err = flow.Advance(ctx, &st, Input{UserID: 99, Text: "Send pin"})
		if err != nil {
			t.Fatalf("confirm step error: %v", err)
		}
		if len(sender.calls) != 1 {
			t.Fatalf("sender called %d times, want 1", len(sender.calls))
		}
		call := sender.calls[0]
		if call.adminID != 99 || call.raidID != target.ID || call.km != 12 || call.title != "Rendezvous" || call.body != "Bring supplies" {
			t.Errorf("sender call = %+v", call)
		}
		if !strings.Contains(reply.Text, "7 players") {
			t.Errorf("reply %q should report the delivered count", reply.Text)
		}
		if !st.Empty() {
			t.Errorf("state = %+v, want cleared after send", st)
		}
	})

	t.Run("out-of-range distance re-prompts", func(t *testing.T) {
		raids := newFakeRaids()
		raid, _ := raids.Create("Night Run", "Rangers", time.Now().Add(time.Hour), nil)
		flow := newFlow(raids, &fakePinSender{})

		st := State{RaidID: raid.ID}
		flow.Start(&st, "raid_admin")

		for _, input := range []string{"101", "-1", "far"} {
			if _, err := flow.Advance(ctx, &st, Input{Text: input}); err != nil {
				t.Fatalf("km step error on %q: %v", input, err)
			}
			if st.Step != StepPinKm {
				t.Errorf("input %q advanced the flow", input)
			}
		}
	})

	t.Run("edit restarts at the distance step", func(t *testing.T) {
		raids := newFakeRaids()
		raid, _ := raids.Create("Night Run", "Rangers", time.Now().Add(time.Hour), nil)
		sender := &fakePinSender{}
		flow := newFlow(raids, sender)

		st := State{RaidID: raid.ID}
		flow.Start(&st, "raid_admin")
		flow.Advance(ctx, &st, Input{Text: "12"})
		flow.Advance(ctx, &st, Input{Text: "Rendezvous"})
		flow.Advance(ctx, &st, Input{Text: "Bring supplies"})

		if _, err := flow.Advance(ctx, &st, Input{Text: "Edit"}); err != nil {
			t.Fatalf("edit error: %v", err)
		}
		if st.Step != StepPinKm {
			t.Errorf("step = %v, want back at distance", st.Step)
		}
		if len(sender.calls) != 0 {
			t.Error("edit must not send")
		}
	})
}

func TestBroadcastFlow(t *testing.T) {
	ctx := context.Background()
	squads := &fakeSquads{squads: []string{"Rangers", "Outcasts"}}

	t.Run("text broadcast to sentinel audience", func(t *testing.T) {
		sender := &fakeBroadcastSender{count: 4}
		flow := &BroadcastFlow{Squads: squads, Sender: sender}

		var st State
		flow.Start(&st, "raid_admin")
		if _, err := flow.Advance(ctx, &st, Input{Text: "Server maintenance at dawn"}); err != nil {
			t.Fatalf("content step error: %v", err)
		}
		reply, err := flow.Advance(ctx, &st, Input{Text: "*"})
		if err != nil {
			t.Fatalf("target step error: %v", err)
		}
		if sender.audience != models.AudienceAllUsers {
			t.Errorf("audience = %q, want all users sentinel", sender.audience)
		}
		if sender.content.Text != "Server maintenance at dawn" {
			t.Errorf("content = %+v", sender.content)
		}
		if !strings.Contains(reply.Text, "4 players") {
			t.Errorf("reply %q should report the count", reply.Text)
		}
		if !st.Empty() {
			t.Errorf("state = %+v, want cleared", st)
		}
	})

	t.Run("photo broadcast to explicit squads", func(t *testing.T) {
		sender := &fakeBroadcastSender{}
		flow := &BroadcastFlow{Squads: squads, Sender: sender}

		var st State
		flow.Start(&st, "raid_admin")
		if _, err := flow.Advance(ctx, &st, Input{PhotoRef: "file-1", Caption: "the map"}); err != nil {
			t.Fatalf("content step error: %v", err)
		}
		if _, err := flow.Advance(ctx, &st, Input{Text: "2"}); err != nil {
			t.Fatalf("target step error: %v", err)
		}
		if sender.audience != "Outcasts" {
			t.Errorf("audience = %q, want Outcasts", sender.audience)
		}
		if sender.content.PhotoRef != "file-1" || sender.content.Caption != "the map" {
			t.Errorf("content = %+v", sender.content)
		}
	})

	t.Run("unsupported content re-prompts", func(t *testing.T) {
		flow := &BroadcastFlow{Squads: squads, Sender: &fakeBroadcastSender{}}
		var st State
		flow.Start(&st, "raid_admin")
		if _, err := flow.Advance(ctx, &st, Input{}); err != nil {
			t.Fatalf("content step error: %v", err)
		}
		if st.Step != StepBroadcastContent {
			t.Errorf("step = %v, advanced on empty content", st.Step)
		}
	})
}

func TestDeleteFlow(t *testing.T) {
	loc := testLocation(t)

	t.Run("confirmed deletion", func(t *testing.T) {
		raids := newFakeRaids()
		raid, _ := raids.Create("Night Run", "Rangers", time.Now().Add(time.Hour), nil)
		flow := &DeleteFlow{Raids: raids, Loc: loc}

		var st State
		if _, err := flow.Start(&st, "raid_admin"); err != nil {
			t.Fatalf("Start() error: %v", err)
		}

		reply, err := flow.Advance(&st, Input{Text: "1"})
		if err != nil {
			t.Fatalf("id step error: %v", err)
		}
		if st.Step != StepDeleteConfirm || st.PendingDeleteID != raid.ID {
			t.Fatalf("after id: %+v", st)
		}
		if !strings.Contains(reply.Text, "Night Run") {
			t.Errorf("confirmation %q should name the raid", reply.Text)
		}

		if _, err := flow.Advance(&st, Input{Text: "Yes, delete"}); err != nil {
			t.Fatalf("confirm step error: %v", err)
		}
		if len(raids.deleted) != 1 || raids.deleted[0] != raid.ID {
			t.Errorf("deleted = %v, want [%d]", raids.deleted, raid.ID)
		}
		if !st.Empty() {
			t.Errorf("state = %+v, want cleared", st)
		}
	})

	t.Run("non-numeric id re-prompts", func(t *testing.T) {
		raids := newFakeRaids()
		raids.Create("Night Run", "Rangers", time.Now().Add(time.Hour), nil)
		flow := &DeleteFlow{Raids: raids, Loc: loc}

		var st State
		flow.Start(&st, "raid_admin")
		if _, err := flow.Advance(&st, Input{Text: "first one"}); err != nil {
			t.Fatalf("id step error: %v", err)
		}
		if st.Step != StepDeleteID {
			t.Errorf("step = %v, advanced on bad id", st.Step)
		}
	})

	t.Run("unknown id terminates the flow", func(t *testing.T) {
		raids := newFakeRaids()
		raids.Create("Night Run", "Rangers", time.Now().Add(time.Hour), nil)
		flow := &DeleteFlow{Raids: raids, Loc: loc}

		var st State
		flow.Start(&st, "raid_admin")
		reply, err := flow.Advance(&st, Input{Text: "404"})
		if err != nil {
			t.Fatalf("id step error: %v", err)
		}
		if !st.Empty() {
			t.Errorf("state = %+v, want cleared", st)
		}
		if reply.Menu != "raid_admin" {
			t.Errorf("menu = %q, want origin menu", reply.Menu)
		}
	})
}

func TestIsCancel(t *testing.T) {
	for _, text := range []string{"cancel", "Cancel", " CANCEL ", "/cancel"} {
		if !IsCancel(text) {
			t.Errorf("IsCancel(%q) = false, want true", text)
		}
	}
	for _, text := range []string{"cancellation", "stop", ""} {
		if IsCancel(text) {
			t.Errorf("IsCancel(%q) = true, want false", text)
		}
	}
}

func TestStore(t *testing.T) {
	store := NewStore()
	key := Key{UserID: 1, ChatID: 2}
	other := Key{UserID: 1, ChatID: 3}

	if _, ok := store.Get(key); ok {
		t.Error("empty store should have no state")
	}

	store.Set(key, State{Flow: FlowCreate, Step: StepCreateName})

	// State is scoped to the conversation, not the user
	if _, ok := store.Get(other); ok {
		t.Error("state leaked across conversations")
	}

	st, ok := store.Get(key)
	if !ok || st.Flow != FlowCreate {
		t.Fatalf("Get() = %+v, %v", st, ok)
	}

	store.Clear(key)
	if _, ok := store.Get(key); ok {
		t.Error("state survived Clear")
	}

	// Clearing with no active flow is a no-op
	store.Clear(key)
}
