package directory

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/rickgao/stockfeed/internal/model"
)

var universe = []string{"GOOG", "TSLA", "AMZN", "META", "NVDA"}

func TestGetOrCreate(t *testing.T) {
	d := New(universe, nil)

	u := d.GetOrCreate("a@b.com")
	if u.ID == "" {
		t.Fatal("created user has empty id")
	}
	if u.Email != "a@b.com" {
		t.Errorf("Email = %q, want %q", u.Email, "a@b.com")
	}
	if len(u.Subscriptions) != 0 {
		t.Errorf("new user has %d subscriptions, want 0", len(u.Subscriptions))
	}

	again := d.GetOrCreate("a@b.com")
	if again.ID != u.ID {
		t.Errorf("repeat login id = %q, want %q", again.ID, u.ID)
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

func TestGetOrCreate_ConcurrentSameEmail(t *testing.T) {
	d := New(universe, nil)

	ids := make(chan string, 100)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- d.GetOrCreate("race@b.com").ID
		}()
	}
	wg.Wait()
	close(ids)

	first := ""
	for id := range ids {
		if first == "" {
			first = id
		} else if id != first {
			t.Fatalf("concurrent logins produced distinct users: %q and %q", first, id)
		}
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want exactly 1", d.Len())
	}
}

func TestSubscribe(t *testing.T) {
	d := New(universe, nil)
	u := d.GetOrCreate("a@b.com")

	subs, err := d.Subscribe(u.ID, "GOOG")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !reflect.DeepEqual(subs, []string{"GOOG"}) {
		t.Errorf("subscriptions = %v, want [GOOG]", subs)
	}

	// Idempotent
	subs, err = d.Subscribe(u.ID, "GOOG")
	if err != nil {
		t.Fatalf("repeat Subscribe() error = %v", err)
	}
	if !reflect.DeepEqual(subs, []string{"GOOG"}) {
		t.Errorf("subscriptions after repeat = %v, want [GOOG]", subs)
	}
}

func TestSubscribe_InvalidInstrument(t *testing.T) {
	d := New(universe, nil)
	u := d.GetOrCreate("a@b.com")

	if _, err := d.Subscribe(u.ID, "AAPL"); !errors.Is(err, ErrInvalidInstrument) {
		t.Errorf("Subscribe(AAPL) error = %v, want ErrInvalidInstrument", err)
	}

	subs, err := d.SubscriptionsOf(u.ID)
	if err != nil {
		t.Fatalf("SubscriptionsOf() error = %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("failed subscribe mutated the set: %v", subs)
	}
}

func TestSubscribe_UnknownUser(t *testing.T) {
	d := New(universe, nil)

	if _, err := d.Subscribe("nobody", "GOOG"); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("Subscribe() error = %v, want ErrUnknownUser", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	d := New(universe, nil)
	u := d.GetOrCreate("a@b.com")
	d.Subscribe(u.ID, "GOOG")
	d.Subscribe(u.ID, "TSLA")

	subs, err := d.Unsubscribe(u.ID, "GOOG")
	if err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if !reflect.DeepEqual(subs, []string{"TSLA"}) {
		t.Errorf("subscriptions = %v, want [TSLA]", subs)
	}

	// Idempotent, including symbols never held
	subs, err = d.Unsubscribe(u.ID, "GOOG")
	if err != nil {
		t.Fatalf("repeat Unsubscribe() error = %v", err)
	}
	if !reflect.DeepEqual(subs, []string{"TSLA"}) {
		t.Errorf("subscriptions after repeat = %v, want [TSLA]", subs)
	}
	if _, err := d.Unsubscribe("nobody", "GOOG"); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("Unsubscribe(unknown) error = %v, want ErrUnknownUser", err)
	}
}

func TestHooks_FireOnMutation(t *testing.T) {
	d := New(universe, nil)

	var dirty int
	var notified []string
	d.OnDirty(func() { dirty++ })
	d.OnSubscriptionsChanged(func(userID string, subs []string) {
		notified = subs
	})

	u := d.GetOrCreate("a@b.com") // dirty: user creation persists too
	d.Subscribe(u.ID, "NVDA")     // dirty + notify

	if dirty != 2 {
		t.Errorf("dirty hook fired %d times, want 2", dirty)
	}
	if !reflect.DeepEqual(notified, []string{"NVDA"}) {
		t.Errorf("notified set = %v, want [NVDA]", notified)
	}
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	d := New(universe, nil)
	a := d.GetOrCreate("a@b.com")
	b := d.GetOrCreate("b@b.com")
	d.Subscribe(a.ID, "GOOG")
	d.Subscribe(a.ID, "META")
	d.Subscribe(b.ID, "TSLA")

	records := d.Snapshot()

	restored := New(universe, nil)
	restored.Restore(records)

	if restored.Len() != 2 {
		t.Fatalf("restored Len() = %d, want 2", restored.Len())
	}
	subs, err := restored.SubscriptionsOf(a.ID)
	if err != nil {
		t.Fatalf("SubscriptionsOf() after restore error = %v", err)
	}
	if !reflect.DeepEqual(subs, []string{"GOOG", "META"}) {
		t.Errorf("restored subscriptions = %v, want [GOOG META]", subs)
	}
	if !reflect.DeepEqual(restored.Snapshot(), records) {
		t.Error("snapshot of restored directory differs from original snapshot")
	}
}

func TestRestore_DropsUnknownInstruments(t *testing.T) {
	d := New([]string{"GOOG"}, nil)
	d.Restore([]model.UserRecord{
		{ID: "u1", Email: "a@b.com", Subscriptions: []string{"GOOG", "DOGE"}},
	})

	subs, err := d.SubscriptionsOf("u1")
	if err != nil {
		t.Fatalf("SubscriptionsOf() error = %v", err)
	}
	if !reflect.DeepEqual(subs, []string{"GOOG"}) {
		t.Errorf("subscriptions = %v, want [GOOG]", subs)
	}
}
