package directory

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/stockfeed/internal/model"
)

// Errors
var (
	// ErrUnknownUser means a user id did not resolve. Sessions always point
	// at existing users, so hitting this is an internal-consistency fault.
	ErrUnknownUser = errors.New("unknown user")

	// ErrInvalidInstrument means a symbol is outside the fixed universe.
	ErrInvalidInstrument = errors.New("invalid instrument")
)

// Directory is the source of truth for users and their subscriptions.
// All compound operations are atomic under one directory-wide mutex.
type Directory struct {
	logger   *slog.Logger
	universe map[string]struct{}

	mu      sync.RWMutex
	byEmail map[string]*model.User
	byID    map[string]*model.User

	// Hooks, set once during wiring before any traffic.
	onDirty       func()
	onSubsChanged func(userID string, subscriptions []string)
}

// New creates an empty directory over the given instrument universe.
func New(symbols []string, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}

	universe := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		universe[sym] = struct{}{}
	}

	return &Directory{
		logger:   logger,
		universe: universe,
		byEmail:  make(map[string]*model.User),
		byID:     make(map[string]*model.User),
	}
}

// OnDirty registers the durability hook, fired after every successful
// mutation. Must be set before the directory takes traffic.
func (d *Directory) OnDirty(fn func()) {
	d.onDirty = fn
}

// OnSubscriptionsChanged registers the out-of-band notification hook,
// fired with the updated set after every successful Subscribe/Unsubscribe.
func (d *Directory) OnSubscriptionsChanged(fn func(userID string, subscriptions []string)) {
	d.onSubsChanged = fn
}

// GetOrCreate looks a user up by email, creating it on first login.
// At most one User is ever created per email regardless of concurrent callers.
func (d *Directory) GetOrCreate(email string) model.User {
	d.mu.Lock()
	u, ok := d.byEmail[email]
	if !ok {
		u = &model.User{
			ID:            uuid.NewString(),
			Email:         email,
			Subscriptions: make(map[string]struct{}),
		}
		d.byEmail[email] = u
		d.byID[u.ID] = u
	}
	out := copyUser(u)
	d.mu.Unlock()

	if !ok {
		d.logger.Info("user created", "user_id", out.ID, "email", email)
		if d.onDirty != nil {
			d.onDirty()
		}
	}

	return out
}

// Subscribe adds an instrument to a user's set. Re-subscribing is a no-op
// success. Returns the full updated set.
func (d *Directory) Subscribe(userID, symbol string) ([]string, error) {
	if _, ok := d.universe[symbol]; !ok {
		return nil, ErrInvalidInstrument
	}

	d.mu.Lock()
	u, ok := d.byID[userID]
	if !ok {
		d.mu.Unlock()
		return nil, ErrUnknownUser
	}
	u.Subscriptions[symbol] = struct{}{}
	subs := u.SubscriptionList()
	d.mu.Unlock()

	d.mutated(userID, subs)
	return subs, nil
}

// Unsubscribe removes an instrument from a user's set. Removing an absent
// instrument is a no-op success. Returns the full updated set.
func (d *Directory) Unsubscribe(userID, symbol string) ([]string, error) {
	d.mu.Lock()
	u, ok := d.byID[userID]
	if !ok {
		d.mu.Unlock()
		return nil, ErrUnknownUser
	}
	delete(u.Subscriptions, symbol)
	subs := u.SubscriptionList()
	d.mu.Unlock()

	d.mutated(userID, subs)
	return subs, nil
}

// SubscriptionsOf returns a user's current subscription set.
func (d *Directory) SubscriptionsOf(userID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byID[userID]
	if !ok {
		return nil, ErrUnknownUser
	}
	return u.SubscriptionList(), nil
}

// Len returns the number of users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byEmail)
}

// Snapshot returns every user as a persistable record, sorted by email so
// snapshot files are stable across saves.
func (d *Directory) Snapshot() []model.UserRecord {
	d.mu.RLock()
	records := make([]model.UserRecord, 0, len(d.byEmail))
	for _, u := range d.byEmail {
		records = append(records, model.UserRecord{
			ID:            u.ID,
			Email:         u.Email,
			Subscriptions: u.SubscriptionList(),
		})
	}
	d.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Email < records[j].Email })
	return records
}

// Restore populates the directory from snapshot records at startup.
// Symbols outside the current universe are dropped with a warning.
func (d *Directory) Restore(records []model.UserRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, rec := range records {
		if rec.ID == "" || rec.Email == "" {
			d.logger.Warn("skipping malformed snapshot record", "email", rec.Email)
			continue
		}

		u := &model.User{
			ID:            rec.ID,
			Email:         rec.Email,
			Subscriptions: make(map[string]struct{}, len(rec.Subscriptions)),
		}
		for _, sym := range rec.Subscriptions {
			if _, ok := d.universe[sym]; !ok {
				d.logger.Warn("dropping subscription outside universe",
					"email", rec.Email,
					"symbol", sym,
				)
				continue
			}
			u.Subscriptions[sym] = struct{}{}
		}

		d.byEmail[u.Email] = u
		d.byID[u.ID] = u
	}
}

// mutated fires the post-mutation hooks outside the directory lock.
func (d *Directory) mutated(userID string, subs []string) {
	if d.onDirty != nil {
		d.onDirty()
	}
	if d.onSubsChanged != nil {
		d.onSubsChanged(userID, subs)
	}
}

// copyUser returns a detached copy. Must be called with the lock held.
func copyUser(u *model.User) model.User {
	subs := make(map[string]struct{}, len(u.Subscriptions))
	for sym := range u.Subscriptions {
		subs[sym] = struct{}{}
	}
	return model.User{ID: u.ID, Email: u.Email, Subscriptions: subs}
}
