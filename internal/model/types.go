package model

import "sort"

// PricePoint is the latest price for one instrument. A new PricePoint is
// produced per instrument per tick; no history is retained.
type PricePoint struct {
	Price         float64 `json:"price"`         // Last price (dollars, always > 0)
	Change        float64 `json:"change"`        // Price minus previous price
	ChangePercent float64 `json:"changePercent"` // Change / previous price * 100
}

// User is a directory entry: stable id, unique email, mutable subscription set.
type User struct {
	ID            string              // uuid v4, assigned at first login
	Email         string              // Unique natural key (case-sensitive)
	Subscriptions map[string]struct{} // Subset of the instrument universe
}

// SubscriptionList returns the subscription set as a sorted slice for wire
// and snapshot encoding.
func (u *User) SubscriptionList() []string {
	out := make([]string, 0, len(u.Subscriptions))
	for sym := range u.Subscriptions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// UserRecord is the persisted form of a User, one record per user in the
// directory snapshot.
type UserRecord struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	Subscriptions []string `json:"subscriptions"`
}
