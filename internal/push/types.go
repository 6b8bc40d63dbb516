package push

import (
	"github.com/rickgao/stockfeed/internal/model"
)

// Message types on the push channel.
const (
	TypeAuth               = "AUTH"
	TypeAuthSuccess        = "AUTH_SUCCESS"
	TypeAuthFailed         = "AUTH_FAILED"
	TypeInitialPrices      = "INITIAL_PRICES"
	TypePriceUpdate        = "PRICE_UPDATE"
	TypeSubscriptionUpdate = "SUBSCRIPTION_UPDATE"
)

// ClientMessage is any inbound frame. Only AUTH is meaningful; everything
// else is ignored.
type ClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// AuthSuccessMessage acknowledges channel authentication.
type AuthSuccessMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// AuthFailedMessage reports a terminal authentication failure.
type AuthFailedMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// InitialPricesMessage is the one-time price snapshot sent on auth success.
type InitialPricesMessage struct {
	Type string                      `json:"type"`
	Data map[string]model.PricePoint `json:"data"`
}

// PriceUpdateMessage is the periodic broadcast envelope.
type PriceUpdateMessage struct {
	Type      string                      `json:"type"`
	Data      map[string]model.PricePoint `json:"data"`
	Timestamp string                      `json:"timestamp"`
}

// SubscriptionUpdateMessage is pushed out-of-band when a user's
// subscription set changes, keeping all of that user's connections in sync.
type SubscriptionUpdateMessage struct {
	Type          string   `json:"type"`
	Subscriptions []string `json:"subscriptions"`
}
