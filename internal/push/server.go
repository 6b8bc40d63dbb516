package push

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/stockfeed/internal/directory"
	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/model"
	"github.com/rickgao/stockfeed/internal/registry"
)

// SessionResolver resolves session tokens to user ids.
type SessionResolver interface {
	Resolve(token string) (string, bool)
}

// SubscriptionSource provides a user's current subscription set.
type SubscriptionSource interface {
	SubscriptionsOf(userID string) ([]string, error)
}

// PriceSource provides the latest price per symbol.
type PriceSource interface {
	Snapshot() map[string]model.PricePoint
}

// Config holds push-channel settings.
type Config struct {
	ReadLimit         int64         // Max inbound frame size in bytes
	ReadTimeout       time.Duration // Read deadline, refreshed on pong
	WriteTimeout      time.Duration // Write deadline per frame
	PingInterval      time.Duration // Keepalive ping period
	SendBuffer        int           // Initial outbound queue capacity
	SendBufferCeiling int           // Outbound queue hard ceiling
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReadLimit:         512,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		SendBuffer:        256,
		SendBufferCeiling: 4096,
	}
}

// Server upgrades HTTP requests to push channels and runs the per-channel
// authentication protocol.
type Server struct {
	cfg      Config
	sessions SessionResolver
	subs     SubscriptionSource
	prices   PriceSource
	registry *registry.Registry
	logger   *slog.Logger

	upgrader websocket.Upgrader
}

// NewServer creates a push-channel server.
func NewServer(
	cfg Config,
	sessions SessionResolver,
	subs SubscriptionSource,
	prices PriceSource,
	reg *registry.Registry,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:      cfg,
		sessions: sessions,
		subs:     subs,
		prices:   prices,
		registry: reg,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and starts the connection pumps.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := newConn(s.cfg, ws, s.logger)

	go c.writePump()
	go c.pingLoop()
	go s.readPump(c)
}

// readPump consumes inbound frames until the connection dies, then
// detaches and closes it.
func (s *Server) readPump(c *Conn) {
	defer func() {
		if s.registry.Detach(c) {
			metrics.Connections.Dec()
		}
		c.Close()
	}()

	c.ws.SetReadLimit(s.cfg.ReadLimit)
	c.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		s.handleMessage(c, data)
	}
}

// handleMessage processes one inbound frame. Failures are logged
// per-message, never fatal to the connection.
func (s *Server) handleMessage(c *Conn, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Debug("ignoring malformed frame", "error", err)
		return
	}

	// Only the first AUTH is meaningful; anything else is ignored.
	if msg.Type != TypeAuth || c.UserID() != "" {
		return
	}

	s.authenticate(c, msg.SessionID)
}

// authenticate runs the once-per-connection auth protocol. An invalid token
// is terminal: the connection gets AUTH_FAILED and is forcibly closed.
func (s *Server) authenticate(c *Conn, token string) {
	userID, ok := s.sessions.Resolve(token)
	if !ok {
		s.reject(c, "Invalid session")
		return
	}

	subs, err := s.subs.SubscriptionsOf(userID)
	if err != nil {
		// Session pointed at a user the directory does not know.
		if errors.Is(err, directory.ErrUnknownUser) {
			s.logger.Error("session resolved to unknown user", "user_id", userID)
		}
		s.reject(c, "Invalid session")
		return
	}

	c.setUserID(userID)
	s.registry.Attach(userID, c)
	metrics.Connections.Inc()

	// Current prices for the user's subscriptions, then the ack.
	if len(subs) > 0 {
		c.Send(mustMarshal(InitialPricesMessage{
			Type: TypeInitialPrices,
			Data: FilterPrices(s.prices.Snapshot(), subs),
		}))
	}
	c.Send(mustMarshal(AuthSuccessMessage{
		Type:   TypeAuthSuccess,
		UserID: userID,
	}))

	s.logger.Debug("push channel authenticated", "user_id", userID)
}

// reject sends AUTH_FAILED synchronously and forces the connection closed.
func (s *Server) reject(c *Conn, reason string) {
	frame := mustMarshal(AuthFailedMessage{Type: TypeAuthFailed, Error: reason})
	if err := c.writeFrame(frame); err != nil {
		s.logger.Debug("failed to deliver auth rejection", "error", err)
	}
	c.Close()
}

// FilterPrices narrows a full price snapshot to the given symbols.
func FilterPrices(all map[string]model.PricePoint, symbols []string) map[string]model.PricePoint {
	out := make(map[string]model.PricePoint, len(symbols))
	for _, sym := range symbols {
		if pp, ok := all[sym]; ok {
			out[sym] = pp
		}
	}
	return out
}

// mustMarshal marshals a wire message. The message types contain nothing
// that can fail to encode.
func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
