package push

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/stockfeed/internal/directory"
	"github.com/rickgao/stockfeed/internal/model"
	"github.com/rickgao/stockfeed/internal/registry"
	"github.com/rickgao/stockfeed/internal/session"
)

type fixedPrices map[string]model.PricePoint

func (f fixedPrices) Snapshot() map[string]model.PricePoint { return f }

type pushFixture struct {
	server   *httptest.Server
	sessions *session.Store
	users    *directory.Directory
	registry *registry.Registry
}

func newPushFixture(t *testing.T) *pushFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	sessions := session.NewStore()
	users := directory.New([]string{"GOOG", "TSLA"}, logger)
	reg := registry.New(logger)
	prices := fixedPrices{
		"GOOG": {Price: 100.50, Change: 0.5, ChangePercent: 0.5},
		"TSLA": {Price: 200.00, Change: -1.0, ChangePercent: -0.5},
	}

	srv := NewServer(DefaultConfig(), sessions, users, prices, reg, logger)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &pushFixture{server: ts, sessions: sessions, users: users, registry: reg}
}

func (f *pushFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) map[string]json.RawMessage {
	t.Helper()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var frame map[string]json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("malformed frame %q: %v", data, err)
	}
	return frame
}

func frameType(t *testing.T, frame map[string]json.RawMessage) string {
	t.Helper()

	var typ string
	if err := json.Unmarshal(frame["type"], &typ); err != nil {
		t.Fatalf("frame missing type: %v", err)
	}
	return typ
}

func TestAuthSuccess(t *testing.T) {
	f := newPushFixture(t)

	user := f.users.GetOrCreate("alice@example.com")
	token := f.sessions.Create(user.ID)

	ws := f.dial(t)
	if err := ws.WriteJSON(ClientMessage{Type: TypeAuth, SessionID: token}); err != nil {
		t.Fatalf("write AUTH failed: %v", err)
	}

	frame := readFrame(t, ws)
	if got := frameType(t, frame); got != TypeAuthSuccess {
		t.Fatalf("first frame type = %q, want %q", got, TypeAuthSuccess)
	}

	var userID string
	json.Unmarshal(frame["userId"], &userID)
	if userID != user.ID {
		t.Errorf("AUTH_SUCCESS userId = %q, want %q", userID, user.ID)
	}
}

func TestAuthSendsInitialPricesFirst(t *testing.T) {
	f := newPushFixture(t)

	user := f.users.GetOrCreate("alice@example.com")
	if _, err := f.users.Subscribe(user.ID, "GOOG"); err != nil {
		t.Fatal(err)
	}
	token := f.sessions.Create(user.ID)

	ws := f.dial(t)
	if err := ws.WriteJSON(ClientMessage{Type: TypeAuth, SessionID: token}); err != nil {
		t.Fatalf("write AUTH failed: %v", err)
	}

	// A subscribed user gets the current prices before the ack.
	first := readFrame(t, ws)
	if got := frameType(t, first); got != TypeInitialPrices {
		t.Fatalf("first frame type = %q, want %q", got, TypeInitialPrices)
	}

	var data map[string]model.PricePoint
	if err := json.Unmarshal(first["data"], &data); err != nil {
		t.Fatalf("INITIAL_PRICES data: %v", err)
	}
	if len(data) != 1 {
		t.Errorf("INITIAL_PRICES has %d symbols, want 1", len(data))
	}
	if got := data["GOOG"].Price; got != 100.50 {
		t.Errorf("GOOG price = %v, want 100.50", got)
	}

	second := readFrame(t, ws)
	if got := frameType(t, second); got != TypeAuthSuccess {
		t.Errorf("second frame type = %q, want %q", got, TypeAuthSuccess)
	}
}

func TestAuthFailedClosesConnection(t *testing.T) {
	f := newPushFixture(t)

	ws := f.dial(t)
	if err := ws.WriteJSON(ClientMessage{Type: TypeAuth, SessionID: "bogus"}); err != nil {
		t.Fatalf("write AUTH failed: %v", err)
	}

	frame := readFrame(t, ws)
	if got := frameType(t, frame); got != TypeAuthFailed {
		t.Fatalf("frame type = %q, want %q", got, TypeAuthFailed)
	}

	var reason string
	json.Unmarshal(frame["error"], &reason)
	if reason != "Invalid session" {
		t.Errorf("error = %q, want %q", reason, "Invalid session")
	}

	// Rejection is terminal: the server closes the socket.
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("expected read error after AUTH_FAILED, connection still open")
	}
}

func TestMalformedFramesIgnored(t *testing.T) {
	f := newPushFixture(t)

	user := f.users.GetOrCreate("alice@example.com")
	token := f.sessions.Create(user.ID)

	ws := f.dial(t)

	// Garbage and non-AUTH frames before authentication are ignored.
	ws.WriteMessage(websocket.TextMessage, []byte("{not json"))
	ws.WriteJSON(map[string]string{"type": "SOMETHING_ELSE"})

	if err := ws.WriteJSON(ClientMessage{Type: TypeAuth, SessionID: token}); err != nil {
		t.Fatalf("write AUTH failed: %v", err)
	}

	frame := readFrame(t, ws)
	if got := frameType(t, frame); got != TypeAuthSuccess {
		t.Errorf("frame type = %q, want %q", got, TypeAuthSuccess)
	}
}

func TestAuthAttachesToRegistry(t *testing.T) {
	f := newPushFixture(t)

	user := f.users.GetOrCreate("alice@example.com")
	token := f.sessions.Create(user.ID)

	ws := f.dial(t)
	if err := ws.WriteJSON(ClientMessage{Type: TypeAuth, SessionID: token}); err != nil {
		t.Fatalf("write AUTH failed: %v", err)
	}
	readFrame(t, ws) // AUTH_SUCCESS

	if got := f.registry.Count(); got != 1 {
		t.Errorf("registry count = %d, want 1", got)
	}

	// Closing the socket detaches lazily via the read pump.
	ws.Close()
	deadline := time.Now().Add(2 * time.Second)
	for f.registry.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never detached after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFilterPrices(t *testing.T) {
	all := map[string]model.PricePoint{
		"GOOG": {Price: 1},
		"TSLA": {Price: 2},
		"AMZN": {Price: 3},
	}

	out := FilterPrices(all, []string{"TSLA", "FAKE"})
	if len(out) != 1 {
		t.Fatalf("filtered to %d symbols, want 1", len(out))
	}
	if out["TSLA"].Price != 2 {
		t.Errorf("TSLA price = %v, want 2", out["TSLA"].Price)
	}
}
