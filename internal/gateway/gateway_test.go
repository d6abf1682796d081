package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arispretz/codeuniverse-backend/internal/auth"
	"github.com/arispretz/codeuniverse-backend/internal/config"
	"github.com/arispretz/codeuniverse-backend/internal/inference"
	"github.com/arispretz/codeuniverse-backend/internal/store"
	"github.com/arispretz/codeuniverse-backend/pkg/protocol"
)

// setupGateway wires an in-memory store, a builtin auth service, an inference
// client pointed at backendURL, and an httptest server exposing the gateway.
func setupGateway(t *testing.T, backendURL string) (*httptest.Server, store.Store, *auth.Service) {
	t.Helper()

	s, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	authSvc := auth.NewService(s, config.AuthConfig{
		JWTSecret: "test-secret-at-least-32-chars-long",
		JWTExpiry: config.Duration{Duration: 1 * time.Hour},
	})

	client := inference.NewClient(backendURL, 5*time.Second)

	gw := New(s, authSvc, client, slog.Default(), Options{
		AllowedOrigins: []string{"*"},
		PingInterval:   25 * time.Second,
		PongWait:       120 * time.Second,
	})

	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	t.Cleanup(srv.Close)

	return srv, s, authSvc
}

// loginToken registers a user and returns a valid bearer token for it.
func loginToken(t *testing.T, authSvc *auth.Service, username string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := authSvc.Register(ctx, username, "testpassword123", "user"); err != nil {
		t.Fatal(err)
	}
	token, err := authSvc.Login(ctx, username, "testpassword123")
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	if token != "" {
		u += "?token=" + token
	}
	return u
}

// dial connects and consumes events until one matching event arrives or the
// deadline passes.
func readEvent(t *testing.T, conn *websocket.Conn, event string) protocol.Envelope {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("reading %q event: %v", event, err)
		}
		if env.Event == event {
			return env
		}
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	err := conn.WriteJSON(protocol.Envelope{Event: event, Timestamp: time.Now(), Payload: payload})
	if err != nil {
		t.Fatal(err)
	}
}

func TestHandleWS_RejectsMissingToken(t *testing.T) {
	srv, _, _ := setupGateway(t, "http://127.0.0.1:0")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err == nil {
		_ = conn.Close()
		t.Fatal("expected dial to fail without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestHandleWS_RejectsInvalidToken(t *testing.T) {
	srv, _, _ := setupGateway(t, "http://127.0.0.1:0")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "not-a-jwt"), nil)
	if err == nil {
		_ = conn.Close()
		t.Fatal("expected dial to fail with a bogus token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestHandleWS_ConnectedAck(t *testing.T) {
	srv, s, authSvc := setupGateway(t, "http://127.0.0.1:0")
	token := loginToken(t, authSvc, "connuser")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	env := readEvent(t, conn, protocol.EventConnected)

	var ack protocol.Connected
	remarshal(t, env.Payload, &ack)
	if ack.Message == "" {
		t.Error("expected a non-empty connected message")
	}

	// The connect should be recorded in the audit trail.
	_ = conn.Close()
	waitFor(t, func() bool {
		events, err := s.ListAuditEvents(context.Background(), 10, 0)
		if err != nil {
			t.Fatal(err)
		}
		for _, ev := range events {
			if ev.Action == "client.connect" {
				return true
			}
		}
		return false
	})
}

func TestHandleWS_AuthorizationHeaderToken(t *testing.T) {
	srv, _, authSvc := setupGateway(t, "http://127.0.0.1:0")
	token := loginToken(t, authSvc, "headeruser")

	headers := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), headers)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	readEvent(t, conn, protocol.EventConnected)
}

func TestHandleWS_HeartbeatAck(t *testing.T) {
	srv, _, authSvc := setupGateway(t, "http://127.0.0.1:0")
	token := loginToken(t, authSvc, "hbuser")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	readEvent(t, conn, protocol.EventConnected)

	before := time.Now().UnixMilli()
	sendEvent(t, conn, protocol.EventHeartbeat, protocol.Heartbeat{TS: before})

	env := readEvent(t, conn, protocol.EventHeartbeatAck)
	var ack protocol.HeartbeatAck
	remarshal(t, env.Payload, &ack)
	if ack.TS < before {
		t.Errorf("ack timestamp %d predates the heartbeat %d", ack.TS, before)
	}
}

func TestHandleWS_GeneratePassthrough(t *testing.T) {
	upstream := `{"output":"def add(a, b):\n    return a + b"}`
	var gotAuth string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("unexpected upstream path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstream))
	}))
	defer backend.Close()

	srv, _, authSvc := setupGateway(t, backend.URL)
	token := loginToken(t, authSvc, "genuser")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	readEvent(t, conn, protocol.EventConnected)

	sendEvent(t, conn, protocol.EventAssistantGenerate, protocol.GenerateRequest{Prompt: "add two numbers", Language: "python"})

	env := readEvent(t, conn, protocol.EventAssistantGenerateResponse)

	// The upstream body must pass through without reshaping.
	got, err := json.Marshal(env.Payload)
	if err != nil {
		t.Fatal(err)
	}
	var want, have any
	if err := json.Unmarshal([]byte(upstream), &want); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(got, &have); err != nil {
		t.Fatal(err)
	}
	wantJSON, _ := json.Marshal(want)
	haveJSON, _ := json.Marshal(have)
	if string(wantJSON) != string(haveJSON) {
		t.Errorf("payload not passed through: got %s, want %s", haveJSON, wantJSON)
	}

	if gotAuth != "Bearer "+token {
		t.Errorf("session credential not forwarded upstream: got %q", gotAuth)
	}
}

func TestHandleWS_TextResultForwarded(t *testing.T) {
	// The backend may answer a successful call with plain text. The text must
	// reach the client as the response payload, not vanish.
	upstream := "def add(a, b):\n    return a + b"
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(upstream))
	}))
	defer backend.Close()

	srv, _, authSvc := setupGateway(t, backend.URL)
	token := loginToken(t, authSvc, "textuser")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	readEvent(t, conn, protocol.EventConnected)

	sendEvent(t, conn, protocol.EventAssistantGenerate, protocol.GenerateRequest{Prompt: "add two numbers", Language: "python"})

	env := readEvent(t, conn, protocol.EventAssistantGenerateResponse)
	got, ok := env.Payload.(string)
	if !ok {
		t.Fatalf("expected string payload for a text result, got %#v", env.Payload)
	}
	if got != upstream {
		t.Errorf("text result not forwarded verbatim: got %q, want %q", got, upstream)
	}
}

func TestHandleWS_HeartbeatSequence(t *testing.T) {
	srv, _, authSvc := setupGateway(t, "http://127.0.0.1:0")
	token := loginToken(t, authSvc, "hbsequser")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	readEvent(t, conn, protocol.EventConnected)

	const n = 5
	for i := 0; i < n; i++ {
		sendEvent(t, conn, protocol.EventHeartbeat, protocol.Heartbeat{TS: time.Now().UnixMilli()})
	}

	// One ack per heartbeat, server timestamps never going backwards.
	var prev int64
	for i := 0; i < n; i++ {
		env := readEvent(t, conn, protocol.EventHeartbeatAck)
		var ack protocol.HeartbeatAck
		remarshal(t, env.Payload, &ack)
		if ack.TS < prev {
			t.Errorf("ack %d timestamp %d went backwards from %d", i, ack.TS, prev)
		}
		prev = ack.TS
	}

	// No surplus acks after the last heartbeat.
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var extra protocol.Envelope
	if err := conn.ReadJSON(&extra); err == nil && extra.Event == protocol.EventHeartbeatAck {
		t.Errorf("unexpected extra heartbeat ack: %#v", extra)
	}
}

func TestHandleWS_DisconnectAuditDetail(t *testing.T) {
	srv, s, authSvc := setupGateway(t, "http://127.0.0.1:0")
	token := loginToken(t, authSvc, "dcuser")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatal(err)
	}
	readEvent(t, conn, protocol.EventConnected)
	_ = conn.Close()

	// The disconnect audit event carries the close reason.
	waitFor(t, func() bool {
		events, err := s.ListAuditEvents(context.Background(), 10, 0)
		if err != nil {
			t.Fatal(err)
		}
		for _, ev := range events {
			if ev.Action != "client.disconnect" {
				continue
			}
			var detail struct {
				Reason string `json:"reason"`
			}
			if err := json.Unmarshal(ev.Detail, &detail); err != nil {
				t.Fatalf("disconnect detail is not JSON: %v", err)
			}
			if detail.Reason == "" {
				t.Error("disconnect audit event has no reason")
			}
			return true
		}
		return false
	})
}

func TestHandleWS_FailureKeepsConnectionOpen(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>Bad Gateway</html>"))
	}))
	defer backend.Close()

	srv, _, authSvc := setupGateway(t, backend.URL)
	token := loginToken(t, authSvc, "failuser")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	readEvent(t, conn, protocol.EventConnected)

	sendEvent(t, conn, protocol.EventAssistantPrompt, protocol.PromptRequest{Prompt: "hello"})

	env := readEvent(t, conn, protocol.EventAssistantResponse)
	msg, ok := env.Payload.(string)
	if !ok || msg != "Error generating response" {
		t.Errorf("expected fixed failure string, got %#v", env.Payload)
	}

	// The connection must remain usable after a failed request.
	sendEvent(t, conn, protocol.EventHeartbeat, protocol.Heartbeat{TS: time.Now().UnixMilli()})
	readEvent(t, conn, protocol.EventHeartbeatAck)
}

func TestHandleWS_AutocompleteFailureString(t *testing.T) {
	// No backend listening at all: transport error path.
	srv, _, authSvc := setupGateway(t, "http://127.0.0.1:0")
	token := loginToken(t, authSvc, "acuser")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	readEvent(t, conn, protocol.EventConnected)

	sendEvent(t, conn, protocol.EventAssistantAutocomplete, protocol.AutocompleteRequest{Code: "def f(", Language: "python"})

	env := readEvent(t, conn, protocol.EventAssistantAutocompleteResponse)
	msg, ok := env.Payload.(string)
	if !ok || msg != "Error generating suggestion" {
		t.Errorf("expected fixed failure string, got %#v", env.Payload)
	}
}

func TestHandleWS_ConcurrentRequests(t *testing.T) {
	// The first request stalls; heartbeats and a second request must still be
	// served while it is in flight.
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/reply" {
			<-release
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":"ok"}`))
	}))
	defer backend.Close()
	defer close(release)

	srv, _, authSvc := setupGateway(t, backend.URL)
	token := loginToken(t, authSvc, "concuser")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	readEvent(t, conn, protocol.EventConnected)

	sendEvent(t, conn, protocol.EventAssistantPrompt, protocol.PromptRequest{Prompt: "slow one"})
	sendEvent(t, conn, protocol.EventHeartbeat, protocol.Heartbeat{TS: time.Now().UnixMilli()})

	// The heartbeat ack arrives even though the prompt is still blocked.
	readEvent(t, conn, protocol.EventHeartbeatAck)
}

func TestHandleWS_UnknownEventIgnored(t *testing.T) {
	srv, _, authSvc := setupGateway(t, "http://127.0.0.1:0")
	token := loginToken(t, authSvc, "unkuser")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	readEvent(t, conn, protocol.EventConnected)

	sendEvent(t, conn, "definitely_not_an_event", map[string]string{"x": "y"})

	// Connection survives and keeps serving.
	sendEvent(t, conn, protocol.EventHeartbeat, protocol.Heartbeat{TS: time.Now().UnixMilli()})
	readEvent(t, conn, protocol.EventHeartbeatAck)
}

func remarshal(t *testing.T, payload any, dst any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
