// Package gateway manages the persistent WebSocket connections through which
// clients request AI-assisted coding operations.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/arispretz/codeuniverse-backend/internal/auth"
	"github.com/arispretz/codeuniverse-backend/internal/inference"
	"github.com/arispretz/codeuniverse-backend/internal/store"
	"github.com/arispretz/codeuniverse-backend/pkg/protocol"
)

// Fixed failure strings emitted on the corresponding response event when an
// inference call fails. The connection stays open.
const (
	failurePrompt       = "Error generating response"
	failureGenerate     = "Error generating code"
	failureAutocomplete = "Error generating suggestion"
)

// connectedMessage is the fixed acknowledgement payload sent after the
// authentication gate passes.
const connectedMessage = "Socket successfully connected"

// makeUpgrader creates a WebSocket upgrader with origin checking.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	originSet := make(map[string]bool, len(allowedOrigins))
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return originSet[origin]
		},
	}
}

// Gateway authenticates client connections and routes their events to the
// inference service.
type Gateway struct {
	store    store.Store
	verifier auth.Provider
	client   *inference.Client
	logger   *slog.Logger
	upgrader websocket.Upgrader

	pingInterval    time.Duration
	pongWait        time.Duration
	maxMessageBytes int64

	mu       sync.RWMutex
	sessions map[string]*session // session id -> session
}

// session is the live state for one authenticated connection. identity, role
// and token are established once by the authentication gate and never change
// for the connection's lifetime.
type session struct {
	id       string
	identity auth.Identity
	role     string
	token    string

	conn    *websocket.Conn
	writeMu sync.Mutex

	hbMu          sync.Mutex
	lastHeartbeat time.Time
}

// Options configures the Gateway.
type Options struct {
	AllowedOrigins  []string
	PingInterval    time.Duration // transport probe interval
	PongWait        time.Duration // idle timeout before an unresponsive connection is dropped
	MaxMessageBytes int64
}

// New creates a Gateway.
func New(s store.Store, verifier auth.Provider, client *inference.Client, logger *slog.Logger, opts Options) *Gateway {
	pingInterval := opts.PingInterval
	if pingInterval == 0 {
		pingInterval = 25 * time.Second
	}
	pongWait := opts.PongWait
	if pongWait == 0 {
		pongWait = 120 * time.Second
	}
	maxMsg := opts.MaxMessageBytes
	if maxMsg == 0 {
		maxMsg = 64 * 1024 // 64KB
	}

	return &Gateway{
		store:           s,
		verifier:        verifier,
		client:          client,
		logger:          logger.With("component", "gateway"),
		upgrader:        makeUpgrader(opts.AllowedOrigins),
		pingInterval:    pingInterval,
		pongWait:        pongWait,
		maxMessageBytes: maxMsg,
		sessions:        make(map[string]*session),
	}
}

// SessionCount reports the number of live authenticated sessions.
func (g *Gateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// HandleWS is the connection entry point. The authentication gate (credential
// verification then role resolution) runs before the WebSocket upgrade, so a
// refused connection never has a session and never sees a `connected` event.
func (g *Gateway) HandleWS(w http.ResponseWriter, req *http.Request) {
	// The bearer credential arrives out-of-band: query param or header.
	// Browsers cannot set custom headers during the WebSocket handshake, so
	// the query parameter form is the primary one.
	token := req.URL.Query().Get("token")
	if token == "" {
		token = req.Header.Get("Authorization")
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}
	}
	if token == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	identity, err := g.verifier.Verify(req.Context(), token)
	if err != nil {
		g.logger.Warn("connection refused: invalid credential", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Role resolution is part of the gate but never fatal: a missing profile
	// degrades to guest.
	role := auth.ResolveRole(req.Context(), g.store, identity.Subject)

	conn, err := g.upgrader.Upgrade(w, req, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(g.maxMessageBytes)

	sess := &session{
		id:       uuid.New().String(),
		identity: *identity,
		role:     role,
		token:    token,
		conn:     conn,
	}

	g.mu.Lock()
	g.sessions[sess.id] = sess
	g.mu.Unlock()

	g.logger.Info("client connected", "subject", identity.Subject, "email", identity.Email, "role", role, "session_id", sess.id)

	ctx := context.Background()
	if err := g.store.LogAuditEvent(ctx, &store.AuditEvent{
		ID: uuid.New().String(), Action: "client.connect", UserID: identity.Subject, SessionID: sess.id, CreatedAt: time.Now(),
	}); err != nil {
		g.logger.Warn("failed to log audit event", "action", "client.connect", "error", err)
	}

	g.send(sess, protocol.EventConnected, protocol.Connected{Message: connectedMessage})

	stopKeepalive := startKeepalive(conn, &sess.writeMu, g.pingInterval, g.pongWait)

	var disconnectReason string
	defer func() {
		stopKeepalive()
		g.mu.Lock()
		delete(g.sessions, sess.id)
		g.mu.Unlock()
		detail, _ := json.Marshal(map[string]string{"reason": disconnectReason})
		if err := g.store.LogAuditEvent(ctx, &store.AuditEvent{
			ID: uuid.New().String(), Action: "client.disconnect", UserID: identity.Subject, SessionID: sess.id, Detail: detail, CreatedAt: time.Now(),
		}); err != nil {
			g.logger.Warn("failed to log audit event", "action", "client.disconnect", "error", err)
		}
	}()

	// Events are read in wire order; request handlers run concurrently so a
	// slow inference call never blocks heartbeats or sibling requests.
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			disconnectReason = err.Error()
			g.logger.Info("client disconnected", "subject", identity.Subject, "session_id", sess.id, "reason", err)
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			g.logger.Warn("invalid message from client", "session_id", sess.id, "error", err)
			continue
		}

		g.handleEvent(sess, env)
	}
}

func (g *Gateway) handleEvent(sess *session, env protocol.Envelope) {
	switch env.Event {
	case protocol.EventHeartbeat:
		var hb protocol.Heartbeat
		decodePayload(env.Payload, &hb)

		sess.hbMu.Lock()
		sess.lastHeartbeat = time.Now()
		sess.hbMu.Unlock()

		g.logger.Debug("heartbeat", "session_id", sess.id, "client_ts", hb.TS)
		g.send(sess, protocol.EventHeartbeatAck, protocol.HeartbeatAck{TS: time.Now().UnixMilli()})

	case protocol.EventAssistantPrompt:
		var req protocol.PromptRequest
		decodePayload(env.Payload, &req)

		go func() {
			result, err := g.client.Reply(context.Background(), inference.ReplyRequest{
				Prompt:    req.Prompt,
				UserID:    sess.identity.Subject,
				UserLevel: sess.role,
			}, sess.token)
			if err != nil {
				g.logger.Warn("assistant reply failed", "session_id", sess.id, "error", err)
				g.send(sess, protocol.EventAssistantResponse, failurePrompt)
				return
			}
			g.send(sess, protocol.EventAssistantResponse, result)
		}()

	case protocol.EventAssistantGenerate:
		var req protocol.GenerateRequest
		decodePayload(env.Payload, &req)

		go func() {
			result, err := g.client.Generate(context.Background(), inference.GenerateRequest{
				Prompt:   req.Prompt,
				Language: req.Language,
			}, sess.token)
			if err != nil {
				g.logger.Warn("code generation failed", "session_id", sess.id, "error", err)
				g.send(sess, protocol.EventAssistantGenerateResponse, failureGenerate)
				return
			}
			g.send(sess, protocol.EventAssistantGenerateResponse, result)
		}()

	case protocol.EventAssistantAutocomplete:
		var req protocol.AutocompleteRequest
		decodePayload(env.Payload, &req)

		go func() {
			result, err := g.client.Autocomplete(context.Background(), inference.AutocompleteRequest{
				Code:     req.Code,
				Language: req.Language,
			}, sess.token)
			if err != nil {
				g.logger.Warn("autocomplete failed", "session_id", sess.id, "error", err)
				g.send(sess, protocol.EventAssistantAutocompleteResponse, failureAutocomplete)
				return
			}
			g.send(sess, protocol.EventAssistantAutocompleteResponse, result)
		}()

	default:
		g.logger.Warn("unknown client event", "event", env.Event, "session_id", sess.id)
	}
}

// send emits an event to the session's connection. A write to a connection
// that closed while a request was in flight fails and is simply discarded.
func (g *Gateway) send(sess *session, event string, payload any) {
	env := protocol.Envelope{
		Event:     event,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	data, err := json.Marshal(env)
	if err != nil {
		g.logger.Warn("marshal error", "event", event, "error", err)
		return
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		g.logger.Debug("send failed", "event", event, "session_id", sess.id, "error", err)
	}
}

// decodePayload re-marshals an envelope payload into its concrete type.
func decodePayload(payload any, dst any) {
	data, _ := json.Marshal(payload)
	_ = json.Unmarshal(data, dst)
}
