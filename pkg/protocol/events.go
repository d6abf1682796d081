// Package protocol defines the wire events exchanged between clients and the
// CodeUniverse gateway over WebSocket.
//
// All events are JSON-encoded and share a common envelope with an "event"
// field that determines the payload structure.
package protocol

import "time"

// Envelope is the top-level wire format for all events.
type Envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"ts"`
	Payload   any       `json:"payload,omitempty"`
}

// Event names, client → gateway.
const (
	EventHeartbeat             = "heartbeat"
	EventAssistantPrompt       = "assistant_prompt"
	EventAssistantGenerate     = "assistant_generate"
	EventAssistantAutocomplete = "assistant_autocomplete"
)

// Event names, gateway → client.
const (
	EventConnected                     = "connected"
	EventHeartbeatAck                  = "heartbeat_ack"
	EventAssistantResponse             = "assistant_response"
	EventAssistantGenerateResponse     = "assistant_generate_response"
	EventAssistantAutocompleteResponse = "assistant_autocomplete_response"
)

// Connected is emitted once after a successful authentication gate.
type Connected struct {
	Message string `json:"message"`
}

// Heartbeat carries the client's clock reading in epoch milliseconds.
type Heartbeat struct {
	TS int64 `json:"ts"`
}

// HeartbeatAck carries the server's clock reading in epoch milliseconds.
type HeartbeatAck struct {
	TS int64 `json:"ts"`
}

// PromptRequest asks for a conversational assistant reply.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateRequest asks for code generation in a target language.
type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
}

// AutocompleteRequest asks for a completion suggestion for a code fragment.
type AutocompleteRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}
