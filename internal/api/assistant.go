package api

import (
	"encoding/json"
	"net/http"

	"github.com/arispretz/codeuniverse-backend/internal/inference"
)

// assistantRequest is the request body shared by the assistant controllers.
// user_id and user_level are client bookkeeping only; authorization always
// comes from the verified bearer credential.
type assistantRequest struct {
	Prompt    string `json:"prompt"`
	Language  string `json:"language"`
	Code      string `json:"code"`
	UserID    string `json:"user_id"`
	UserLevel string `json:"user_level"`
}

const (
	msgMissingPromptLanguage = "error: Missing required fields: prompt, language"
	msgMissingCodeLanguage   = "error: Missing required fields: code, language"
)

func (s *Server) decodeAssistantRequest(w http.ResponseWriter, r *http.Request) (*assistantRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var req assistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"output": "error: invalid request body"})
		return nil, false
	}
	return &req, true
}

// writeUpstreamResult relays a successful inference response verbatim, or the
// normalized failure shape. Upstream bodies are never passed through raw on
// failure: the normalizer folds them into the detail field.
func (s *Server) writeUpstreamResult(w http.ResponseWriter, result json.RawMessage, output string, err error) {
	if err != nil {
		norm := inference.Normalize(output, err)
		s.logger.Warn("inference call failed", "output", output, "status", norm.Status, "error", err)
		writeJSON(w, norm.Status, norm)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result)
}

// recordUsage updates the usage profile for operations that report a user_id.
// Profile bookkeeping never fails the request.
func (s *Server) recordUsage(r *http.Request, userID, language, note string) {
	if userID == "" {
		return
	}
	if err := s.store.UpsertProfile(r.Context(), userID, language, note); err != nil {
		s.logger.Warn("failed to update usage profile", "user_id", userID, "error", err)
	}
}

func (s *Server) handleAssistantReply(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAssistantRequest(w, r)
	if !ok {
		return
	}
	if req.Prompt == "" || req.Language == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"output": msgMissingPromptLanguage})
		return
	}

	c := getCallerFromContext(r.Context())
	result, err := s.client.Reply(r.Context(), inference.ReplyRequest{
		Prompt:    req.Prompt,
		Language:  req.Language,
		Code:      req.Code,
		UserID:    req.UserID,
		UserLevel: req.UserLevel,
	}, c.Token)
	s.writeUpstreamResult(w, result, inference.OutputAssistantFailed, err)
}

func (s *Server) handleAssistantGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAssistantRequest(w, r)
	if !ok {
		return
	}
	if req.Prompt == "" || req.Language == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"output": msgMissingPromptLanguage})
		return
	}

	c := getCallerFromContext(r.Context())
	result, err := s.client.Generate(r.Context(), inference.GenerateRequest{
		Prompt:   req.Prompt,
		Language: req.Language,
	}, c.Token)
	if err == nil {
		s.recordUsage(r, req.UserID, req.Language, "generated code")
	}
	s.writeUpstreamResult(w, result, inference.OutputGenerateFailed, err)
}

func (s *Server) handleAssistantAutocomplete(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAssistantRequest(w, r)
	if !ok {
		return
	}
	if req.Code == "" || req.Language == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"output": msgMissingCodeLanguage})
		return
	}

	c := getCallerFromContext(r.Context())
	result, err := s.client.Autocomplete(r.Context(), inference.AutocompleteRequest{
		Code:     req.Code,
		Language: req.Language,
	}, c.Token)
	if err == nil {
		s.recordUsage(r, req.UserID, req.Language, "used autocomplete")
	}
	s.writeUpstreamResult(w, result, inference.OutputAutocompleteFailed, err)
}

// handleAssistantReplyCode has no required-field gate: an empty prompt is
// forwarded as-is and the upstream decides what to do with it.
func (s *Server) handleAssistantReplyCode(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAssistantRequest(w, r)
	if !ok {
		return
	}

	c := getCallerFromContext(r.Context())
	result, err := s.client.ReplyCodeOnly(r.Context(), inference.ReplyRequest{
		Prompt:    req.Prompt,
		Language:  req.Language,
		Code:      req.Code,
		UserID:    req.UserID,
		UserLevel: req.UserLevel,
	}, c.Token)
	s.writeUpstreamResult(w, result, inference.OutputReplyCodeOnlyFailed, err)
}
