package inference

import (
	"encoding/json"
	"errors"
	"net/http"
)

// NormalizedError is the only failure shape ever surfaced to an HTTP caller.
// Status mirrors the upstream HTTP status when one was carried, else 500.
// Detail is the upstream response body: decoded JSON when it parses, the
// raw text otherwise. The caller always receives JSON, never a raw HTML
// error page.
type NormalizedError struct {
	Status int    `json:"-"`
	Output string `json:"output"`
	Detail any    `json:"detail"`
}

// Operation failure prefixes, one per controller.
const (
	OutputAssistantFailed     = "error: Assistant service failed"
	OutputGenerateFailed      = "error: Code generation service failed"
	OutputAutocompleteFailed  = "error: Autocomplete service failed"
	OutputReplyCodeOnlyFailed = "error: Reply-code-only service failed"
)

// Normalize converts any failure from an inference call into the uniform
// caller-safe shape. output is the fixed prefix naming the failed operation.
func Normalize(output string, err error) *NormalizedError {
	ne := &NormalizedError{
		Status: http.StatusInternalServerError,
		Output: output,
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		if ue.Status != 0 {
			ne.Status = ue.Status
		}
		if len(ue.Body) > 0 {
			ne.Detail = decodeBody(ue.Body)
			return ne
		}
	}

	ne.Detail = map[string]string{"error": err.Error()}
	return ne
}

// decodeBody keeps JSON bodies structured and wraps everything else
// (HTML error pages, plain text) as a JSON string value.
func decodeBody(body []byte) any {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}
