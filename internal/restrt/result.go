package restrt

import "fmt"

type Path []any

// Error is a located resolution error. Errors accumulate on the walk without
// aborting sibling branches; partial data alongside errors is a valid
// terminal outcome.
type Error struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e Error) Error() string {
	return e.Message
}

// Result is the outcome of resolving one operation.
type Result struct {
	Data   map[string]any `json:"data"`
	Errors []Error        `json:"errors,omitempty"`

	// Responses collects the raw transport responses of the walk, in
	// completion order, for callers that need header inspection.
	Responses []Response `json:"-"`

	// Calls counts the requests issued during the walk.
	Calls int `json:"-"`
}

// ConfigError reports invalid runtime or directive configuration. It is
// raised before any request is issued and is never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "restrt: " + e.Reason
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// HTTPError carries a non-2xx upstream response: the status, the raw
// response, and a best-effort parsed body (JSON, falling back to raw text).
type HTTPError struct {
	Status   int
	Response Response
	Body     any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream request failed with status %d", e.Status)
}

func newHTTPError(resp Response) *HTTPError {
	err := &HTTPError{Status: resp.StatusCode(), Response: resp}
	if body, jerr := resp.JSON(); jerr == nil {
		err.Body = body
		return err
	}
	if text, terr := resp.Text(); terr == nil {
		err.Body = text
	}
	return err
}
