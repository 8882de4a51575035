package restrt

import (
	"context"
	"encoding/json"
	"net/http"
)

// Request is one upstream HTTP call computed from a fetch field. Body is nil
// for verbs that never carry one. Credentials is an opaque policy token the
// runtime forwards untouched.
type Request struct {
	Method      string
	URL         string
	Header      http.Header
	Body        []byte
	Credentials string
}

// Response abstracts an upstream HTTP response. Implementations must be
// readable more than once: JSON and Text may both be called on the same
// response during error classification.
type Response interface {
	StatusCode() int
	Header() http.Header
	// DeclaredEmpty reports whether the response advertises an empty body
	// (status 204 or a zero Content-Length header).
	DeclaredEmpty() bool
	JSON() (any, error)
	Text() (string, error)
}

// Transport executes a single HTTP request. Implementations MUST be safe for
// concurrent use: the runtime fans sibling fetch fields out to goroutines.
// Retry policy, if any, belongs to the transport; the runtime never retries.
//
// Provided implementations:
// - internal/httptp.Transport: production client with pooling and timeouts
// - MockTransport below: seeded responses for tests
type Transport interface {
	Do(ctx context.Context, req *Request) (Response, error)
}

// BufferedResponse is a Response over a fully buffered body.
type BufferedResponse struct {
	status int
	header http.Header
	body   []byte
}

func NewBufferedResponse(status int, header http.Header, body []byte) *BufferedResponse {
	if header == nil {
		header = http.Header{}
	}
	return &BufferedResponse{status: status, header: header, body: body}
}

func (r *BufferedResponse) StatusCode() int     { return r.status }
func (r *BufferedResponse) Header() http.Header { return r.header }

func (r *BufferedResponse) DeclaredEmpty() bool {
	return r.status == http.StatusNoContent || r.header.Get("Content-Length") == "0"
}

func (r *BufferedResponse) JSON() (any, error) {
	var v any
	if err := json.Unmarshal(r.body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *BufferedResponse) Text() (string, error) {
	return string(r.body), nil
}
