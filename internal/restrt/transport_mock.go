package restrt

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// CallRecord captures a single Do invocation for assertions.
type CallRecord struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// MockTransport implements Transport and returns pre-seeded responses in
// order, while recording Do invocations for inspection.
type MockTransport struct {
	mu        sync.Mutex
	responses []Response
	errs      []error
	idx       int
	calls     []CallRecord
}

// NewMockTransport creates a MockTransport that will return the provided
// responses in order for successive Do() invocations.
func NewMockTransport(responses ...Response) *MockTransport {
	cp := make([]Response, len(responses))
	copy(cp, responses)
	return &MockTransport{responses: cp}
}

// NewMockTransportWithErrors allows seeding per-call errors alongside
// responses. For call i, if errs[i] is non-nil, Do returns that error and
// ignores responses[i].
func NewMockTransportWithErrors(responses []Response, errs []error) *MockTransport {
	cp := make([]Response, len(responses))
	copy(cp, responses)
	ep := make([]error, len(errs))
	copy(ep, errs)
	return &MockTransport{responses: cp, errs: ep}
}

// JSONResponse builds a buffered response with a JSON body, for test seeding.
func JSONResponse(status int, body string) *BufferedResponse {
	h := http.Header{}
	h.Set("Content-Type", "application/vnd.api+json")
	return NewBufferedResponse(status, h, []byte(body))
}

// Do records the invocation and returns the next queued response. If
// responses are exhausted, it returns an error.
func (m *MockTransport) Do(ctx context.Context, req *Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var bodyClone []byte
	if req.Body != nil {
		bodyClone = append([]byte(nil), req.Body...)
	}
	m.calls = append(m.calls, CallRecord{
		Method: req.Method,
		URL:    req.URL,
		Header: req.Header.Clone(),
		Body:   bodyClone,
	})

	if m.idx >= len(m.responses) && m.idx >= len(m.errs) {
		return nil, fmt.Errorf("mock transport: no more responses")
	}
	if m.idx < len(m.errs) {
		if err := m.errs[m.idx]; err != nil {
			m.idx++
			return nil, err
		}
	}
	var resp Response
	if m.idx < len(m.responses) {
		resp = m.responses[m.idx]
	}
	m.idx++
	return resp, nil
}

// Calls returns a snapshot of recorded Do invocations.
func (m *MockTransport) Calls() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRecord, len(m.calls))
	copy(out, m.calls)
	return out
}

// RouteTransport serves responses keyed by request URL, independent of call
// order. Useful when sibling fetches run concurrently.
type RouteTransport struct {
	mu     sync.Mutex
	routes map[string]Response
	errs   map[string]error
	calls  []CallRecord
}

func NewRouteTransport() *RouteTransport {
	return &RouteTransport{routes: map[string]Response{}, errs: map[string]error{}}
}

func (m *RouteTransport) Respond(url string, resp Response) *RouteTransport {
	m.routes[url] = resp
	return m
}

func (m *RouteTransport) Fail(url string, err error) *RouteTransport {
	m.errs[url] = err
	return m
}

func (m *RouteTransport) Do(ctx context.Context, req *Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var bodyClone []byte
	if req.Body != nil {
		bodyClone = append([]byte(nil), req.Body...)
	}
	m.calls = append(m.calls, CallRecord{Method: req.Method, URL: req.URL, Header: req.Header.Clone(), Body: bodyClone})
	if err, ok := m.errs[req.URL]; ok {
		return nil, err
	}
	if resp, ok := m.routes[req.URL]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("route transport: no route for %s", req.URL)
}

func (m *RouteTransport) Calls() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRecord, len(m.calls))
	copy(out, m.calls)
	return out
}
