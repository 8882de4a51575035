package restrt

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	normalize "github.com/restgraph/restgraph/internal/normalize"
)

func TestResolve_SingleFetch(t *testing.T) {
	mock := NewMockTransport(JSONResponse(200, postDoc))
	rt := newTestRuntime(t, mock)
	doc := mustParseQuery(t, `query {
		post(id: "1") @rest(type: "Post", path: "/posts/{args.id}") {
			id
			title
			author { name }
		}
	}`)

	got, err := rt.Resolve(context.Background(), doc, "", nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := map[string]any{
		"post": map[string]any{
			"id": "1", "type": "posts", "__typename": "Post",
			"title": "A",
			"author": map[string]any{
				"id": "2", "type": "authors", "__typename": "authors",
				"name": "Ann",
			},
		},
	}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if len(got.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", got.Errors)
	}
	if got.Calls != 1 || len(got.Responses) != 1 {
		t.Fatalf("calls=%d responses=%d", got.Calls, len(got.Responses))
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one upstream call, got %d", len(calls))
	}
	if calls[0].Method != "GET" || calls[0].URL != "https://api.example.com/posts/1" {
		t.Fatalf("call %s %s", calls[0].Method, calls[0].URL)
	}
	if calls[0].Body != nil {
		t.Fatalf("GET carried a body: %q", calls[0].Body)
	}
}

func TestResolve_AliasBecomesResponseKey(t *testing.T) {
	mock := NewMockTransport(JSONResponse(200, postDoc))
	rt := newTestRuntime(t, mock)
	doc := mustParseQuery(t, `query {
		entry: post(id: "1") @rest(type: "Post", path: "/posts/{args.id}") { id }
	}`)

	got, err := rt.Resolve(context.Background(), doc, "", nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := got.Data["entry"]; !ok {
		t.Fatalf("aliased key missing: %v", got.Data)
	}
	if _, ok := got.Data["post"]; ok {
		t.Fatalf("field name should not appear beside its alias: %v", got.Data)
	}
}

func TestResolve_MissingSelectedFieldsBecomeNull(t *testing.T) {
	mock := NewMockTransport(JSONResponse(200, `{
		"data": {"id": "1", "type": "posts", "attributes": {"title": "A"}}
	}`))
	rt := newTestRuntime(t, mock)
	doc := mustParseQuery(t, `query {
		post @rest(type: "Post", path: "/posts/1") { id title subtitle author { name } }
	}`)

	got, err := rt.Resolve(context.Background(), doc, "", nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	post := got.Data["post"].(map[string]any)
	if v, ok := post["subtitle"]; !ok || v != nil {
		t.Fatalf("subtitle should be an explicit null: %v", post)
	}
	if v, ok := post["author"]; !ok || v != nil {
		t.Fatalf("author should be an explicit null: %v", post)
	}
	if post["title"] != "A" {
		t.Fatalf("present fields stay: %v", post)
	}
}

func TestResolve_NotFoundYieldsNull(t *testing.T) {
	mock := NewMockTransport(JSONResponse(404, `{"errors":[{"title":"gone"}]}`))
	rt := newTestRuntime(t, mock)
	doc := mustParseQuery(t, `query {
		post @rest(type: "Post", path: "/posts/404") { id }
	}`)

	got, err := rt.Resolve(context.Background(), doc, "", nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Data["post"] != nil {
		t.Fatalf("absent resource should resolve to null: %v", got.Data)
	}
	if len(got.Errors) != 0 {
		t.Fatalf("a 404 is not an error: %v", got.Errors)
	}
}

func TestResolve_DeclaredEmptyResponse(t *testing.T) {
	mock := NewMockTransport(NewBufferedResponse(204, nil, nil))
	rt := newTestRuntime(t, mock)
	doc := mustParseQuery(t, `mutation {
		removePost(id: "1") @rest(path: "/posts/{args.id}", method: "DELETE") { id }
	}`)

	got, err := rt.Resolve(context.Background(), doc, "", nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := map[string]any{"removePost": map[string]any{"id": nil}}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_RelabelWithoutFetch(t *testing.T) {
	rt := newTestRuntime(t, NewMockTransport())
	doc := mustParseQuery(t, `query {
		node @type(name: "Widget") { id label }
	}`)
	initial := map[string]any{
		"node": map[string]any{"id": "1", "label": "x"},
	}

	got, err := rt.Resolve(context.Background(), doc, "", nil, initial)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	node := got.Data["node"].(map[string]any)
	if node[normalize.TypeNameKey] != "Widget" {
		t.Fatalf("type tag not rewritten: %v", node)
	}
	if got.Calls != 0 {
		t.Fatalf("relabeling must not call the transport")
	}

	// The caller's value is deep-copied before the walk touches it.
	callerNode := initial["node"].(map[string]any)
	if _, ok := callerNode[normalize.TypeNameKey]; ok {
		t.Fatalf("input map was relabeled in place: %v", callerNode)
	}
	if len(callerNode) != 2 {
		t.Fatalf("input map was patched in place: %v", callerNode)
	}
}

func TestResolve_FieldNameNormalization(t *testing.T) {
	mock := NewMockTransport(JSONResponse(200, `{
		"data": {"id": "1", "type": "posts", "attributes": {"created_at": "now"}}
	}`))
	rt := newTestRuntime(t, mock, func(o *Options) {
		o.FieldNameNormalizer = normalize.CamelCase
	})
	doc := mustParseQuery(t, `query {
		post @rest(type: "Post", path: "/posts/1") { id createdAt }
	}`)

	got, err := rt.Resolve(context.Background(), doc, "", nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	post := got.Data["post"].(map[string]any)
	if post["createdAt"] != "now" {
		t.Fatalf("key not normalized: %v", post)
	}
	if post[normalize.TypeNameKey] != "Post" {
		t.Fatalf("type tag should survive normalization: %v", post)
	}
}

func TestResolve_ContextHeadersForwarded(t *testing.T) {
	mock := NewMockTransport(JSONResponse(200, postDoc))
	rt := newTestRuntime(t, mock, func(o *Options) {
		o.Headers = http.Header{"X-Static": []string{"s"}}
	})
	doc := mustParseQuery(t, `query {
		post @rest(type: "Post", path: "/posts/1") { id }
	}`)

	ctx := WithHeaders(context.Background(), http.Header{"Authorization": []string{"Bearer t"}})
	if _, err := rt.Resolve(ctx, doc, "", nil, nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	h := mock.Calls()[0].Header
	if h.Get("X-Static") != "s" || h.Get("Authorization") != "Bearer t" {
		t.Fatalf("headers not forwarded: %v", h)
	}
}

func TestResolve_CancelledContextIssuesNothing(t *testing.T) {
	mock := NewMockTransport(JSONResponse(200, postDoc))
	rt := newTestRuntime(t, mock)
	doc := mustParseQuery(t, `query {
		post @rest(type: "Post", path: "/posts/1") { id }
	}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := rt.Resolve(ctx, doc, "", nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Data["post"] != nil {
		t.Fatalf("cancelled branch should stay null: %v", got.Data)
	}
	if len(got.Errors) != 0 {
		t.Fatalf("cancellation is silent: %v", got.Errors)
	}
	if len(mock.Calls()) != 0 {
		t.Fatalf("no request may be issued after cancellation")
	}
}

// transportFunc adapts a function to the Transport interface for tests that
// need behavior the seeded mocks cannot express.
type transportFunc func(ctx context.Context, req *Request) (Response, error)

func (f transportFunc) Do(ctx context.Context, req *Request) (Response, error) {
	return f(ctx, req)
}

func TestResolve_LateResultDiscardedAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := transportFunc(func(ctx context.Context, req *Request) (Response, error) {
		// The call was already in flight when the walk got cancelled; the
		// upstream still answers.
		cancel()
		return JSONResponse(200, postDoc), nil
	})
	rt := newTestRuntime(t, transport)
	doc := mustParseQuery(t, `query {
		post @rest(type: "Post", path: "/posts/1") { id }
	}`)

	got, err := rt.Resolve(ctx, doc, "", nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Data["post"] != nil {
		t.Fatalf("a result arriving after cancellation must be discarded: %v", got.Data)
	}
	if len(got.Responses) != 0 {
		t.Fatalf("discarded results must not be recorded: %d responses", len(got.Responses))
	}
	if len(got.Errors) != 0 {
		t.Fatalf("discarding is silent: %v", got.Errors)
	}
	if got.Calls != 1 {
		t.Fatalf("the request was issued before cancellation, calls=%d", got.Calls)
	}
}

func TestResolve_TransportCancellationSwallowed(t *testing.T) {
	transport := transportFunc(func(ctx context.Context, req *Request) (Response, error) {
		return nil, context.Canceled
	})
	rt := newTestRuntime(t, transport)
	doc := mustParseQuery(t, `query {
		post @rest(type: "Post", path: "/posts/1") { id }
	}`)

	got, err := rt.Resolve(context.Background(), doc, "", nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Data["post"] != nil {
		t.Fatalf("aborted branch should stay null: %v", got.Data)
	}
	if len(got.Errors) != 0 {
		t.Fatalf("the abort signal must not surface as an error: %v", got.Errors)
	}
}

func TestResolve_PreserveFullResponse(t *testing.T) {
	mock := NewMockTransport(JSONResponse(200, postDoc))
	rt := newTestRuntime(t, mock, func(o *Options) {
		o.PreserveFullResponse = true
	})
	doc := mustParseQuery(t, `query {
		post @rest(type: "Post", path: "/posts/1") { graphql jsonapi }
	}`)

	got, err := rt.Resolve(context.Background(), doc, "", nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	post := got.Data["post"].(map[string]any)
	flat, ok := post["graphql"].(map[string]any)
	if !ok || flat["title"] != "A" {
		t.Fatalf("graphql channel: %v", post["graphql"])
	}
	if _, ok := post["jsonapi"].(map[string]any); !ok {
		t.Fatalf("jsonapi channel missing: %v", post)
	}
}

func TestResolve_OperationSelection(t *testing.T) {
	doc := mustParseQuery(t, `
		query A { a @rest(type: "T", path: "/a") { id } }
		query B { b @rest(type: "T", path: "/b") { id } }
	`)

	mock := NewMockTransport(JSONResponse(200, `{"data":{"id":"9","type":"t"}}`))
	rt := newTestRuntime(t, mock)

	got, err := rt.Resolve(context.Background(), doc, "B", nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := got.Data["b"]; !ok {
		t.Fatalf("operation B should run: %v", got.Data)
	}
	if mock.Calls()[0].URL != "https://api.example.com/b" {
		t.Fatalf("wrong operation executed: %s", mock.Calls()[0].URL)
	}
}
