package restrt

import (
	"testing"

	language "github.com/restgraph/restgraph/internal/language"
)

func mustParseQuery(t *testing.T, src string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(src)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	return doc
}

func newTestRuntime(t *testing.T, transport Transport, mutate ...func(*Options)) *Runtime {
	t.Helper()
	opt := Options{
		URI:       "https://api.example.com",
		Transport: transport,
	}
	for _, f := range mutate {
		f(&opt)
	}
	rt, err := New(opt)
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	return rt
}

// postDoc is a compound document with one post and its included author.
const postDoc = `{
	"data": {
		"id": "1", "type": "posts",
		"attributes": {"title": "A"},
		"relationships": {
			"author": {"data": {"id": "2", "type": "authors"}}
		}
	},
	"included": [
		{"id": "2", "type": "authors", "attributes": {"name": "Ann"}}
	]
}`
