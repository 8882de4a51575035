package jsonapi

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sameMap reports whether two values are the identical map instance.
func sameMap(a any, b any) bool {
	am, ok := a.(map[string]any)
	if !ok {
		return false
	}
	bm, ok := b.(map[string]any)
	if !ok {
		return false
	}
	return reflect.ValueOf(am).Pointer() == reflect.ValueOf(bm).Pointer()
}

func TestFlatten_LiftsAttributesAndRelationships(t *testing.T) {
	res := map[string]any{
		"id": "1", "type": "posts", "__typename": "Post",
		"attributes": map[string]any{"title": "A"},
		"links":      map[string]any{"self": "/posts/1"},
		"meta":       map[string]any{"count": 1},
		"relationships": map[string]any{
			"author": map[string]any{
				"data": map[string]any{
					"id": "2", "type": "authors", "__typename": "Author",
					"attributes": map[string]any{"name": "Ann"},
				},
			},
		},
	}

	got := Flatten(res)

	want := map[string]any{
		"id": "1", "type": "posts", "__typename": "Post",
		"title": "A",
		"author": map[string]any{
			"id": "2", "type": "authors", "__typename": "Author",
			"name": "Ann",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("flattened resource mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_EmptyRelationshipArrayStaysEmpty(t *testing.T) {
	res := map[string]any{
		"id": "1", "type": "posts",
		"relationships": map[string]any{
			"comments": map[string]any{"data": []any{}},
		},
	}

	got := Flatten(res).(map[string]any)

	comments, ok := got["comments"].([]any)
	if !ok || len(comments) != 0 {
		t.Fatalf("expected empty slice, got %v (%T)", got["comments"], got["comments"])
	}
}

func TestFlatten_EnvelopeWithoutDataContributesNothing(t *testing.T) {
	res := map[string]any{
		"id": "1", "type": "posts",
		"relationships": map[string]any{
			"author": map[string]any{
				"links": map[string]any{"related": "/posts/1/author"},
			},
		},
	}

	got := Flatten(res).(map[string]any)

	if _, ok := got["author"]; ok {
		t.Fatalf("data-less relationship should not appear: %v", got)
	}
}

func TestFlatten_NonMapPassesThrough(t *testing.T) {
	if got := Flatten("scalar"); got != "scalar" {
		t.Fatalf("got %v", got)
	}
	if got := Flatten(nil); got != nil {
		t.Fatalf("got %v", got)
	}
}

func TestFlatten_CycleYieldsIdentifierStub(t *testing.T) {
	node := map[string]any{
		"id": "1", "type": "nodes", "__typename": "Node",
		"attributes": map[string]any{"label": "root"},
	}
	node["relationships"] = map[string]any{
		"parent": map[string]any{"data": node},
	}

	got := Flatten(node)

	want := map[string]any{
		"id": "1", "type": "nodes", "__typename": "Node",
		"label": "root",
		"parent": map[string]any{"id": "1", "type": "nodes", "__typename": "Node"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cyclic flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_SharedResourceFlattensTwice(t *testing.T) {
	author := map[string]any{
		"id": "2", "type": "authors",
		"attributes": map[string]any{"name": "Ann"},
	}
	res := map[string]any{
		"id": "1", "type": "posts",
		"relationships": map[string]any{
			"author": map[string]any{"data": author},
			"editor": map[string]any{"data": author},
		},
	}

	got := Flatten(res).(map[string]any)

	// The same object reachable along two distinct paths is not a cycle; both
	// occurrences flatten in full.
	want := map[string]any{"id": "2", "type": "authors", "name": "Ann"}
	if diff := cmp.Diff(want, got["author"]); diff != "" {
		t.Fatalf("author mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, got["editor"]); diff != "" {
		t.Fatalf("editor mismatch (-want +got):\n%s", diff)
	}
}
