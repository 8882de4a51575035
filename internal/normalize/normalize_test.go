package normalize

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCamelCase(t *testing.T) {
	cases := map[string]string{
		"first_name":   "firstName",
		"first-name":   "firstName",
		"a_long_key":   "aLongKey",
		"plain":        "plain",
		"already_Done": "alreadyDone",
	}
	for in, want := range cases {
		if got := CamelCase(in, nil); got != want {
			t.Errorf("CamelCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"firstName": "first_name",
		"aLongKey":  "a_long_key",
		"plain":     "plain",
		"ID":        "i_d",
	}
	for in, want := range cases {
		if got := SnakeCase(in, nil); got != want {
			t.Errorf("SnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFieldNames_RewritesRecursively(t *testing.T) {
	in := map[string]any{
		"first_name": "Ann",
		"posts": []any{
			map[string]any{"created_at": "now"},
		},
	}

	got := FieldNames(in, CamelCase)

	want := map[string]any{
		"firstName": "Ann",
		"posts": []any{
			map[string]any{"createdAt": "now"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("converted value mismatch (-want +got):\n%s", diff)
	}
	// The input stays untouched.
	if _, ok := in["first_name"]; !ok {
		t.Fatalf("input was mutated: %v", in)
	}
}

func TestFieldNames_TypeTagExempt(t *testing.T) {
	in := map[string]any{TypeNameKey: "Post", "post_id": "1"}

	got := FieldNames(in, CamelCase).(map[string]any)

	if got[TypeNameKey] != "Post" {
		t.Fatalf("type tag should survive conversion: %v", got)
	}
	if got["postId"] != "1" {
		t.Fatalf("sibling key should convert: %v", got)
	}
}

func TestFieldNames_KeyPath(t *testing.T) {
	var paths [][]string
	conv := func(key string, keyPath []string) string {
		paths = append(paths, append(append([]string{}, keyPath...), key))
		return key
	}

	FieldNames(map[string]any{
		"outer": map[string]any{"inner": 1},
		"list":  []any{map[string]any{"item": 2}},
	}, conv)

	want := map[string]bool{
		"outer":       true,
		"outer.inner": true,
		"list":        true,
		"list.0.item": true,
	}
	for _, p := range paths {
		key := ""
		for i, part := range p {
			if i > 0 {
				key += "."
			}
			key += part
		}
		delete(want, key)
	}
	if len(want) != 0 {
		t.Fatalf("missing key paths: %v (got %v)", want, paths)
	}
}

func TestFieldNames_OpaqueValuesPassThrough(t *testing.T) {
	raw := json.RawMessage(`{"first_name":"x"}`)
	in := map[string]any{"payload_data": raw, "blob_data": []byte("abc")}

	got := FieldNames(in, CamelCase).(map[string]any)

	if diff := cmp.Diff(raw, got["payloadData"]); diff != "" {
		t.Fatalf("raw message should pass through untouched (-want +got):\n%s", diff)
	}
	if string(got["blobData"].([]byte)) != "abc" {
		t.Fatalf("byte slice should pass through untouched")
	}
}

func TestFieldNames_NilConverter(t *testing.T) {
	in := map[string]any{"first_name": "Ann"}
	got := FieldNames(in, nil)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("nil converter should return the input (-want +got):\n%s", diff)
	}
}
