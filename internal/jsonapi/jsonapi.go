// Package jsonapi reconstructs linked object graphs out of JSON:API compound
// documents and reshapes them into the flat, typed values the query layer
// consumes.
//
// A compound document carries its primary resource(s) under "data" and a
// sidecar list of related resources under "included", cross-referenced by
// {id, type} identifier pairs. The pipeline here runs in three steps:
//
//  1. tag every resource with its normalized type name,
//  2. denormalize: replace relationship identifiers with the resources they
//     reference (cycle-safe, at most one expansion per resource per pass),
//  3. flatten: lift attributes and relationships up beside id/type.
//
// All functions operate on decoded JSON values (map[string]any, []any) and
// never mutate their inputs.
package jsonapi

// Identifier is the only stable identity in a compound document. Two
// resources denote the same entity iff both fields match exactly.
type Identifier struct {
	ID   string
	Type string
}

// identifierOf extracts the identifier of a resource value. ok is false when
// either field is missing, in which case the value cannot take part in
// linkage resolution.
func identifierOf(res map[string]any) (Identifier, bool) {
	id, _ := res["id"].(string)
	typ, _ := res["type"].(string)
	if id == "" || typ == "" {
		return Identifier{}, false
	}
	return Identifier{ID: id, Type: typ}, true
}

// DeepCopy clones a decoded JSON value. Scalars are shared; maps and slices
// are copied recursively.
func DeepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = DeepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = DeepCopy(child)
		}
		return out
	default:
		return v
	}
}
