package jsonapi

import "reflect"

// Flatten lifts a denormalized resource's attributes and relationships to the
// top level beside id and type. The attributes, relationships, links and meta
// envelope keys are dropped once their contents have been redistributed.
// Relationship data flattens element-wise for arrays; an envelope without a
// "data" key contributes nothing (the field is later null-patched if it was
// selected). Non-map values pass through unchanged.
func Flatten(v any) any {
	return flatten(v, make(map[uintptr]bool))
}

func flatten(v any, seen map[uintptr]bool) any {
	res, ok := v.(map[string]any)
	if !ok {
		return v
	}

	// A denormalized graph may be cyclic: every repeated reference shares one
	// expanded map. Revisiting a resource yields its bare identifier instead
	// of recursing forever.
	ptr := reflect.ValueOf(res).Pointer()
	if seen[ptr] {
		stub := map[string]any{}
		if id, ok := res["id"]; ok {
			stub["id"] = id
		}
		if typ, ok := res["type"]; ok {
			stub["type"] = typ
		}
		if tag, ok := res["__typename"]; ok {
			stub["__typename"] = tag
		}
		return stub
	}
	seen[ptr] = true
	defer delete(seen, ptr)

	out := make(map[string]any, len(res))
	for k, val := range res {
		switch k {
		case "attributes", "relationships", "links", "meta":
			continue
		}
		out[k] = val
	}
	if attrs, ok := res["attributes"].(map[string]any); ok {
		for k, val := range attrs {
			out[k] = val
		}
	}
	rels, ok := res["relationships"].(map[string]any)
	if !ok {
		return out
	}
	for name, env := range rels {
		envMap, ok := env.(map[string]any)
		if !ok {
			continue
		}
		data, has := envMap["data"]
		if !has {
			continue
		}
		switch d := data.(type) {
		case []any:
			items := make([]any, len(d))
			for i, item := range d {
				items[i] = flatten(item, seen)
			}
			out[name] = items
		default:
			out[name] = flatten(d, seen)
		}
	}
	return out
}
