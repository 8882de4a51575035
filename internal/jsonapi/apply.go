package jsonapi

import "github.com/restgraph/restgraph/internal/normalize"

// FullResponseSuffix namespaces the type tags of the preserved full-response
// snapshot so they can never collide with the flattened shape's type names.
const FullResponseSuffix = "_jsonapi"

// ApplyToDocument runs the full document pipeline: type tagging,
// denormalization and flattening of the primary data. With preserveFull set,
// the original nested document is snapshotted (with namespaced type tags) and
// independently denormalized before flattening touches anything, and the
// result is returned as {"graphql": flattened, "jsonapi": snapshot}.
//
// An empty document body (HTTP 204, zero-length body) short-circuits to an
// empty object without invoking the pipeline.
func ApplyToDocument(doc map[string]any, typeName normalize.TypeName, preserveFull bool) any {
	if len(doc) == 0 {
		return map[string]any{}
	}
	if typeName == nil {
		typeName = normalize.Identity
	}

	var snapshot map[string]any
	if preserveFull {
		snapshot = tagDocument(doc, func(raw string) string {
			return typeName(raw) + FullResponseSuffix
		})
		denormalizeDocumentData(snapshot)
	}

	tagged := tagDocument(doc, typeName)
	denormalizeDocumentData(tagged)

	var flattened any
	switch data := tagged["data"].(type) {
	case []any:
		items := make([]any, len(data))
		for i, item := range data {
			items[i] = Flatten(item)
		}
		flattened = items
	default:
		flattened = Flatten(data)
	}

	if preserveFull {
		return map[string]any{"graphql": flattened, "jsonapi": snapshot}
	}
	return flattened
}

// tagDocument deep-copies doc and stamps every resource in data and included
// with its normalized type tag.
func tagDocument(doc map[string]any, typeName normalize.TypeName) map[string]any {
	out := DeepCopy(doc).(map[string]any)
	tag := func(v any) {
		res, ok := v.(map[string]any)
		if !ok {
			return
		}
		if raw, ok := res["type"].(string); ok {
			res[normalize.TypeNameKey] = typeName(raw)
		}
	}
	switch data := out["data"].(type) {
	case []any:
		for _, item := range data {
			tag(item)
		}
	default:
		tag(data)
	}
	if included, ok := out["included"].([]any); ok {
		for _, item := range included {
			tag(item)
		}
	}
	return out
}

// denormalizeDocumentData expands relationship linkage in doc's primary data
// against the union of primary data and included resources.
func denormalizeDocumentData(doc map[string]any) {
	pool := documentPool(doc)
	// One visited set for the whole document, so every resource expands at
	// most once per pass even when several primary resources reference it.
	expanded := make(map[Identifier]map[string]any)
	switch data := doc["data"].(type) {
	case []any:
		for i, item := range data {
			if res, ok := item.(map[string]any); ok {
				data[i] = denormalize(res, pool, expanded)
			}
		}
	case map[string]any:
		doc["data"] = denormalize(data, pool, expanded)
	}
}

// documentPool collects all known resources: primary data first, then
// included, so self-references resolve against data itself.
func documentPool(doc map[string]any) []map[string]any {
	var pool []map[string]any
	switch data := doc["data"].(type) {
	case []any:
		for _, item := range data {
			if res, ok := item.(map[string]any); ok {
				pool = append(pool, res)
			}
		}
	case map[string]any:
		pool = append(pool, data)
	}
	if included, ok := doc["included"].([]any); ok {
		for _, item := range included {
			if res, ok := item.(map[string]any); ok {
				pool = append(pool, res)
			}
		}
	}
	return pool
}
