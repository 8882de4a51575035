package jsonapi

// Denormalize replaces the resource identifiers inside res's relationships
// with the actual resources they reference, looked up in pool (primary data
// plus included, in that order). Identifiers that resolve against nothing in
// pool are retained as raw {id, type} stubs. Relationship envelopes without a
// "data" key pass through untouched; "data": [] stays an empty slice.
//
// Expansion is tracked in an explicit visited set keyed by identifier, so a
// resource that relates back to itself (directly or transitively) is expanded
// exactly once and every further reference yields the same expanded object.
func Denormalize(res map[string]any, pool []map[string]any) map[string]any {
	return denormalize(res, pool, make(map[Identifier]map[string]any))
}

func denormalize(res map[string]any, pool []map[string]any, expanded map[Identifier]map[string]any) map[string]any {
	if res == nil {
		return nil
	}
	rels, ok := res["relationships"].(map[string]any)
	if !ok || len(rels) == 0 {
		return res
	}
	key, keyed := identifierOf(res)
	if keyed {
		if out, done := expanded[key]; done {
			return out
		}
	}

	out := make(map[string]any, len(res))
	for k, v := range res {
		out[k] = v
	}
	// Register before descending so cyclic references link back to out.
	if keyed {
		expanded[key] = out
	}

	next := make(map[string]any, len(rels))
	for name, env := range rels {
		envMap, ok := env.(map[string]any)
		if !ok {
			next[name] = env
			continue
		}
		data, has := envMap["data"]
		if !has {
			next[name] = envMap
			continue
		}
		cp := make(map[string]any, len(envMap))
		for k, v := range envMap {
			cp[k] = v
		}
		switch d := data.(type) {
		case []any:
			items := make([]any, len(d))
			for i, item := range d {
				items[i] = resolveLinkage(item, pool, expanded)
			}
			cp["data"] = items
		default:
			cp["data"] = resolveLinkage(data, pool, expanded)
		}
		next[name] = cp
	}
	out["relationships"] = next
	return out
}

// resolveLinkage maps one linkage entry to the resource it references, or
// returns the entry unchanged when it is not an identifier or nothing in pool
// matches it.
func resolveLinkage(v any, pool []map[string]any, expanded map[Identifier]map[string]any) any {
	ref, ok := v.(map[string]any)
	if !ok {
		return v
	}
	want, ok := identifierOf(ref)
	if !ok {
		return v
	}
	for _, candidate := range pool {
		if got, ok := identifierOf(candidate); ok && got == want {
			return denormalize(candidate, pool, expanded)
		}
	}
	return v
}
