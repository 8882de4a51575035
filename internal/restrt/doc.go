// Package restrt resolves directive-annotated GraphQL selection trees against
// REST backends speaking JSON:API.
//
// Each field tagged @rest issues one HTTP call through the injected Transport.
// The response body runs through the jsonapi document pipeline, field names
// are normalized, every selected-but-absent field is patched to an explicit
// null, and values exported with @export become visible to the path templates
// of all descendant fetch fields. Exports are captured when their node is
// entered: an @export on a field that is itself fetched reads the pre-fetch
// value, so exports belong on plain fields of an already-resolved parent.
// Untagged fields pass their existing value through; fields tagged only
// @type(name:) relabel their value's type tag without a request.
//
// A walk never retries and never caches: one Resolve call builds its response
// tree and discards all intermediate state.
package restrt
