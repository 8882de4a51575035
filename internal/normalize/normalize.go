// Package normalize provides the pure key and type-name transforms shared by
// the JSON:API document pipeline and the REST runtime. Field-name conversion
// walks decoded JSON values recursively and never mutates its input.
package normalize

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// TypeNameKey is the reserved key carrying a value's GraphQL type tag.
// It is exempt from field-name conversion.
const TypeNameKey = "__typename"

// TypeName maps a raw resource type from the wire (e.g. "blog-posts") to the
// type name exposed to the query layer.
type TypeName func(raw string) string

// Identity returns the raw type unchanged. It is the default TypeName.
func Identity(raw string) string { return raw }

// FieldConverter rewrites a single object key. keyPath holds the keys (and
// stringified array indexes) leading to the current object, outermost first.
type FieldConverter func(key string, keyPath []string) string

// FieldNames rewrites every object key in v using conv, returning a new
// structure. Arrays are mapped element-wise with the element index appended to
// keyPath. Scalars pass through unchanged. Values that are opaque byte or
// stream handles are returned as-is without descending into them.
func FieldNames(v any, conv FieldConverter) any {
	if conv == nil {
		return v
	}
	return fieldNames(v, conv, nil)
}

func fieldNames(v any, conv FieldConverter, keyPath []string) any {
	if isOpaque(v) {
		return v
	}
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			name := k
			if k != TypeNameKey {
				name = conv(k, keyPath)
			}
			out[name] = fieldNames(child, conv, append(keyPath, k))
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = fieldNames(child, conv, append(keyPath, strconv.Itoa(i)))
		}
		return out
	default:
		return v
	}
}

// isOpaque reports whether v is a binary or stream handle that must not be
// treated as a traversable document value.
func isOpaque(v any) bool {
	switch v.(type) {
	case []byte, json.RawMessage, io.Reader:
		return true
	}
	return false
}

// CamelCase converts snake_case and kebab-case keys to lowerCamelCase.
// Keys without separators are returned unchanged.
func CamelCase(key string, _ []string) string {
	if !strings.ContainsAny(key, "-_") {
		return key
	}
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '-' || r == '_' })
	if len(parts) == 0 {
		return key
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// SnakeCase converts lowerCamelCase keys to snake_case, the common casing of
// JSON:API request bodies.
func SnakeCase(key string, _ []string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
