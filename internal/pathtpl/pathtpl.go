// Package pathtpl compiles templated request paths like
// "/posts/{args.id}/comments?{args.filter}" into builder functions over the
// call arguments and export variables visible at a query node. Compiled
// templates are memoized in an explicit Cache with process lifetime.
package pathtpl

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Builder renders a compiled template. Placeholders that cannot be resolved
// from args or exportVars render as the empty string; the miss is logged once
// per template and placeholder path.
type Builder func(args, exportVars map[string]any) string

// Cache memoizes compiled templates by template string. The zero value is not
// usable; construct with NewCache. It is safe for concurrent use and never
// evicts.
type Cache struct {
	mu       sync.Mutex
	builders map[string]Builder
	warned   sync.Map // template + "\x00" + placeholder -> struct{}
}

func NewCache() *Cache {
	return &Cache{builders: make(map[string]Builder)}
}

// Compile parses template and returns its builder, reusing a previously
// compiled one when available. Templates using the legacy single-colon
// parameter syntax are rejected outright.
func (c *Cache) Compile(template string) (Builder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.builders[template]; ok {
		return b, nil
	}
	b, err := c.compile(template)
	if err != nil {
		return nil, err
	}
	c.builders[template] = b
	return b, nil
}

// segment is one literal or placeholder chunk of a template. A placeholder
// inside the query-string portion of the path encodes structured values as
// query parameters instead of naive stringification.
type segment struct {
	literal string
	path    []string
	inQuery bool
}

func (c *Cache) compile(template string) (Builder, error) {
	// Only a colon opening a path segment is the legacy parameter marker;
	// colons inside query literals or port numbers are plain characters.
	for i := 0; i+1 < len(template); i++ {
		if template[i] != ':' || !isIdentStart(template[i+1]) {
			continue
		}
		if i == 0 || template[i-1] == '/' {
			return nil, fmt.Errorf(
				"path template %q uses the unsupported colon parameter syntax; write {args.%s...} placeholders instead",
				template, string(template[i+1]))
		}
	}

	var segments []segment
	inQuery := false
	rest := template
	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			segments = append(segments, segment{literal: rest})
			break
		}
		if open > 0 {
			lit := rest[:open]
			if strings.ContainsRune(lit, '?') {
				inQuery = true
			}
			segments = append(segments, segment{literal: lit})
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			return nil, fmt.Errorf("path template %q has an unterminated placeholder", template)
		}
		inner := rest[open+1 : open+closing]
		if inner == "" {
			return nil, fmt.Errorf("path template %q has an empty placeholder", template)
		}
		segments = append(segments, segment{path: strings.Split(inner, "."), inQuery: inQuery})
		rest = rest[open+closing+1:]
	}

	tpl := template
	return func(args, exportVars map[string]any) string {
		root := map[string]any{
			"args":       withExports(args, exportVars),
			"exportVars": exportVars,
		}
		var b strings.Builder
		for _, seg := range segments {
			if seg.path == nil {
				b.WriteString(seg.literal)
				continue
			}
			v, ok := lookup(root, seg.path)
			if !ok || v == nil {
				c.warnOnce(tpl, strings.Join(seg.path, "."))
				continue
			}
			if seg.inQuery {
				if m, isMap := v.(map[string]any); isMap {
					b.WriteString(encodeQuery(m, ""))
					continue
				}
				b.WriteString(url.QueryEscape(fmt.Sprint(v)))
				continue
			}
			b.WriteString(fmt.Sprint(v))
		}
		return b.String()
	}, nil
}

// withExports overlays args on top of the export variables, so an exported
// value is addressable as {args.name} unless the call passes its own
// argument of the same name.
func withExports(args, exportVars map[string]any) map[string]any {
	if len(exportVars) == 0 {
		return args
	}
	merged := make(map[string]any, len(args)+len(exportVars))
	for k, v := range exportVars {
		merged[k] = v
	}
	for k, v := range args {
		merged[k] = v
	}
	return merged
}

// lookup descends a dotted path through nested maps.
func lookup(root map[string]any, path []string) (any, bool) {
	var cur any = root
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// encodeQuery serializes a structured value as query parameters, nesting keys
// bracket-style: {a: {b: "c"}} -> "a[b]=c". Keys are emitted sorted.
func encodeQuery(m map[string]any, prefix string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "[" + k + "]"
		}
		switch v := m[k].(type) {
		case map[string]any:
			if enc := encodeQuery(v, name); enc != "" {
				pairs = append(pairs, enc)
			}
		case []any:
			for _, item := range v {
				pairs = append(pairs, escapeQueryName(name)+"[]="+url.QueryEscape(fmt.Sprint(item)))
			}
		default:
			pairs = append(pairs, escapeQueryName(name)+"="+url.QueryEscape(fmt.Sprint(v)))
		}
	}
	return strings.Join(pairs, "&")
}

// escapeQueryName escapes a parameter name while keeping the bracket nesting
// readable.
func escapeQueryName(name string) string {
	escaped := url.QueryEscape(name)
	escaped = strings.ReplaceAll(escaped, "%5B", "[")
	escaped = strings.ReplaceAll(escaped, "%5D", "]")
	return escaped
}

func (c *Cache) warnOnce(template, placeholder string) {
	key := template + "\x00" + placeholder
	if _, loaded := c.warned.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	logrus.WithFields(logrus.Fields{
		"template":    template,
		"placeholder": placeholder,
	}).Warn("path placeholder could not be resolved; substituting empty string")
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
