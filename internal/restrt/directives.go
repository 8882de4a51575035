package restrt

import (
	"strings"

	language "github.com/restgraph/restgraph/internal/language"
)

// nodeKind is the per-field behavior, resolved once from the attached
// directives before any recursion.
type nodeKind int

const (
	// kindPassthrough carries the field's existing value through unchanged.
	kindPassthrough nodeKind = iota
	// kindRelabel rewrites the value's type tag without issuing a request.
	kindRelabel
	// kindFetch issues one upstream request for the field.
	kindFetch
)

// fetchDirective is the parsed @rest(...) annotation.
type fetchDirective struct {
	// Path is the request path template ({args.x} placeholder syntax).
	Path string
	// Method is the upper-cased HTTP verb. Defaults to GET.
	Method string
	// Endpoint selects a configured base URL; empty means the default URI.
	Endpoint string
	// TypeName, when set, overrides the type tag of the fetched result.
	TypeName string
	// BodyKey names the call argument serialized as the request body.
	// Defaults to "input".
	BodyKey string
	// BodySerializer selects a named serializer from the runtime options.
	BodySerializer string
}

type nodeDirectives struct {
	kind        nodeKind
	fetch       *fetchDirective
	relabelType string
}

// classify inspects a field's directives and resolves its node kind.
// Conflicting annotations are a configuration error.
func classify(field *language.Field, variables map[string]any) (nodeDirectives, error) {
	rest := field.Directives.ForName("rest")
	relabel := field.Directives.ForName("type")

	if rest != nil && relabel != nil {
		return nodeDirectives{}, configErrorf("field %q carries both @rest and @type; pick one", field.Name)
	}

	if rest != nil {
		args := directiveArgs(rest, variables)
		fd := &fetchDirective{
			Path:           stringArg(args, "path"),
			Method:         strings.ToUpper(stringArg(args, "method")),
			Endpoint:       stringArg(args, "endpoint"),
			TypeName:       stringArg(args, "type"),
			BodyKey:        stringArg(args, "bodyKey"),
			BodySerializer: stringArg(args, "bodySerializer"),
		}
		if fd.Path == "" {
			return nodeDirectives{}, configErrorf("field %q: @rest requires a path argument", field.Name)
		}
		if fd.Method == "" {
			fd.Method = "GET"
		}
		if fd.BodyKey == "" {
			fd.BodyKey = "input"
		}
		return nodeDirectives{kind: kindFetch, fetch: fd}, nil
	}

	if relabel != nil {
		args := directiveArgs(relabel, variables)
		name := stringArg(args, "name")
		if name == "" {
			return nodeDirectives{}, configErrorf("field %q: @type requires a name argument", field.Name)
		}
		return nodeDirectives{kind: kindRelabel, relabelType: name}, nil
	}

	return nodeDirectives{kind: kindPassthrough}, nil
}

// exportAs returns the @export(as:) name declared on a field, or "".
func exportAs(field *language.Field, variables map[string]any) string {
	d := field.Directives.ForName("export")
	if d == nil {
		return ""
	}
	return stringArg(directiveArgs(d, variables), "as")
}

func directiveArgs(d *language.Directive, variables map[string]any) map[string]any {
	out := make(map[string]any, len(d.Arguments))
	for _, arg := range d.Arguments {
		v, err := arg.Value.Value(variables)
		if err != nil {
			continue
		}
		out[arg.Name] = v
	}
	return out
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// Verb sets allowed per operation kind. A read-only operation may only use
// safe verbs; a mutation may use any of the fixed allowed set.
var (
	queryVerbs    = map[string]bool{"GET": true, "HEAD": true}
	mutationVerbs = map[string]bool{"GET": true, "HEAD": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true}
)

func validateMethod(op language.Operation, method string) error {
	switch op {
	case language.Query:
		if !queryVerbs[method] {
			return configErrorf("verb %s is not allowed in a query operation; use a mutation", method)
		}
	case language.Mutation:
		if !mutationVerbs[method] {
			return configErrorf("verb %s is not a supported HTTP method", method)
		}
	default:
		return configErrorf("operation kind %q is not supported", string(op))
	}
	return nil
}

// methodHasBody reports whether a verb carries a request body. GET, HEAD and
// DELETE never do.
func methodHasBody(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}
