package restrt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	jsonapi "github.com/restgraph/restgraph/internal/jsonapi"
	language "github.com/restgraph/restgraph/internal/language"
	normalize "github.com/restgraph/restgraph/internal/normalize"
)

// Runtime is the directed multi-fetch resolver. One Runtime serves many
// concurrent Resolve calls; all walk state is request-scoped.
type Runtime struct {
	opt Options
}

// Resolve walks the operation's selection tree, issuing one upstream request
// per @rest field, and returns the merged response tree. Configuration
// errors (unknown operation, unsupported verbs, bad templates, unknown
// endpoints) return a synchronous error before any request is issued.
// Per-branch failures accumulate on Result.Errors; data already resolved in
// other branches is kept.
func (r *Runtime) Resolve(ctx context.Context, doc *language.QueryDocument, operationName string, variables map[string]any, initial map[string]any) (*Result, error) {
	op := getOperation(doc, operationName)
	if op == nil {
		return nil, configErrorf("operation %q not found", operationName)
	}
	if op.Operation == language.Subscription {
		return nil, configErrorf("subscription operations are not supported")
	}
	if variables == nil {
		variables = map[string]any{}
	}
	if err := r.validateSelectionSet(doc, op.SelectionSet, op.Operation, variables, map[string]bool{}); err != nil {
		return nil, err
	}

	state := &walkState{rt: r, doc: doc, variables: variables}

	// Untagged data handed in from a preceding resolution pass is merged, not
	// discarded. The walk patches and relabels in place, so it starts from a
	// deep copy and the caller's value stays untouched.
	data := jsonapi.DeepCopy(initial).(map[string]any)
	patchSelection(doc, op.SelectionSet, data)
	state.dispatch(ctx, op.SelectionSet, data, map[string]any{}, Path{})

	return &Result{Data: data, Errors: state.errors, Responses: state.responses, Calls: state.calls}, nil
}

// Validate runs the pre-request configuration checks for one operation
// without resolving anything.
func (r *Runtime) Validate(doc *language.QueryDocument, op *language.OperationDefinition) error {
	if op.Operation == language.Subscription {
		return configErrorf("subscription operations are not supported")
	}
	return r.validateSelectionSet(doc, op.SelectionSet, op.Operation, map[string]any{}, map[string]bool{})
}

// validateSelectionSet fails fast on every configuration problem reachable
// from the operation, before the walk issues its first request.
func (r *Runtime) validateSelectionSet(doc *language.QueryDocument, sel language.SelectionSet, op language.Operation, variables map[string]any, visited map[string]bool) error {
	for _, selection := range sel {
		switch s := selection.(type) {
		case *language.Field:
			nd, err := classify(s, variables)
			if err != nil {
				return err
			}
			if nd.kind == kindFetch {
				if err := validateMethod(op, nd.fetch.Method); err != nil {
					return err
				}
				if _, ok := r.baseURL(nd.fetch.Endpoint); !ok {
					return configErrorf("field %q: endpoint %q is not configured", s.Name, nd.fetch.Endpoint)
				}
				if _, ok := r.serializer(nd.fetch.BodySerializer); !ok {
					return configErrorf("field %q: body serializer %q is not configured", s.Name, nd.fetch.BodySerializer)
				}
				if _, err := r.opt.PathCache.Compile(nd.fetch.Path); err != nil {
					return &ConfigError{Reason: err.Error()}
				}
			}
			if err := r.validateSelectionSet(doc, s.SelectionSet, op, variables, visited); err != nil {
				return err
			}
		case *language.InlineFragment:
			if err := r.validateSelectionSet(doc, s.SelectionSet, op, variables, visited); err != nil {
				return err
			}
		case *language.FragmentSpread:
			if visited[s.Name] {
				continue
			}
			visited[s.Name] = true
			if def := doc.Fragments.ForName(s.Name); def != nil {
				if err := r.validateSelectionSet(doc, def.SelectionSet, op, variables, visited); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// walkState is the request-scoped context threading through one walk. The
// error and response lists are append-only under mu; concurrent sibling
// branches never share export-variable maps.
type walkState struct {
	rt        *Runtime
	doc       *language.QueryDocument
	variables map[string]any

	mu        sync.Mutex
	errors    []Error
	responses []Response
	calls     int
}

func (s *walkState) addError(message string, path Path, extensions map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, Error{Message: message, Path: path, Extensions: extensions})
}

// dispatch walks value against sel, resolving directive-tagged fields.
// Sibling fetch fields of one object fan out to goroutines; their results
// land at the originating field's position regardless of completion order.
func (s *walkState) dispatch(ctx context.Context, sel language.SelectionSet, value any, vars map[string]any, path Path) {
	switch val := value.(type) {
	case []any:
		for i, item := range val {
			s.dispatch(ctx, sel, item, vars, appendPath(path, i))
		}
	case map[string]any:
		fields := collectNodeFields(s.doc, sel, typeTagOf(val))

		// Exports declared on this node's children become visible to every
		// descendant's path construction, on a fresh per-branch copy.
		branch := copyVars(vars)
		for _, f := range fields {
			if as := exportAs(f, s.variables); as != "" {
				branch[as] = val[responseName(f)]
			}
		}

		type fetchJob struct {
			field  *language.Field
			fd     *fetchDirective
			key    string
			result any
		}
		var jobs []*fetchJob
		for _, f := range fields {
			nd, err := classify(f, s.variables)
			if err != nil {
				// Pre-validation already rejected these.
				continue
			}
			key := responseName(f)
			switch nd.kind {
			case kindFetch:
				jobs = append(jobs, &fetchJob{field: f, fd: nd.fetch, key: key})
			case kindRelabel:
				val[key] = relabelValue(val[key], nd.relabelType)
				s.dispatch(ctx, f.SelectionSet, val[key], branch, appendPath(path, key))
			default:
				if len(f.SelectionSet) > 0 {
					s.dispatch(ctx, f.SelectionSet, val[key], branch, appendPath(path, key))
				}
			}
		}

		switch len(jobs) {
		case 0:
		case 1:
			j := jobs[0]
			val[j.key] = s.fetchField(ctx, j.field, j.fd, copyVars(branch), appendPath(path, j.key))
		default:
			var wg sync.WaitGroup
			wg.Add(len(jobs))
			for _, j := range jobs {
				go func(j *fetchJob) {
					defer wg.Done()
					j.result = s.fetchField(ctx, j.field, j.fd, copyVars(branch), appendPath(path, j.key))
				}(j)
			}
			wg.Wait()
			for _, j := range jobs {
				val[j.key] = j.result
			}
		}
	}
}

// fetchField processes one @rest field: builds the request, executes it,
// shapes the response through the jsonapi pipeline, null-patches the result
// against the field's selection set and descends into directive-tagged
// children with the captured export variables.
func (s *walkState) fetchField(ctx context.Context, field *language.Field, fd *fetchDirective, vars map[string]any, path Path) any {
	if ctx.Err() != nil {
		// Cancelled: stop issuing requests.
		return nil
	}

	args := s.argumentValues(field)
	builder, err := s.rt.opt.PathCache.Compile(fd.Path)
	if err != nil {
		s.addError(err.Error(), path, nil)
		return nil
	}
	base, _ := s.rt.baseURL(fd.Endpoint)
	reqURL := base + builder(args, vars)

	header := http.Header{}
	for k, v := range s.rt.opt.Headers {
		header[k] = append([]string(nil), v...)
	}
	for k, v := range headersFromContext(ctx) {
		header[k] = append([]string(nil), v...)
	}

	var body []byte
	if methodHasBody(fd.Method) {
		if input, ok := args[fd.BodyKey]; ok && input != nil {
			payload := normalize.FieldNames(input, s.rt.opt.FieldNameDenormalizer)
			ser, _ := s.rt.serializer(fd.BodySerializer)
			body, err = ser(payload, header)
			if err != nil {
				s.addError(fmt.Sprintf("serializing request body: %v", err), path, nil)
				return nil
			}
		}
	}

	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	resp, err := s.rt.opt.Transport.Do(ctx, &Request{
		Method:      fd.Method,
		URL:         reqURL,
		Header:      header,
		Body:        body,
		Credentials: s.rt.opt.Credentials,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// The abort signal is swallowed; no observers fire for it.
			return nil
		}
		s.addError(err.Error(), path, nil)
		return nil
	}
	if ctx.Err() != nil {
		// The result arrived after cancellation: discard, never deliver.
		return nil
	}

	s.mu.Lock()
	s.responses = append(s.responses, resp)
	s.mu.Unlock()

	var shaped any
	status := resp.StatusCode()
	switch {
	case status == http.StatusNotFound:
		// An absent resource, not an error.
		return nil
	case status >= 200 && status < 300:
		if resp.DeclaredEmpty() {
			shaped = map[string]any{}
		} else {
			parsed, perr := resp.JSON()
			if perr != nil {
				s.addError(fmt.Sprintf("decoding response body: %v", perr), path, nil)
				return nil
			}
			if docMap, ok := parsed.(map[string]any); ok {
				shaped = jsonapi.ApplyToDocument(docMap, s.rt.opt.TypeName, s.rt.opt.PreserveFullResponse)
			} else {
				shaped = parsed
			}
		}
	default:
		herr := newHTTPError(resp)
		s.addError(herr.Error(), path, map[string]any{"status": herr.Status, "body": herr.Body})
		return nil
	}

	shaped = normalize.FieldNames(shaped, s.rt.opt.FieldNameNormalizer)
	if fd.TypeName != "" {
		shaped = relabelValue(shaped, fd.TypeName)
	}
	shaped = patchSelection(s.doc, field.SelectionSet, shaped)
	s.dispatch(ctx, field.SelectionSet, shaped, vars, path)
	return shaped
}

func (s *walkState) argumentValues(field *language.Field) map[string]any {
	out := make(map[string]any, len(field.Arguments))
	for _, arg := range field.Arguments {
		v, err := arg.Value.Value(s.variables)
		if err != nil {
			continue
		}
		out[arg.Name] = v
	}
	return out
}

// relabelValue rewrites the type tag of a value, element-wise for arrays.
func relabelValue(v any, name string) any {
	switch val := v.(type) {
	case map[string]any:
		val[normalize.TypeNameKey] = name
	case []any:
		for _, item := range val {
			relabelValue(item, name)
		}
	}
	return v
}

func copyVars(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

func appendPath(path Path, elem any) Path {
	next := make(Path, len(path)+1)
	copy(next, path)
	next[len(path)] = elem
	return next
}

func getOperation(doc *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return doc.Operations.ForName(operationName)
}
