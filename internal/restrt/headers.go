package restrt

import (
	"context"
	"net/http"
)

type headersKey struct{}

// WithHeaders returns a context carrying per-request headers. They are merged
// over the runtime's static headers on every upstream call of the walk, with
// the context values winning.
func WithHeaders(ctx context.Context, h http.Header) context.Context {
	if len(h) == 0 {
		return ctx
	}
	return context.WithValue(ctx, headersKey{}, h)
}

func headersFromContext(ctx context.Context) http.Header {
	h, _ := ctx.Value(headersKey{}).(http.Header)
	return h
}
