package httptp

import (
	"net/http"
	"time"
)

// Options configures the HTTP transport behavior.
//
// Defaults:
// - CallTimeout:         10s (used only if incoming context has no deadline)
// - MaxIdleConnsPerHost: 8
//
// DefaultHeaders are applied to every request unless the runtime already set
// the header. All options are safe to leave zero-valued to use defaults.
type Options struct {
	CallTimeout         time.Duration
	MaxIdleConnsPerHost int
	DefaultHeaders      http.Header

	// Client overrides the underlying *http.Client entirely; the pooling
	// options above are then ignored.
	Client *http.Client
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		CallTimeout:         10 * time.Second,
		MaxIdleConnsPerHost: 8,
	}
}

func WithCallTimeout(d time.Duration) Option { return func(o *Options) { o.CallTimeout = d } }
func WithMaxIdleConnsPerHost(n int) Option   { return func(o *Options) { o.MaxIdleConnsPerHost = n } }
func WithDefaultHeaders(h http.Header) Option {
	return func(o *Options) { o.DefaultHeaders = h }
}
func WithClient(c *http.Client) Option { return func(o *Options) { o.Client = c } }
