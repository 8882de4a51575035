// Package httptp is the production HTTP transport behind the REST runtime:
// a pooled net/http client with deadline propagation and call events.
package httptp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	eventbus "github.com/restgraph/restgraph/internal/eventbus"
	events "github.com/restgraph/restgraph/internal/events"
	restrt "github.com/restgraph/restgraph/internal/restrt"
)

type Transport struct {
	opts   *Options
	client *http.Client
	closed atomic.Bool
}

func New(opts ...Option) *Transport {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	client := o.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: o.MaxIdleConnsPerHost,
			},
		}
	}
	return &Transport{opts: o, client: client}
}

// Ensure we satisfy restrt.Transport
var _ restrt.Transport = (*Transport)(nil)

func (t *Transport) Do(ctx context.Context, req *restrt.Request) (restrt.Response, error) {
	if t.closed.Load() {
		return nil, fmt.Errorf("httptp: closed")
	}

	if _, ok := ctx.Deadline(); !ok && t.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.CallTimeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}
	for k, v := range t.opts.DefaultHeaders {
		if httpReq.Header.Get(k) == "" {
			httpReq.Header[k] = v
		}
	}

	// Credentials policy: "omit" sends the call anonymously, dropping any
	// cookie or authorization header that the merge above produced. Every
	// other value sends credentials as-is.
	if req.Credentials == "omit" {
		httpReq.Header.Del("Authorization")
		httpReq.Header.Del("Cookie")
	}

	host := req.URL
	if u, uerr := url.Parse(req.URL); uerr == nil {
		host = u.Host
	}

	start := time.Now()
	eventbus.Publish(ctx, events.RESTCallStart{Method: req.Method, URL: req.URL, Endpoint: host})
	httpResp, err := t.client.Do(httpReq)
	finish := events.RESTCallFinish{
		Method:   req.Method,
		URL:      req.URL,
		Endpoint: host,
		Err:      err,
		Duration: time.Since(start),
	}
	if err != nil {
		eventbus.Publish(ctx, finish)
		return nil, err
	}
	defer httpResp.Body.Close()
	finish.Status = httpResp.StatusCode
	eventbus.Publish(ctx, finish)

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	return restrt.NewBufferedResponse(httpResp.StatusCode, httpResp.Header, raw), nil
}

// Close releases pooled connections. Calls after Close fail.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.client.CloseIdleConnections()
	return nil
}
