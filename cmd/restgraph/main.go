package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/restgraph/restgraph/internal/eventbus"
	"github.com/restgraph/restgraph/internal/httptp"
	"github.com/restgraph/restgraph/internal/language"
	"github.com/restgraph/restgraph/internal/logging"
	"github.com/restgraph/restgraph/internal/normalize"
	"github.com/restgraph/restgraph/internal/otel"
	"github.com/restgraph/restgraph/internal/restrt"
	"github.com/restgraph/restgraph/internal/server"
)

const rootUsage = `restgraph — GraphQL gateway for JSON:API REST backends

USAGE:
  restgraph <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL gateway backed by REST endpoints
  check            Validate the @rest directives of a query file
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -api.uri <url>                  Default REST base URL (required unless -api.endpoint)
  -api.endpoint <name=url>        Map an @rest(endpoint:) key to a base URL. Repeatable
  -api.timeout <duration>         Upstream call timeout, e.g. 10s (default: 10s)
  -api.header <Name: value>       Static header sent on every upstream call. Repeatable
  -api.camelcase <bool>           Convert response keys to camelCase (default: true)
  -api.full-response              Preserve the nested document beside the flat shape
  -server.addr <addr>             HTTP listen address (default: :8080)
  -server.pretty                  Pretty-print JSON responses
  -server.timeout <duration>      Per-request timeout, e.g. 10s (default: 10s)
  -server.forward-header <name>   Forward HTTP header to upstream calls. Repeatable
  -log.level <level>              Log level (default: info)
  -log.format <text|json>         Log format (default: text)
  -otel.endpoint <addr>           OTLP collector endpoint
  -otel.service <name>            OpenTelemetry service name (default: restgraph)
`

const checkUsage = `check FLAGS:
  -query <file>                   GraphQL query file to validate (required)
  -api.uri <url>                  Default REST base URL
  -api.endpoint <name=url>        Map an @rest(endpoint:) key to a base URL. Repeatable
  (Validation exits non-zero on configuration errors)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		logrus.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("restgraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "check":
		return cmdCheck(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "check":
		fmt.Print(checkUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type endpointFlag struct {
	m map[string]string
}

func (e *endpointFlag) String() string { return "" }

func (e *endpointFlag) Set(v string) error {
	parts := strings.SplitN(v, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid endpoint %q", v)
	}
	name := strings.TrimSpace(parts[0])
	base := strings.TrimSpace(parts[1])
	if name == "" || base == "" {
		return fmt.Errorf("invalid endpoint %q", v)
	}
	if e.m == nil {
		e.m = map[string]string{}
	}
	e.m[name] = base
	return nil
}

type headerFlag struct {
	h http.Header
}

func (f *headerFlag) String() string { return "" }

func (f *headerFlag) Set(v string) error {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid header %q, expected 'Name: value'", v)
	}
	if f.h == nil {
		f.h = http.Header{}
	}
	f.h.Add(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdServe(args []string) error {
	uri := ""
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	apiTimeout := 10 * time.Second
	camelCase := true
	fullResponse := false
	logLevel := "info"
	logFormat := "text"
	otelEndpoint := ""
	otelService := "restgraph"
	var endpoints endpointFlag
	var headers headerFlag
	var forwardHeaders stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&uri, "api.uri", uri, "Default REST base URL")
	fs.Var(&endpoints, "api.endpoint", "Map endpoint key to base URL")
	fs.DurationVar(&apiTimeout, "api.timeout", apiTimeout, "Upstream call timeout")
	fs.Var(&headers, "api.header", "Static upstream header")
	fs.BoolVar(&camelCase, "api.camelcase", camelCase, "Convert response keys to camelCase")
	fs.BoolVar(&fullResponse, "api.full-response", fullResponse, "Preserve the nested document")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Var(&forwardHeaders, "server.forward-header", "Forward HTTP header to upstream calls")
	fs.StringVar(&logLevel, "log.level", logLevel, "Log level")
	fs.StringVar(&logFormat, "log.format", logFormat, "Log format")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if uri == "" && len(endpoints.m) == 0 {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-api.uri or at least one -api.endpoint is required")
	}

	eventbus.Use(eventbus.New())
	if err := logging.Setup(logLevel, logFormat); err != nil {
		return fmt.Errorf("logging setup: %w", err)
	}
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	transport := httptp.New(httptp.WithCallTimeout(apiTimeout))
	defer transport.Close()

	opt := restrt.Options{
		URI:       uri,
		Endpoints: endpoints.m,
		Transport: transport,
		Headers:   headers.h,

		FieldNameDenormalizer: normalize.SnakeCase,
		PreserveFullResponse:  fullResponse,
	}
	if camelCase {
		opt.FieldNameNormalizer = normalize.CamelCase
	}
	rt, err := restrt.New(opt)
	if err != nil {
		return fmt.Errorf("runtime init: %w", err)
	}

	sopts := []server.Option{}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	if len(forwardHeaders) > 0 {
		sopts = append(sopts, server.WithForwardHeaders(forwardHeaders...))
	}
	h, err := server.New(rt, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	logrus.WithField("addr", addr).Info("GraphQL gateway listening")
	return http.ListenAndServe(addr, mux)
}

// cmdCheck runs directive pre-validation against a query file without
// issuing any request, so broken templates and verbs fail in CI rather than
// at runtime.
func cmdCheck(args []string) error {
	queryFile := ""
	uri := ""
	var endpoints endpointFlag

	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&queryFile, "query", queryFile, "GraphQL query file")
	fs.StringVar(&uri, "api.uri", uri, "Default REST base URL")
	fs.Var(&endpoints, "api.endpoint", "Map endpoint key to base URL")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkUsage)
		return err
	}
	if queryFile == "" {
		fmt.Fprint(os.Stderr, checkUsage)
		return fmt.Errorf("-query is required")
	}
	if uri == "" {
		uri = "http://localhost"
	}

	src, err := os.ReadFile(queryFile)
	if err != nil {
		return err
	}
	doc, err := language.ParseQuery(string(src))
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}

	rt, err := restrt.New(restrt.Options{
		URI:       uri,
		Endpoints: endpoints.m,
		Transport: restrt.NewMockTransport(),
	})
	if err != nil {
		return err
	}
	for _, op := range doc.Operations {
		if err := rt.Validate(doc, op); err != nil {
			return fmt.Errorf("operation %q: %w", op.Name, err)
		}
	}
	fmt.Printf("%s: ok\n", queryFile)
	return nil
}
