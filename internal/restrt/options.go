package restrt

import (
	"encoding/json"
	"net/http"

	normalize "github.com/restgraph/restgraph/internal/normalize"
	pathtpl "github.com/restgraph/restgraph/internal/pathtpl"
)

// BodySerializer turns a request body value into wire bytes. It may set
// headers (e.g. Content-Type) on the provided header map.
type BodySerializer func(body any, header http.Header) ([]byte, error)

// JSONSerializer is the default body serializer.
func JSONSerializer(body any, header http.Header) ([]byte, error) {
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}
	return json.Marshal(body)
}

// Options configures a Runtime.
//
// URI is the default endpoint base URL; Endpoints maps @rest(endpoint:) keys
// to alternative bases. At least one of the two must be set.
//
// Headers and Credentials are opaque inputs forwarded to the transport on
// every request; the runtime computes neither.
type Options struct {
	URI       string
	Endpoints map[string]string

	Transport Transport

	Headers     http.Header
	Credentials string

	// FieldNameNormalizer rewrites response keys to the query layer's casing.
	FieldNameNormalizer normalize.FieldConverter
	// FieldNameDenormalizer rewrites request body keys to the API's casing.
	FieldNameDenormalizer normalize.FieldConverter
	// TypeName maps raw resource types to exposed type names.
	TypeName normalize.TypeName

	// BodySerializers resolves @rest(bodySerializer:) names. Default is
	// JSONSerializer for unnamed use.
	BodySerializers       map[string]BodySerializer
	DefaultBodySerializer BodySerializer

	// PathCache holds compiled path templates. One cache per process is the
	// intended lifetime; a nil cache gets a private one.
	PathCache *pathtpl.Cache

	// PreserveFullResponse switches every fetched document to the
	// {graphql, jsonapi} side-channel shape.
	PreserveFullResponse bool
}

// New validates opt and builds a Runtime. All configuration problems surface
// here or during operation pre-validation, never mid-walk.
func New(opt Options) (*Runtime, error) {
	if opt.Transport == nil {
		return nil, configErrorf("a Transport is required")
	}
	if opt.URI == "" && len(opt.Endpoints) == 0 {
		return nil, configErrorf("either URI or Endpoints must be configured")
	}
	if opt.TypeName == nil {
		opt.TypeName = normalize.Identity
	}
	if opt.DefaultBodySerializer == nil {
		opt.DefaultBodySerializer = JSONSerializer
	}
	if opt.PathCache == nil {
		opt.PathCache = pathtpl.NewCache()
	}
	return &Runtime{opt: opt}, nil
}

// baseURL resolves the base for an endpoint key. Returns "" when the key is
// unknown; pre-validation guarantees that never happens mid-walk.
func (r *Runtime) baseURL(endpoint string) (string, bool) {
	if endpoint == "" {
		if r.opt.URI != "" {
			return r.opt.URI, true
		}
		return "", false
	}
	base, ok := r.opt.Endpoints[endpoint]
	return base, ok
}

func (r *Runtime) serializer(name string) (BodySerializer, bool) {
	if name == "" {
		return r.opt.DefaultBodySerializer, true
	}
	s, ok := r.opt.BodySerializers[name]
	return s, ok
}
