package backend

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/openfun/richie-sub000/backend/client"
	"github.com/openfun/richie-sub000/backend/dummy"
	"github.com/openfun/richie-sub000/backend/dummy/storage"
	"github.com/openfun/richie-sub000/backend/joanie"
	"github.com/openfun/richie-sub000/backend/openedx"
	"github.com/openfun/richie-sub000/enrollment"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

// Backend families.
const (
	FamilyJoanie          = "joanie"
	FamilyOpenEdXHawthorn = "openedx-hawthorn"
	FamilyOpenEdXDogwood  = "openedx-dogwood"
	FamilyDummy           = "dummy"
)

// DefaultTimeout is the HTTP timeout of backend calls when none is configured.
const DefaultTimeout = 30 * time.Second

var ErrNoDummyStorage = errors.New("dummy backend requires a storage")

// BackendConfig is the configuration of a single backend.
type BackendConfig struct {
	Name   string `yaml:"name"`
	Family string `yaml:"family"`

	// BaseURL is the root of the backend API.
	// Not used by the dummy family.
	BaseURL string `yaml:"base_url"`

	// SelectorRegexp claims resource links for this backend.
	// Prefix is used when it is empty.
	SelectorRegexp string `yaml:"selector_regexp"`
	Prefix         string `yaml:"prefix"`

	// CourseRegexp extracts the backend course identifier from resource links.
	CourseRegexp string `yaml:"course_regexp"`

	Timeout time.Duration `yaml:"timeout"`

	// Latency simulates network delay for the dummy family.
	Latency time.Duration `yaml:"latency"`
}

// Config is an ordered list of backends.
// Order matters: the first backend claiming a resource link wins.
type Config struct {
	Backends []BackendConfig `yaml:"backends"`
}

// LoadConfig decodes a YAML backend configuration.
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := new(Config)
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding backend config: %w", err)
	}
	return cfg, nil
}

// Dependencies are the collaborators needed to build capabilities.
type Dependencies struct {
	// DummyStorage backs every dummy family backend.
	DummyStorage storage.Storage

	// Transport is the HTTP transport of remote backends.
	// http.DefaultTransport is used if nil.
	Transport http.RoundTripper

	// TracerProvider traces remote backend calls.
	// The global tracer provider is used if nil.
	TracerProvider trace.TracerProvider
}

// Build creates a capability for every configured backend and returns a resolver over them.
func (c *Config) Build(deps Dependencies) (*Resolver, error) {
	var descriptors []*Descriptor
	for i, bc := range c.Backends {
		d, err := bc.build(deps)
		if err != nil {
			return nil, fmt.Errorf("backend %d (%s): %w", i, bc.Name, err)
		}
		descriptors = append(descriptors, d)
	}
	return NewResolver(descriptors...)
}

func (bc *BackendConfig) build(deps Dependencies) (*Descriptor, error) {
	d := &Descriptor{
		Name:   bc.Name,
		Family: bc.Family,
		Prefix: bc.Prefix,
	}
	if bc.SelectorRegexp != "" {
		re, err := regexp.Compile(bc.SelectorRegexp)
		if err != nil {
			return nil, fmt.Errorf("compiling selector: %w", err)
		}
		d.Selector = re
	}

	timeout := bc.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clientOpts := []client.Option{client.WithHTTPClient(&http.Client{
		Transport: deps.Transport,
		Timeout:   timeout,
	})}
	if deps.TracerProvider != nil {
		clientOpts = append(clientOpts, client.WithTracerProvider(deps.TracerProvider))
	}

	var capability enrollment.Capability
	var err error
	switch bc.Family {
	case FamilyJoanie:
		capability, err = joanie.New(
			bc.BaseURL,
			joanie.WithCourseRegexp(bc.CourseRegexp),
			joanie.WithClientOptions(clientOpts...),
		)
	case FamilyOpenEdXHawthorn:
		capability, err = openedx.NewHawthorn(
			bc.BaseURL,
			openedx.WithCourseRegexp(bc.CourseRegexp),
			openedx.WithClientOptions(clientOpts...),
		)
	case FamilyOpenEdXDogwood:
		capability, err = openedx.NewDogwood(
			bc.BaseURL,
			openedx.WithCourseRegexp(bc.CourseRegexp),
			openedx.WithClientOptions(clientOpts...),
		)
	case FamilyDummy:
		if deps.DummyStorage == nil {
			return nil, ErrNoDummyStorage
		}
		capability = dummy.New(deps.DummyStorage, dummy.WithLatency(bc.Latency))
	default:
		return nil, fmt.Errorf("unknown backend family: %q", bc.Family)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s backend: %w", bc.Family, err)
	}
	d.Capability = capability
	return d, d.Validate()
}
