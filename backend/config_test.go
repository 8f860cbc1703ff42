package backend

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openfun/richie-sub000/backend/dummy/storage/inmem"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const testConfig = `
backends:
  - name: joanie
    family: joanie
    base_url: https://joanie.test
    selector_regexp: ^https://joanie\.test/.*$
    timeout: 5s
  - name: lms
    family: openedx-hawthorn
    base_url: https://lms.test
    prefix: https://lms.test/
  - name: legacy
    family: openedx-dogwood
    base_url: https://legacy.test
    prefix: https://legacy.test/
  - name: dummy
    family: dummy
    prefix: http://dummy.test/
    latency: 10ms
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(testConfig))
	if err != nil {
		t.Fatal(err)
	}
	if have, want := len(cfg.Backends), 4; have != want {
		t.Fatalf("backends: have %d, want %d", have, want)
	}
	if have, want := cfg.Backends[0].Timeout, 5*time.Second; have != want {
		t.Errorf("timeout: have %v, want %v", have, want)
	}

	r, err := cfg.Build(Dependencies{DummyStorage: inmem.New()})
	if err != nil {
		t.Fatal(err)
	}
	for link, want := range map[string]string{
		"https://joanie.test/course-runs/1/":   "joanie",
		"https://lms.test/courses/x/course":    "lms",
		"https://legacy.test/courses/x/course": "legacy",
		"http://dummy.test/1":                  "dummy",
	} {
		d, ok := r.Resolve(link)
		if !ok || d.Name != want {
			t.Errorf("%s: have %v, want %s", link, d, want)
		}
	}
	if d, _ := r.Resolve("https://legacy.test/courses/x/course"); d.Capability.CanUnenroll() {
		t.Error("dogwood backend should not unenroll")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	if _, err := LoadConfig(strings.NewReader("backends:\n  - nme: typo\n")); err == nil {
		t.Error("expected error for unknown field")
	}

	cfg := &Config{Backends: []BackendConfig{{Name: "d", Family: FamilyDummy, Prefix: "x"}}}
	if _, err := cfg.Build(Dependencies{}); !errors.Is(err, ErrNoDummyStorage) {
		t.Errorf("have %v, want %v", err, ErrNoDummyStorage)
	}

	cfg = &Config{Backends: []BackendConfig{{Name: "x", Family: "moodle", Prefix: "x"}}}
	if _, err := cfg.Build(Dependencies{}); err == nil {
		t.Error("expected error for unknown family")
	}

	cfg = &Config{Backends: []BackendConfig{{Name: "x", Family: FamilyJoanie, BaseURL: "/relative", Prefix: "x"}}}
	if _, err := cfg.Build(Dependencies{}); err == nil {
		t.Error("expected error for relative base URL")
	}
}

// countingTracerProvider counts the tracers handed out.
type countingTracerProvider struct {
	noop.TracerProvider
	mu    sync.Mutex
	names []string
}

func (tp *countingTracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.names = append(tp.names, name)
	return tp.TracerProvider.Tracer(name, opts...)
}

func TestBuildTracerProvider(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(testConfig))
	if err != nil {
		t.Fatal(err)
	}
	tp := new(countingTracerProvider)
	if _, err = cfg.Build(Dependencies{DummyStorage: inmem.New(), TracerProvider: tp}); err != nil {
		t.Fatal(err)
	}
	// one client per remote backend
	if have, want := len(tp.names), 3; have != want {
		t.Errorf("tracers: have %d (%v), want %d", have, tp.names, want)
	}
}
