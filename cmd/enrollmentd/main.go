// Package main starts an enrollment server.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/openfun/richie-sub000/backend"
	"github.com/openfun/richie-sub000/engine"
	enginehttp "github.com/openfun/richie-sub000/engine/http"
	enrhttp "github.com/openfun/richie-sub000/http"
	"github.com/openfun/richie-sub000/internal/storageflag"
	"github.com/openfun/richie-sub000/logkeys"
	"github.com/openfun/richie-sub000/session"
	"github.com/openfun/richie-sub000/session/jwt"

	"github.com/alexedwards/flow"
	"github.com/micromdm/nanolib/envflag"
	nanohttp "github.com/micromdm/nanolib/http"
	"github.com/micromdm/nanolib/http/trace"
	"github.com/micromdm/nanolib/log/stdlogfmt"
	"go.opentelemetry.io/otel"
)

// overridden by -ldflags -X
var version = "unknown"

const (
	apiUsername = "enrollmentd"
	apiRealm    = "enrollmentd"
)

func main() {
	var (
		flDebug    = flag.Bool("debug", false, "log debug messages")
		flListen   = flag.String("listen", ":9004", "HTTP listen address")
		flVersion  = flag.Bool("version", false, "print version and exit")
		flDump     = flag.Bool("dump", false, "dump API requests")
		flAPIKey   = flag.String("api", "", "API key for API endpoints")
		flBackends = flag.String("backends", "", "path to backends YAML config (default: a catch-all dummy backend)")
		flStorage  = flag.String("storage", "file", storageflag.Usage)
		flDSN      = flag.String("storage-dsn", "", "data source name (e.g. connection string or path)")
		flJWTKey   = flag.String("jwt-key", "", "HMAC key of session tokens (anonymous sessions if empty)")
		flJWTIss   = flag.String("jwt-issuer", "", "required issuer of session tokens")
		flLoginURL = flag.String("login-url", "", "URL of the login page")
		flActSec   = flag.Uint("action-timeout", uint(engine.DefaultActionTimeout/time.Second), "enroll and unenroll timeout in seconds")
		flFetchSec = flag.Uint("fetch-timeout", 0, "enrollment fetch timeout in seconds")
	)
	envflag.Parse("ENROLLMENTD_", []string{"version"})

	if *flVersion {
		fmt.Println(version)
		return
	}

	logger := stdlogfmt.New(stdlogfmt.WithDebugFlag(*flDebug))

	// configure storage
	store, closeStorage, err := storageflag.Parse(*flStorage, *flDSN)
	if err != nil {
		logger.Info(logkeys.Message, "parse storage", logkeys.Error, err)
		os.Exit(1)
	}
	defer closeStorage()

	// configure backends
	cfg, err := loadBackends(*flBackends)
	if err != nil {
		logger.Info(logkeys.Message, "loading backends", logkeys.Error, err)
		os.Exit(1)
	}
	resolver, err := cfg.Build(backend.Dependencies{
		DummyStorage:   store,
		TracerProvider: otel.GetTracerProvider(),
	})
	if err != nil {
		logger.Info(logkeys.Message, "building backends", logkeys.Error, err)
		os.Exit(1)
	}
	logger.Debug(logkeys.Message, "configured backends", logkeys.GenericCount, len(resolver.Descriptors()))

	// configure sessions
	var provider session.Provider = session.NewStatic(nil)
	if *flJWTKey != "" {
		provider, err = jwt.New(
			[]byte(*flJWTKey),
			jwt.WithIssuer(*flJWTIss),
			jwt.WithLoginURL(*flLoginURL),
			jwt.WithLogger(logger.With("service", "session")),
		)
		if err != nil {
			logger.Info(logkeys.Message, "creating session provider", logkeys.Error, err)
			os.Exit(1)
		}
	} else {
		logger.Info(logkeys.Message, "no JWT key: every visitor is anonymous")
	}

	e := engine.New(
		resolver,
		provider,
		engine.WithEngineLogger(logger.With("service", "engine")),
		engine.WithTimeouts(
			time.Second*time.Duration(*flActSec),
			time.Second*time.Duration(*flFetchSec),
		),
	)

	mux := flow.New()

	mux.Handle("/version", nanohttp.NewJSONVersionHandler(version))

	mux.Group(func(mux *flow.Mux) {
		if *flAPIKey != "" {
			mux.Use(func(h http.Handler) http.Handler {
				return nanohttp.NewSimpleBasicAuthHandler(h, apiUsername, *flAPIKey, apiRealm)
			})
		}
		mux.Use(jwt.Middleware)
		if *flDump {
			mux.Use(func(h http.Handler) http.Handler {
				return enrhttp.DumpHandler(h, os.Stdout)
			})
		}

		enginehttp.HandleAPIv1("/v1", mux, logger, e)
	})

	logger.Info(logkeys.Message, "starting server", "listen", *flListen)
	err = http.ListenAndServe(*flListen, trace.NewTraceLoggingHandler(mux, logger.With("handler", "log"), newTraceID))
	logs := []interface{}{logkeys.Message, "server shutdown"}
	if err != nil {
		logs = append(logs, logkeys.Error, err)
	}
	logger.Info(logs...)
}

// loadBackends reads the backend configuration at path.
// An empty path configures a single dummy backend claiming every resource link.
func loadBackends(path string) (*backend.Config, error) {
	if path == "" {
		return &backend.Config{Backends: []backend.BackendConfig{{
			Name:           "dummy",
			Family:         backend.FamilyDummy,
			SelectorRegexp: ".*",
		}}}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return backend.LoadConfig(f)
}

// newTraceID generates a new HTTP trace ID for context logging.
func newTraceID(_ *http.Request) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
