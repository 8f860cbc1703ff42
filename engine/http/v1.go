package http

import (
	"net/http"

	"github.com/openfun/richie-sub000/backend"
	"github.com/openfun/richie-sub000/engine"

	"github.com/micromdm/nanolib/log"
)

// Mux can register HTTP handlers.
// Ostensibly this supports flow router.
type Mux interface {
	// Handle registers the handler for the given pattern.
	Handle(pattern string, handler http.Handler, methods ...string)
}

// APIEngine runs enrollments and exposes its backend resolver.
type APIEngine interface {
	Runner
	Resolver() *backend.Resolver
}

// HandleAPIv1 registers the various API handlers into mux.
// API endpoint paths are prepended with prefix.
// Authentication or any other layered handlers are not present.
// They are assumed to be layered with mux, possibly at the Handle call.
// The logger is adorned with a "handler" key of the endpoint name.
func HandleAPIv1(prefix string, mux Mux, logger log.Logger, e APIEngine) {
	// enrollment

	mux.Handle(
		prefix+"/enrollment/state",
		EnrollmentHandler(e, "", logger.With("handler", "enrollment state")),
		"POST",
	)
	mux.Handle(
		prefix+"/enrollment/enroll",
		EnrollmentHandler(e, engine.ControlEnroll, logger.With("handler", "enroll")),
		"POST",
	)
	mux.Handle(
		prefix+"/enrollment/unenroll",
		EnrollmentHandler(e, engine.ControlUnenroll, logger.With("handler", "unenroll")),
		"POST",
	)

	// backends

	mux.Handle(
		prefix+"/backends",
		BackendsHandler(e.Resolver(), logger.With("handler", "list backends")),
		"GET",
	)
	mux.Handle(
		prefix+"/resolve",
		ResolveHandler(e.Resolver(), logger.With("handler", "resolve backend")),
		"GET",
	)
}
