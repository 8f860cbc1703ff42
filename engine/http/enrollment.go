// Package http contains HTTP handlers that work with the enrollment engine.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/openfun/richie-sub000/backend"
	"github.com/openfun/richie-sub000/engine"
	"github.com/openfun/richie-sub000/enrollment"
	enrhttp "github.com/openfun/richie-sub000/http"
	"github.com/openfun/richie-sub000/http/api"
	"github.com/openfun/richie-sub000/logkeys"

	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

var (
	ErrNoEngine       = errors.New("missing enrollment engine")
	ErrNoResourceLink = errors.New("missing resource link")
)

// Runner runs enrollment actions for course runs.
type Runner interface {
	Run(ctx context.Context, courseRun enrollment.CourseRun, control engine.Control, opts ...engine.MachineOption) (*engine.Result, error)
	LoginURL(next string) string
}

type enrollmentResponse struct {
	*engine.Result
	LoginURL string `json:"login_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// statusCode maps engine errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, enrhttp.ErrEmptyBody), errors.Is(err, ErrNoResourceLink):
		return http.StatusBadRequest
	case errors.Is(err, enrollment.ErrNoBackend):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNotOffered):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// EnrollmentHandler creates a HandlerFunc that loads the enrollment of
// the current user in the course run of the request body and applies control.
// An empty control only reports the state.
// Failed actions are reported in the response body with an OK status.
func EnrollmentHandler(runner Runner, control engine.Control, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		if runner == nil {
			logger.Info(logkeys.Message, "enrollment", logkeys.Error, ErrNoEngine)
			api.JSONError(w, ErrNoEngine, 0)
			return
		}

		var cr enrollment.CourseRun
		if err := enrhttp.DecodeJSON(r, &cr); err != nil {
			logger.Info(logkeys.Message, "decoding course run", logkeys.Error, err)
			api.JSONError(w, err, http.StatusBadRequest)
			return
		}
		if cr.ResourceLink == "" {
			logger.Info(logkeys.Message, "decoding course run", logkeys.Error, ErrNoResourceLink)
			api.JSONError(w, ErrNoResourceLink, http.StatusBadRequest)
			return
		}

		logger = logger.With(
			logkeys.CourseRun, cr.ID,
			logkeys.ResourceLink, cr.ResourceLink,
		)
		if control != "" {
			logger = logger.With(logkeys.Action, control)
		}
		logger.Debug(logkeys.Message, "running enrollment")

		// the engine adds its own course run keys to the machine logger
		res, err := runner.Run(r.Context(), cr, control)
		if err != nil {
			logger.Info(logkeys.Message, "running enrollment", logkeys.Error, err)
			api.JSONError(w, err, statusCode(err))
			return
		}

		resp := &enrollmentResponse{Result: res}
		if res.View != nil && res.View.Offers(engine.ControlLogin) {
			resp.LoginURL = runner.LoginURL(r.Header.Get("Referer"))
		}
		if res.Err != nil {
			resp.Error = res.Err.Error()
		}
		if err = api.JSON(w, resp, http.StatusOK); err != nil {
			logger.Info(logkeys.Message, "encoding json response", logkeys.Error, err)
		}
	}
}

type backendResponse struct {
	Name        string `json:"name"`
	Family      string `json:"family,omitempty"`
	Selector    string `json:"selector,omitempty"`
	Prefix      string `json:"prefix,omitempty"`
	CanUnenroll bool   `json:"can_unenroll"`
}

func newBackendResponse(d *backend.Descriptor) *backendResponse {
	resp := &backendResponse{
		Name:        d.Name,
		Family:      d.Family,
		Prefix:      d.Prefix,
		CanUnenroll: d.Capability.CanUnenroll(),
	}
	if d.Selector != nil {
		resp.Selector = d.Selector.String()
	}
	return resp
}

// BackendsHandler creates a HandlerFunc that lists the configured backends
// in resolution order.
func BackendsHandler(resolver *backend.Resolver, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		var resp []*backendResponse
		for _, d := range resolver.Descriptors() {
			resp = append(resp, newBackendResponse(d))
		}
		logger.Debug(logkeys.Message, "listing backends", logkeys.GenericCount, len(resp))
		if err := api.JSON(w, resp, http.StatusOK); err != nil {
			logger.Info(logkeys.Message, "encoding json response", logkeys.Error, err)
		}
	}
}

// ResolveHandler creates a HandlerFunc that returns the backend claiming
// the resource_link query parameter.
func ResolveHandler(resolver *backend.Resolver, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		link := r.URL.Query().Get("resource_link")
		if link == "" {
			logger.Info(logkeys.Message, "parameters", logkeys.Error, ErrNoResourceLink)
			api.JSONError(w, ErrNoResourceLink, http.StatusBadRequest)
			return
		}
		logger = logger.With(logkeys.ResourceLink, link)
		d, ok := resolver.Resolve(link)
		if !ok {
			logger.Debug(logkeys.Message, "resolving backend", logkeys.Error, enrollment.ErrNoBackend)
			api.JSONError(w, enrollment.ErrNoBackend, http.StatusNotFound)
			return
		}
		logger.Debug(logkeys.Message, "resolved backend", logkeys.Backend, d.Name)
		if err := api.JSON(w, newBackendResponse(d), http.StatusOK); err != nil {
			logger.Info(logkeys.Message, "encoding json response", logkeys.Error, err)
		}
	}
}
