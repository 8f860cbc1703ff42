// Package engine drives the enrollment of a user in a course run: it
// fetches the facts a step is derived from, applies actions through a
// reducer and projects the resulting state into a view.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openfun/richie-sub000/backend"
	"github.com/openfun/richie-sub000/enrollment"
	"github.com/openfun/richie-sub000/logkeys"
	"github.com/openfun/richie-sub000/session"

	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

// ErrNotOffered is returned when an action is not offered by the current view.
var ErrNotOffered = errors.New("action not offered")

// Engine mounts machines for course runs on the backends that claim them.
type Engine struct {
	resolver *backend.Resolver
	session  session.Provider
	handler  enrollment.ErrorHandler
	logger   log.Logger

	actionTimeout time.Duration
	fetchTimeout  time.Duration
}

// Option configures the engine.
type Option func(*Engine)

// WithEngineLogger sets the engine logger.
func WithEngineLogger(logger log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEngineErrorHandler sets the error sink of mounted machines.
// By default errors are logged to the engine logger.
func WithEngineErrorHandler(h enrollment.ErrorHandler) Option {
	return func(e *Engine) {
		e.handler = h
	}
}

// WithTimeouts sets the action and fetch timeouts of mounted machines.
func WithTimeouts(action, fetch time.Duration) Option {
	return func(e *Engine) {
		e.actionTimeout = action
		e.fetchTimeout = fetch
	}
}

// New creates a new engine.
// A nil provider makes every visitor anonymous.
func New(resolver *backend.Resolver, provider session.Provider, opts ...Option) *Engine {
	e := &Engine{
		resolver:      resolver,
		session:       provider,
		logger:        log.NopLogger,
		actionTimeout: DefaultActionTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.handler == nil {
		e.handler = enrollment.NewLogErrorHandler(e.logger)
	}
	return e
}

// Resolver returns the backend resolver of the engine.
func (e *Engine) Resolver() *backend.Resolver {
	return e.resolver
}

// LoginURL returns the login URL of the session provider, if it has one.
func (e *Engine) LoginURL(next string) string {
	if l, ok := e.session.(session.Loginer); ok {
		return l.LoginURL(next)
	}
	return ""
}

func logAndError(err error, logger log.Logger, msg string) error {
	logger.Info(
		logkeys.Message, msg,
		logkeys.Error, err,
	)
	return fmt.Errorf("%s: %w", msg, err)
}

// Mount creates a machine for courseRun on the backend that claims its
// resource link. Options are applied after the engine defaults.
func (e *Engine) Mount(courseRun enrollment.CourseRun, opts ...MachineOption) (*Machine, *backend.Descriptor, error) {
	return e.mount(e.logger, courseRun, opts...)
}

// mount is Mount with the machine logger derived from logger.
// The machine adds the course run keys itself.
func (e *Engine) mount(logger log.Logger, courseRun enrollment.CourseRun, opts ...MachineOption) (*Machine, *backend.Descriptor, error) {
	d, ok := e.resolver.Resolve(courseRun.ResourceLink)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", enrollment.ErrNoBackend, courseRun.ResourceLink)
	}
	base := []MachineOption{
		WithLogger(logger.With(logkeys.Backend, d.Name)),
		WithErrorHandler(e.handler),
		WithSession(e.session),
		WithActionTimeout(e.actionTimeout),
		WithFetchTimeout(e.fetchTimeout),
	}
	return NewMachine(courseRun, d.Capability, append(base, opts...)...), d, nil
}

// Result is the outcome of Run.
type Result struct {
	Backend string `json:"backend"`
	State   State  `json:"state"`
	View    *View  `json:"view"`

	// Err is the action failure, if any. It is also rendered in View.
	Err error `json:"-"`
}

// Run mounts a machine for courseRun, waits for its facts and then
// applies control if given. Only ControlEnroll and ControlUnenroll are
// actions; a control that the loaded view does not offer fails with
// ErrNotOffered.
func (e *Engine) Run(ctx context.Context, courseRun enrollment.CourseRun, control Control, opts ...MachineOption) (*Result, error) {
	ctxLogger := ctxlog.Logger(ctx, e.logger)
	logger := ctxLogger.With(logkeys.CourseRun, courseRun.ID)
	m, d, err := e.mount(ctxLogger, courseRun, opts...)
	if err != nil {
		return nil, logAndError(err, logger, "mounting machine")
	}
	defer m.Close()

	select {
	case <-m.Start(ctx):
	case <-ctx.Done():
		return nil, logAndError(ctx.Err(), logger, "loading enrollment")
	}

	res := &Result{Backend: d.Name}
	if control != "" {
		view, err := m.View()
		if err != nil {
			return nil, logAndError(err, logger, "rendering")
		}
		if !view.Offers(control) {
			return nil, fmt.Errorf("%w: %s in step %s", ErrNotOffered, control, view.Step)
		}
		switch control {
		case ControlEnroll:
			res.Err = m.Enroll(ctx)
		case ControlUnenroll:
			res.Err = m.Unenroll(ctx)
		default:
			return nil, fmt.Errorf("%w: %s is not an action", ErrNotOffered, control)
		}
	}

	res.State = m.State()
	if res.View, err = Render(res.State, m.CanUnenroll()); err != nil {
		return nil, logAndError(err, logger, "rendering")
	}
	return res, nil
}
