package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
	"github.com/openfun/richie-sub000/enrollment"
	"github.com/openfun/richie-sub000/logkeys"
	"github.com/openfun/richie-sub000/session"
)

// DefaultActionTimeout bounds enroll and unenroll calls.
const DefaultActionTimeout = 30 * time.Second

// Machine drives the enrollment of the current user in one course run.
// Dispatches are serialized so that the state only changes through the reducer.
type Machine struct {
	courseRun  enrollment.CourseRun
	capability enrollment.Capability
	reducer    *Reducer

	logger  log.Logger
	handler enrollment.ErrorHandler
	session session.Provider
	user    *enrollment.User
	hasUser bool

	actionTimeout time.Duration
	fetchTimeout  time.Duration
	onChange      func(prev, next State)

	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	record   *enrollment.Record
	disposed bool
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithLogger sets the logger of the machine.
func WithLogger(logger log.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithErrorHandler sets the sink of fetch, action and impossible state errors.
func WithErrorHandler(h enrollment.ErrorHandler) MachineOption {
	return func(m *Machine) {
		m.handler = h
	}
}

// WithSession sets the provider the current user is resolved from.
func WithSession(p session.Provider) MachineOption {
	return func(m *Machine) {
		m.session = p
	}
}

// WithUser skips the session lookup and uses user as the current user.
// A nil user is an anonymous visitor.
func WithUser(user *enrollment.User) MachineOption {
	return func(m *Machine) {
		m.user = user
		m.hasUser = true
	}
}

// WithActionTimeout bounds enroll and unenroll calls to the backend.
func WithActionTimeout(d time.Duration) MachineOption {
	return func(m *Machine) {
		m.actionTimeout = d
	}
}

// WithFetchTimeout bounds the user and record fetches.
// Zero means no timeout other than the caller's context.
func WithFetchTimeout(d time.Duration) MachineOption {
	return func(m *Machine) {
		m.fetchTimeout = d
	}
}

// WithOnChange registers f to be called after every dispatch.
// f is called with the machine locked and must not call back into it.
func WithOnChange(f func(prev, next State)) MachineOption {
	return func(m *Machine) {
		m.onChange = f
	}
}

// NewMachine creates a new machine for courseRun backed by capability.
func NewMachine(courseRun enrollment.CourseRun, capability enrollment.Capability, opts ...MachineOption) *Machine {
	m := &Machine{
		courseRun:     courseRun,
		capability:    capability,
		logger:        log.NopLogger,
		handler:       enrollment.NopErrorHandler,
		actionTimeout: DefaultActionTimeout,
		state:         InitialState(courseRun),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(
		logkeys.CourseRun, courseRun.ID,
		logkeys.ResourceLink, courseRun.ResourceLink,
	)
	m.reducer = NewReducer(capability.CanUnenroll(), m.handler)
	m.base, m.cancel = context.WithCancel(context.Background())
	return m
}

// CanUnenroll reports whether the backend of the machine can unenroll learners.
func (m *Machine) CanUnenroll() bool {
	return m.capability.CanUnenroll()
}

// State returns the current state of the machine.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Record returns a copy of the last enrollment record fetched, if any.
func (m *Machine) Record() *enrollment.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return nil
	}
	rec := *m.record
	return &rec
}

// View renders the current state of the machine.
func (m *Machine) View() (*View, error) {
	return Render(m.State(), m.CanUnenroll())
}

// Close disposes the machine.
// In-flight backend calls are cancelled and their results dropped.
func (m *Machine) Close() error {
	m.mu.Lock()
	m.disposed = true
	m.mu.Unlock()
	m.cancel()
	return nil
}

// dispatch applies a to the state of the machine.
// Actions dispatched after Close are dropped.
func (m *Machine) dispatch(ctx context.Context, a Action) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return false
	}
	prev := m.state
	m.state = m.reducer.Reduce(ctx, prev, a)
	ctxlog.Logger(ctx, m.logger).Debug(
		logkeys.Message, "dispatch",
		logkeys.Action, ActionName(a),
		logkeys.PreviousStep, prev.Step,
		logkeys.Step, m.state.Step,
	)
	if m.onChange != nil {
		m.onChange(prev, m.state)
	}
	return true
}

// scoped returns a context cancelled when either ctx is done, timeout
// elapses or the machine is closed.
func (m *Machine) scoped(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	stop := context.AfterFunc(m.base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

type userResult struct {
	user *enrollment.User
	err  error
}

func (m *Machine) currentUser(ctx context.Context) (*enrollment.User, error) {
	if m.hasUser {
		return m.user, nil
	}
	if m.session == nil {
		return nil, nil
	}
	return m.session.CurrentUser(ctx)
}

// Start fetches the current user and then their enrollment record.
// The returned channel is closed when both fetches are done.
// Anonymous visitors never reach the backend.
func (m *Machine) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	m.mu.Lock()
	disposed := m.disposed
	m.mu.Unlock()
	if disposed {
		close(done)
		return done
	}

	ctx, cancel := m.scoped(ctx, m.fetchTimeout)
	logger := ctxlog.Logger(ctx, m.logger)
	userc := make(chan userResult, 1)

	go func() {
		user, err := m.currentUser(ctx)
		if err != nil {
			err = &enrollment.FetchError{Err: err}
			m.handler.HandleError(ctx, err)
			m.dispatch(ctx, Failure{Err: err})
		} else {
			var f enrollment.Fact[enrollment.User]
			if user == nil {
				f = enrollment.Null[enrollment.User]()
			} else {
				f = enrollment.Known(*user)
			}
			m.dispatch(ctx, UpdateContext{Update: enrollment.ContextUpdate{}.WithUser(f)})
		}
		userc <- userResult{user: user, err: err}
	}()

	go func() {
		defer close(done)
		defer cancel()
		res := <-userc
		if res.err != nil {
			return
		}
		if res.user == nil {
			m.dispatch(ctx, UpdateContext{Update: enrollment.ContextUpdate{}.WithEnrolled(enrollment.Null[bool]())})
			return
		}
		rec, err := m.capability.Get(ctx, m.courseRun.ResourceLink, res.user)
		if err != nil {
			err = &enrollment.FetchError{Err: err}
			logger.Debug(
				logkeys.Message, "fetching enrollment",
				logkeys.Username, res.user.Username,
				logkeys.Error, err,
			)
			m.handler.HandleError(ctx, err)
			m.dispatch(ctx, Failure{Err: err})
			return
		}
		m.mu.Lock()
		if !m.disposed {
			m.record = rec
		}
		m.mu.Unlock()
		m.dispatch(ctx, UpdateContext{Update: enrollment.ContextUpdate{}.WithEnrolled(m.capability.IsEnrolled(rec))})
	}()

	return done
}

// Reload forgets the current user and enrollment and fetches them again.
// It waits for the fetch to complete or ctx to be done.
func (m *Machine) Reload(ctx context.Context) error {
	update := enrollment.ContextUpdate{}.
		WithUser(enrollment.Unresolved[enrollment.User]()).
		WithEnrolled(enrollment.Unresolved[bool]())
	if !m.dispatch(ctx, UpdateContext{Update: update}) {
		return enrollment.ErrDisposed
	}
	m.mu.Lock()
	m.record = nil
	m.mu.Unlock()
	select {
	case <-m.Start(ctx):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enroll enrolls the current user in the course run.
// Failures are reflected in the state and returned as an *enrollment.ActionError.
func (m *Machine) Enroll(ctx context.Context) error {
	return m.act(ctx, Enroll{}, true)
}

// Unenroll unenrolls the current user from the course run.
// It fails with enrollment.ErrUnenrollUnsupported for backends that cannot unenroll.
func (m *Machine) Unenroll(ctx context.Context) error {
	if !m.capability.CanUnenroll() {
		m.handler.HandleError(ctx, enrollment.ErrUnenrollUnsupported)
		return enrollment.ErrUnenrollUnsupported
	}
	return m.act(ctx, Unenroll{}, false)
}

func (m *Machine) act(ctx context.Context, a Action, isActive bool) error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return enrollment.ErrDisposed
	}
	user, ok := m.state.Context.CurrentUser.Get()
	rec := m.record
	m.mu.Unlock()
	if !ok {
		return enrollment.ErrMissingUser
	}
	logger := ctxlog.Logger(ctx, m.logger).With(
		logkeys.Action, ActionName(a),
		logkeys.Username, user.Username,
	)

	m.dispatch(ctx, a)

	actx, cancel := m.scoped(ctx, m.actionTimeout)
	defer cancel()
	link := m.courseRun.ResourceLink
	active, err := m.capability.Set(actx, link, &user, rec, isActive)
	if err != nil {
		err = &enrollment.ActionError{Action: ActionName(a), Err: err}
		logger.Info(logkeys.Error, err)
		m.handler.HandleError(ctx, err)
		if !m.dispatch(ctx, UpdateContext{Err: err}) {
			return enrollment.ErrDisposed
		}
		return err
	}

	// refresh so that later updates address the record that now exists
	if rec, err = m.capability.Get(actx, link, &user); err != nil {
		if !errors.Is(err, context.Canceled) {
			m.handler.HandleError(ctx, err)
		}
	} else {
		m.mu.Lock()
		if !m.disposed {
			m.record = rec
		}
		m.mu.Unlock()
	}

	logger.Debug(logkeys.Message, "action complete", "is_active", active)
	if !m.dispatch(ctx, UpdateContext{Update: enrollment.ContextUpdate{}.WithEnrolled(enrollment.Known(active))}) {
		return enrollment.ErrDisposed
	}
	return nil
}
