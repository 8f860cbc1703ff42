package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/openfun/richie-sub000/backend"
	"github.com/openfun/richie-sub000/backend/dummy/storage"
	"github.com/openfun/richie-sub000/engine"
	"github.com/openfun/richie-sub000/enrollment"
	"github.com/openfun/richie-sub000/internal/storageflag"
	"github.com/openfun/richie-sub000/session"
	"github.com/openfun/richie-sub000/session/jwt"

	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/stdlogfmt"
	"github.com/spf13/cobra"
)

// options are the persistent flags of every command.
type options struct {
	config    string
	storage   string
	dsn       string
	username  string
	token     string
	jwtKey    string
	courseRun string
	priority  string
	timeout   time.Duration
	debug     bool
}

func newRootCmd() *cobra.Command {
	o := new(options)
	root := &cobra.Command{
		Use:   "enrollctl",
		Short: "Drive course run enrollments from the command line",
		Long: `Enrollctl resolves the backend of a course run resource link and
loads, creates or deactivates the enrollment of a learner on it.

Without a backends file a single dummy backend claims every resource
link, storing enrollments in the selected storage.

Examples:
  enrollctl resolve https://lms.test/courses/x/course
  enrollctl state --username learner https://lms.test/courses/x/course
  enrollctl enroll --config backends.yaml --token $TOKEN https://joanie.test/course-runs/1/
  enrollctl records --username learner
  enrollctl reset --username learner https://lms.test/courses/x/course`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&o.config, "config", "c", "", "path to backends YAML config")
	pf.StringVar(&o.storage, "storage", "file", storageflag.Usage)
	pf.StringVar(&o.dsn, "storage-dsn", "", "data source name (e.g. connection string or path)")
	pf.StringVarP(&o.username, "username", "u", "", "username of the learner (anonymous if empty)")
	pf.StringVar(&o.token, "token", "", "access token of the learner")
	pf.StringVar(&o.jwtKey, "jwt-key", "", "HMAC key to resolve the learner from --token")
	pf.StringVar(&o.courseRun, "course-run", "", "course run identifier")
	pf.StringVar(&o.priority, "priority", enrollment.OngoingOpen.String(), "course run priority")
	pf.DurationVar(&o.timeout, "timeout", engine.DefaultActionTimeout, "timeout of backend calls")
	pf.BoolVar(&o.debug, "debug", false, "log debug messages")

	root.AddCommand(
		newResolveCmd(o),
		newRunCmd(o, "state", "Show the enrollment state of the learner", ""),
		newRunCmd(o, "enroll", "Enroll the learner in the course run", engine.ControlEnroll),
		newRunCmd(o, "unenroll", "Unenroll the learner from the course run", engine.ControlUnenroll),
		newRecordsCmd(o),
		newResetCmd(o),
	)
	return root
}

// logger logs to standard error when debugging.
func (o *options) logger() log.Logger {
	if !o.debug {
		return log.NopLogger
	}
	return stdlogfmt.New(stdlogfmt.WithDebugFlag(true))
}

// resolver builds the configured backends over the selected storage.
func (o *options) resolver() (*backend.Resolver, func() error, error) {
	cfg := &backend.Config{Backends: []backend.BackendConfig{{
		Name:           "dummy",
		Family:         backend.FamilyDummy,
		SelectorRegexp: ".*",
	}}}
	if o.config != "" {
		f, err := os.Open(o.config)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		if cfg, err = backend.LoadConfig(f); err != nil {
			return nil, nil, err
		}
	}
	deps, err := o.dependencies()
	if err != nil {
		return nil, nil, err
	}
	r, err := cfg.Build(deps.Dependencies)
	if err != nil {
		deps.close()
		return nil, nil, err
	}
	return r, deps.close, nil
}

type backendDeps struct {
	backend.Dependencies
	close func() error
}

func (o *options) dependencies() (backendDeps, error) {
	s, closeFn, err := storageflag.Parse(o.storage, o.dsn)
	if err != nil {
		return backendDeps{}, err
	}
	return backendDeps{Dependencies: backend.Dependencies{DummyStorage: s}, close: closeFn}, nil
}

// session returns the provider of the learner given by flags.
func (o *options) session() (session.Provider, error) {
	if o.jwtKey != "" {
		p, err := jwt.New([]byte(o.jwtKey))
		if err != nil {
			return nil, err
		}
		user, err := p.Parse(o.token)
		if err != nil {
			return nil, err
		}
		return session.NewStatic(user), nil
	}
	if o.username == "" {
		return session.NewStatic(nil), nil
	}
	return session.NewStatic(&enrollment.User{Username: o.username, AccessToken: o.token}), nil
}

func (o *options) courseRunFor(link string) (enrollment.CourseRun, error) {
	p, ok := enrollment.PriorityForString(o.priority)
	if !ok {
		return enrollment.CourseRun{}, fmt.Errorf("unknown priority: %q", o.priority)
	}
	id := o.courseRun
	if id == "" {
		id = link
	}
	return enrollment.CourseRun{
		ID:           id,
		ResourceLink: link,
		State:        enrollment.CourseRunState{Priority: p},
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newResolveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <resource-link>",
		Short: "Show the backend claiming a resource link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := o.resolver()
			if err != nil {
				return err
			}
			defer closeFn()
			d, ok := r.Resolve(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", enrollment.ErrNoBackend, args[0])
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"name":         d.Name,
				"family":       d.Family,
				"can_unenroll": d.Capability.CanUnenroll(),
			})
		},
	}
}

func newRunCmd(o *options, use, short string, control engine.Control) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <resource-link>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, err := o.courseRunFor(args[0])
			if err != nil {
				return err
			}
			provider, err := o.session()
			if err != nil {
				return err
			}
			r, closeFn, err := o.resolver()
			if err != nil {
				return err
			}
			defer closeFn()

			e := engine.New(
				r,
				provider,
				engine.WithEngineLogger(o.logger()),
				engine.WithTimeouts(o.timeout, o.timeout),
			)
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*o.timeout)
			defer cancel()
			res, err := e.Run(ctx, cr, control)
			if err != nil {
				return err
			}
			if err = writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			return res.Err
		},
	}
}

// withStorage runs f on the selected dummy backend storage.
func (o *options) withStorage(f func(storage.Storage) error) error {
	if o.username == "" {
		return enrollment.ErrMissingUser
	}
	s, closeFn, err := storageflag.Parse(o.storage, o.dsn)
	if err != nil {
		return err
	}
	defer closeFn()
	return f(s)
}

func newRecordsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "List the dummy backend records of the learner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withStorage(func(s storage.Storage) error {
				recs, err := s.RetrieveUserRecords(cmd.Context(), o.username)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), recs)
			})
		},
	}
}

func newResetCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <resource-link>",
		Short: "Delete the dummy backend record of the learner for a course run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withStorage(func(s storage.Storage) error {
				return s.DeleteRecord(cmd.Context(), args[0], o.username)
			})
		},
	}
}
