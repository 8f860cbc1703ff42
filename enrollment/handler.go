package enrollment

import (
	"context"

	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
	"github.com/openfun/richie-sub000/logkeys"
)

// ErrorHandler is a sink for errors that are not returned to a caller:
// impossible states as well as fetch and action failures.
type ErrorHandler interface {
	HandleError(ctx context.Context, err error)
}

// ErrorHandlerFunc adapts a function to an ErrorHandler.
type ErrorHandlerFunc func(ctx context.Context, err error)

// HandleError calls f(ctx, err).
func (f ErrorHandlerFunc) HandleError(ctx context.Context, err error) {
	f(ctx, err)
}

// NopErrorHandler discards errors.
var NopErrorHandler ErrorHandler = ErrorHandlerFunc(func(context.Context, error) {})

// LogErrorHandler reports errors to a logger.
type LogErrorHandler struct {
	logger log.Logger
}

// NewLogErrorHandler creates a new error handler that logs to logger.
func NewLogErrorHandler(logger log.Logger) *LogErrorHandler {
	return &LogErrorHandler{logger: logger}
}

// HandleError logs err at the info level.
func (h *LogErrorHandler) HandleError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	ctxlog.Logger(ctx, h.logger).Info(
		logkeys.Message, "enrollment error",
		logkeys.Error, err,
	)
}
