package log

import (
	"context"
	"fmt"
	"log/slog"

	crdb "github.com/cockroachdb/errors"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

// CauseAttrKey holds the Go type of the innermost error of a logged failure.
const CauseAttrKey = "error.cause"

// ErrFmtHandler decorates records that carry an ErrAttr with the failure's
// stack trace and root cause type, so one JSON line on stderr is enough to
// tell a store outage from a malformed document or a recovered panic.
type ErrFmtHandler struct {
	next slog.Handler
}

// WrapByErrFmtHandler returns next decorated by ErrFmtHandler.
func WrapByErrFmtHandler(next slog.Handler) slog.Handler {
	return &ErrFmtHandler{next: next}
}

func (h *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := recordError(r); err != nil {
		if st := extractStacktrace(err); st != "" {
			r.AddAttrs(slog.String(StacktraceAttrKey, st))
		}
		r.AddAttrs(slog.String(CauseAttrKey, fmt.Sprintf("%T", crdb.UnwrapAll(err))))
	}
	return h.next.Handle(ctx, r)
}

func (h *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return WrapByErrFmtHandler(h.next.WithAttrs(attrs))
}

func (h *ErrFmtHandler) WithGroup(name string) slog.Handler {
	return WrapByErrFmtHandler(h.next.WithGroup(name))
}

// recordError returns the error stored under ErrAttrKey, if any.
func recordError(r slog.Record) (err error) {
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		err, _ = attr.Value.Any().(error)
		return false
	})
	return err
}

// extractStacktrace returns the stack captured by errors.Recover when the
// failure was a panic, otherwise the first safe detail found along the
// chain, which is where cockroachdb/errors keeps the WithStack trace.
func extractStacktrace(err error) string {
	var panicErr *errors.PanicError
	if errors.As(err, &panicErr) {
		return panicErr.StackTrace
	}
	for e := err; e != nil; e = crdb.UnwrapOnce(e) {
		if details := crdb.GetSafeDetails(e).SafeDetails; len(details) > 0 {
			return details[0]
		}
	}
	return ""
}
