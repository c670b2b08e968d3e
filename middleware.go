package forest

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/eforest-finance/forest-agent-kit/envelope"
	"github.com/eforest-finance/forest-agent-kit/errmap"
)

// ExecuteFunc runs a validated, gated call.
type ExecuteFunc func(ctx context.Context, call *Call) envelope.Envelope

// Middleware wraps an ExecuteFunc to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	audit := func(next forest.ExecuteFunc) forest.ExecuteFunc {
//	    return func(ctx context.Context, call *forest.Call) envelope.Envelope {
//	        res := next(ctx, call)
//	        record(call.Skill.Name, res.Code)
//	        return res
//	    }
//	}
type Middleware func(next ExecuteFunc) ExecuteFunc

// Chain wraps base with mws; mws[0] is the outermost layer.
func Chain(base ExecuteFunc, mws ...Middleware) ExecuteFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// PanicError is a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// PanicRecoveryMiddleware converts panics into failure envelopes through
// the error mapper.
func PanicRecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next ExecuteFunc) ExecuteFunc {
		return func(ctx context.Context, call *Call) (res envelope.Envelope) {
			defer func() {
				if r := recover(); r != nil {
					perr := &PanicError{Value: r, Stack: debug.Stack()}
					logger.ErrorContext(ctx, "skill panicked",
						slog.String("skill", call.Skill.Name),
						slog.String("trace_id", call.TraceID),
						slog.Any("panic", r),
						slog.String("stack", string(perr.Stack)))
					res = errmap.Map(perr).Envelope(call.TraceID)
				}
			}()
			return next(ctx, call)
		}
	}
}

// LoggingMiddleware logs one line per executed call.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ExecuteFunc) ExecuteFunc {
		return func(ctx context.Context, call *Call) envelope.Envelope {
			start := time.Now()
			res := next(ctx, call)

			level := slog.LevelInfo
			if !res.Success {
				level = slog.LevelWarn
			}
			logger.LogAttrs(ctx, level, "skill dispatched",
				slog.String("skill", call.Skill.Name),
				slog.String("kind", string(call.Skill.Kind)),
				slog.String("trace_id", call.TraceID),
				slog.Bool("dry_run", call.DryRun),
				slog.String("code", string(res.Code)),
				slog.Duration("duration", time.Since(start)))
			return res
		}
	}
}
