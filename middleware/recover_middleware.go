package middleware

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mini-bridge/message"
)

// RecoverMiddleware turns a panic in the real implementation into the
// request's failure response carrying kInternalError, so the peer's caller
// gets an answer instead of the whole process going down.
func RecoverMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, dir message.Direction, req message.Request) (resp message.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("recovered from panic while serving request",
						zap.Stringer("direction", dir),
						zap.Stringer("kind", req.Kind()),
						zap.String("panic", fmt.Sprint(r)),
						zap.Stack("stack"))
					resp, err = req.Failure(message.Result(message.ResultInternalError)), nil
				}
			}()
			return next(ctx, dir, req)
		}
	}
}
