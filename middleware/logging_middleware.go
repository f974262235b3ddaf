package middleware

import (
	"context"

	"go.uber.org/zap"

	"mini-bridge/logging"
	"mini-bridge/message"
)

// LoggingMiddleware renders every served request and its response through l.
// Rendering is skipped entirely below the verbosity the request needs.
func LoggingMiddleware(l *logging.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
			l.LogRequest(dir, req)
			resp, err := next(ctx, dir, req)
			if err != nil {
				l.Zap().Warn("request rejected",
					zap.Stringer("direction", dir),
					zap.Stringer("kind", req.Kind()),
					zap.Error(err))
				return resp, err
			}
			l.LogResponse(dir, req, resp)
			return resp, nil
		}
	}
}
