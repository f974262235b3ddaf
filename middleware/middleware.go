// Package middleware wraps the handler serving peer requests.
//
// Chain(A, B, C)(h) builds A(B(C(h))): A sees the request first and the
// response last.
package middleware

import (
	"context"

	"mini-bridge/message"
)

// HandlerFunc serves one request from the peer. A non-nil error is a
// protocol violation, never an application failure.
type HandlerFunc func(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one, outermost first.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
