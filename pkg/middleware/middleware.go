// Package middleware provides composable HTTP middleware for the service.
package middleware

import "net/http"

// System collects middleware and wraps handlers with it.
type System interface {
	// Use appends mw to the stack. The first registered middleware is
	// the outermost.
	Use(mw func(http.Handler) http.Handler)

	// Apply wraps h with every registered middleware.
	Apply(h http.Handler) http.Handler
}

type stack struct {
	middleware []func(http.Handler) http.Handler
}

func New() System {
	return &stack{}
}

func (s *stack) Use(mw func(http.Handler) http.Handler) {
	s.middleware = append(s.middleware, mw)
}

func (s *stack) Apply(h http.Handler) http.Handler {
	for i := len(s.middleware) - 1; i >= 0; i-- {
		h = s.middleware[i](h)
	}
	return h
}
