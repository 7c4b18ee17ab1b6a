// package server contains middleware & handlers for the vors web service
package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, security headers, CORS, and auth gating.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the vors service.
// Implementations handle specific endpoint groups (auth, player proxy, sessions).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the method-qualified path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Protected wraps a Handler so the given middleware applies to its routes
// only, leaving the router's global middleware stack untouched.
func Protected(handler Handler, middleware ...Middleware) Handler {
	wrapped := http.Handler(handler)
	for i := len(middleware) - 1; i >= 0; i-- {
		wrapped = middleware[i](wrapped)
	}
	return &protectedHandler{routes: handler.Routes(), handler: wrapped}
}

type protectedHandler struct {
	routes  []string
	handler http.Handler
}

func (p *protectedHandler) Routes() []string {
	return p.routes
}

func (p *protectedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}
