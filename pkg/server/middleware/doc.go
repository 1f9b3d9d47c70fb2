// Package middleware provides the HTTP middleware used by the decision API:
// request ID propagation, panic recovery, request logging, per-route
// metrics and API key authentication.
//
// Middleware is applied outermost first:
//
//	handler = middleware.Recovery(logger)(
//	    middleware.RequestID(
//	        middleware.Logging(logger)(mux)))
//
// Authenticate and Instrument wrap individual routes inside the mux so that
// health endpoints and /metrics stay unauthenticated.
package middleware
