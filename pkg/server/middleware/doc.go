// Package middleware provides HTTP middleware for the gatehouse API.
//
// The chain applied by pkg/server is, outermost first: Recovery, Logging,
// RequestID. Admit is not part of the server's own chain; it is the
// embedding surface for services that wrap their handlers with an admission
// check directly.
package middleware
