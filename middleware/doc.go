// Package middleware resolves bearer tokens to local users for HTTP handlers.
//
// [Authenticate] reads the Authorization header and attaches the user to the
// request context; [RequireUser] rejects requests that arrived without one.
// Token checks are delegated to the engine; this package only translates
// HTTP semantics.
package middleware
