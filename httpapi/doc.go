// Package httpapi exposes the engine over HTTP.
//
// Routes are mounted on a chi router. Request bodies are strict JSON
// validated with go-playground/validator. Every failure is written as
//
//	{"error": {"status": 400, "message": "Passwords do not match"}}
//
// where the message is the text of the engine sentinel that matched. Errors
// that match no sentinel get the operation's generic message and are logged
// with their cause.
//
// The handler chain adds request ids (ksuid), panic recovery, security
// headers, an access log, optional bearer authentication, and CORS.
package httpapi
