// Package render is a small client for the Render REST API.
//
// It covers what a deploy needs:
//   - resolving a service by name
//   - triggering a deploy, optionally pinned to a commit
//   - reading the latest deploy and a deploy by id
//
// Every failure is returned as a typed error. *TransportError is a network
// failure, *APIError is a non-2xx response with its body, *DecodeError is a
// body that does not match the expected schema, and ErrServiceNotFound means
// an empty lookup. Nothing is retried.
package render
