// Package httpapi exposes the actor query driver over HTTP.
//
// Ownership boundary:
// - wire framing of queries and actor records
// - error to status mapping
// - request middleware (request id, logging, metrics, CORS)
//
// The driver behind the server can be swapped at runtime; in-flight requests
// finish on the driver they started with.
package httpapi
