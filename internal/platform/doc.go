// Package platform is the client for the remote actor-hosting platform API.
//
// Ownership boundary:
// - authenticated JSON requests (bearer token, project/environment scoping)
// - tag filter encoding into the tags_json query parameter
// - response decoding and ingress validation of actor/build records
// - circuit breaking, request tracing, and request metrics
//
// The client never retries. Callers cancel through the request context.
package platform
