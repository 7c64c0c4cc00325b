// Package actors owns the record shapes exchanged with the actor-hosting platform.
//
// Ownership boundary:
// - actor and build record shapes
// - tag sets and the reserved access tag
// - eligibility predicates (visibility, lifecycle, network readiness)
// - ingress validation of decoded platform records
//
// Records are never mutated locally; the platform owns them.
package actors
