// Package events publishes actor lifecycle notifications to NATS.
//
// Ownership boundary:
// - event envelope encoding
// - subject naming
// - connection lifecycle (reconnect, drain on close)
package events
