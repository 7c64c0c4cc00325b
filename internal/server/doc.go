// Package server runs managerd: the query API, the metrics endpoint, and
// config reload.
//
// Ownership boundary:
// - listener lifecycle and graceful shutdown
// - building the platform client, notifier, and driver from config
// - swapping the driver when the watched config changes
//
// Listen addresses are read once at start; changing them requires a restart.
package server
