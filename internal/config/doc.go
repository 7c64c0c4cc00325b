// Package config loads managerd and actorctl configuration.
//
// Ownership boundary:
// - defaults, file overlay (TOML or YAML), ACTORMGR_* environment overrides
//
// - validation before any component starts
//
// - file watching and reload notification
//
// Precedence: defaults < file < environment.
package config
