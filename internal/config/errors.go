package config

import "errors"

// Sentinel errors for configuration failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidConfig indicates conflicting or out-of-range options, or a
	// config file that cannot be parsed.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrNoTargets indicates that no host was supplied through any of the
	// target sources.
	ErrNoTargets = errors.New("config: no hosts to scan")
)
