package cmd

// Process exit codes.
const (
	ExitClean      = 0 // no vulnerable host found
	ExitVulnerable = 1 // at least one host is vulnerable
	ExitUserError  = 2 // invalid arguments, configuration or target input
)
