// Package version holds the build version, overridden at link time with
// -ldflags "-X github.com/maxvaer/rschunter/pkg/version.Version=v1.2.3".
package version

// Version is the rschunter release version.
var Version = "dev"
