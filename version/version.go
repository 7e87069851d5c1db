// Package version reports historify's build identity.
package version

import "fmt"

// These are overridden at build time via:
//
//	go build -ldflags "-X github.com/kwinsch/historify/version.Version=1.2.3 ..."
var (
	Version   = "dev"
	Revision  = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// Print renders a one-line build identity string for appName, as the CLI
// shows it in --version output.
func Print(appName string) string {
	return fmt.Sprintf("%s version %s (revision %s, built %s, %s)",
		appName, Version, Revision, BuildDate, GoVersion)
}
