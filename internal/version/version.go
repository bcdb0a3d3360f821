// Package version holds jarscan's build metadata.
package version

import (
	"runtime"
	"strings"
)

// Overridden at build time:
// go build -ldflags "-X jarscan/internal/version.Version=1.0.0 -X jarscan/internal/version.Commit=abc123"
var (
	Version   = "1.0.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

const shortCommit = 7

// Info returns the version, followed by the abbreviated commit when one was
// stamped into the binary.
func Info() string {
	if Commit == "unknown" || len(Commit) <= shortCommit {
		return Version
	}
	return Version + " (" + Commit[:shortCommit] + ")"
}

// Full returns the multi-line text printed by --version.
func Full() string {
	var b strings.Builder
	b.WriteString("jarscan version " + Info() + "\n")
	b.WriteString("Commit: " + Commit + "\n")
	b.WriteString("Built: " + BuildDate + "\n")
	b.WriteString("Go: " + runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH + "\n")
	return b.String()
}
