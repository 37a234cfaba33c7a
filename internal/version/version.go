// Package version holds build information for langidx.
package version

// Overridden at build time:
// go build -ldflags "-X langidx/internal/version.Version=0.3.0 -X langidx/internal/version.Commit=abc123"
var (
	Version = "0.1.0"

	// Commit is the git commit hash.
	Commit = "unknown"

	BuildDate = "unknown"
)

// Info returns the version with a short commit suffix when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns every build field, one per line.
func Full() string {
	return "langidx " + Version + "\n" +
		"commit: " + Commit + "\n" +
		"built:  " + BuildDate
}

// Details returns the build fields for structured output.
func Details() map[string]string {
	return map[string]string{
		"version":   Version,
		"commit":    Commit,
		"buildDate": BuildDate,
	}
}
