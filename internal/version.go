package internal

import (
	"fmt"
	"runtime"
	"strings"
)

const (

	// Program name, used for logger groups, directory names and the CLI.
	Name = "cruxpkg"

	// Placeholder for build metadata that was not injected.
	undefined = "(undefined)"

	// Version string reported by builds made outside the release pipeline.
	localBuild = "(local)"
)

var (
	version   = "" // Release version (e.g., "0.4.1"), set via ldflags.
	gitCommit = "" // Commit the binary was built from, set via ldflags.

	rawQuiet   = "false" // Build-time default for quiet mode.
	rawDebug   = "false" // Build-time default for debug mode.
	rawVerbose = "false" // Build-time default for verbose mode.
)

// Returns the release version without a leading "v", or "(undefined)".
func Version() string {
	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(version)), "v")
	if v == "" {
		return undefined
	}
	return v
}

// Returns the git commit, or "(undefined)".
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return undefined
	}
	return c
}

// Returns true unless both the version and the commit were injected.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" || strings.TrimSpace(gitCommit) == ""
}

// Returns "<version> <commit> [<os>/<arch>]", or "(local)" for local builds.
func VersionString() string {
	if IsLocal() {
		return localBuild
	}
	return fmt.Sprintf("%s %s [%s/%s]", Version(), GitCommit(), runtime.GOOS, runtime.GOARCH)
}
