/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recoveryregistry

import "github.com/go-openapi/strfmt"

// Version information set by build flags
var (
	// Version is the semantic version of the recovery registry
	Version = "0.1.0"

	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"

	// BuildDate is the RFC 3339 build timestamp (set by build flags)
	BuildDate = "unknown"

	// GoVersion is the Go version used to build
	GoVersion = "unknown"
)

// VersionInfo contains version information
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

// GetVersionInfo returns the version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}
}

// BuildTime parses BuildDate. ok is false when it was not set to a valid
// timestamp.
func (v VersionInfo) BuildTime() (t strfmt.DateTime, ok bool) {
	t, err := strfmt.ParseDateTime(v.BuildDate)
	if err != nil {
		return strfmt.DateTime{}, false
	}
	return t, true
}
