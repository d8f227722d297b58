package core

import "strings"

// Version is a semantic version split into its parts.
type Version struct {
	Full  string
	Major string
	Minor string
	Patch string
}

// NewVersion creates a new Version from a full version string
func NewVersion(full string) *Version {
	parts := strings.SplitN(full, ".", 3)
	v := &Version{Full: full}
	if len(parts) > 0 {
		v.Major = parts[0]
	}
	if len(parts) > 1 {
		v.Minor = parts[1]
	}
	if len(parts) > 2 {
		v.Patch = parts[2]
	}
	return v
}

// VERSION is the version of this compiler.
var VERSION = NewVersion("2.0.0-beta.17")
