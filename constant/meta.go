// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// App is the canonical application identifier used for filesystem paths and CLI branding.
	App = "voicepages"

	// Version is the current application semantic version string.
	Version = "0.1.0"

	// UserAgent is the HTTP User-Agent sent to the audiobook server.
	UserAgent = App + "/" + Version
)

// DefaultServerURL is the address of a locally running audiobook server.
const DefaultServerURL = "http://localhost:9000"

const (
	// Repository is the project home.
	Repository = "https://github.com/voicepages/voicepages"

	// ReleasesAPI reports the latest published release.
	ReleasesAPI = "https://api.github.com/repos/voicepages/voicepages/releases/latest"
)

// Build metadata, set with -ldflags at release time.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
