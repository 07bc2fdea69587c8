// Package version holds build metadata injected via ldflags:
//
//	-X github.com/Jhongjin/meta-faq-chatbot-sub001/internal/version.Version=v1.2.0
package version

import "runtime"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String is the one-line form printed by faqctl --version.
func String() string {
	return Version + " (commit " + shortCommit() + ", built " + Date + ", " + runtime.Version() + ")"
}

// UserAgent identifies faq-assistant on outbound HTTP calls to model servers.
func UserAgent() string {
	return "faq-assistant/" + Version
}

func shortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}
