// Package version reports the pacprobe build. Release builds set these with
// -ldflags "-X github.com/hazz-dev/pacprobe/internal/version.Version=...".
package version

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
