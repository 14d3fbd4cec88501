// Package version exposes build information injected via ldflags.
package version

import "runtime"

// Set with -ldflags "-X .../internal/platform/version.Version=v1.2.3" and friends.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const Service = "miband-heart-rate"

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Service:   Service,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String renders a one-line summary for the startup log.
func (i Info) String() string {
	return i.Service + " " + i.Version + " (" + i.Commit + ", " + i.GoVersion + ")"
}
