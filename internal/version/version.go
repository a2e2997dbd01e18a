package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const devVersion = "0.1.0-dev"

// Overridden at release time via -ldflags "-X github.com/openmined/vaultsync/internal/version.Version=..."
var (
	AppName   = "vaultsync"
	Version   = devVersion
	Revision  = "HEAD"
	BuildDate = ""
)

// fillFromVCS fills whatever ldflags left at its default from the module and VCS stamps.
func fillFromVCS(moduleVersion string, vcs map[string]string) {
	if Version == devVersion || Version == "" {
		if moduleVersion != "" && moduleVersion != "(devel)" {
			Version = strings.TrimPrefix(moduleVersion, "v")
		}
	}

	if (Revision == "HEAD" || Revision == "") && vcs["vcs.revision"] != "" {
		Revision = vcs["vcs.revision"]
		if vcs["vcs.modified"] == "true" {
			Revision += "-dirty"
		}
	}

	if BuildDate == "" {
		BuildDate = vcs["vcs.time"]
	}
}

// Short returns `0.1.0 (5e23a4)`
func Short() string {
	return fmt.Sprintf("%s (%s)", Version, Revision)
}

// ShortWithApp returns `vaultsync 0.1.0 (5e23a4)`
func ShortWithApp() string {
	return AppName + " " + Short()
}

// Detailed returns `0.1.0 (5e23a4; go1.23.6; linux/amd64; 2025-01-01T00:00:00Z)`
func Detailed() string {
	return fmt.Sprintf("%s (%s; %s; %s/%s; %s)", Version, Revision, runtime.Version(), runtime.GOOS, runtime.GOARCH, BuildDate)
}

func DetailedWithApp() string {
	return AppName + " " + Detailed()
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok && info != nil {
		vcs := make(map[string]string, len(info.Settings))
		for _, s := range info.Settings {
			vcs[s.Key] = s.Value
		}
		fillFromVCS(info.Main.Version, vcs)
	}

	if BuildDate == "" {
		BuildDate = time.Now().UTC().Format(time.RFC3339)
	}
}
