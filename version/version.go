// Package version reports the server version from Go build info.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const modulePath = "github.com/lex00/wetwire-lsp-go"

// override is set at link time with
// -ldflags "-X github.com/lex00/wetwire-lsp-go/version.override=v1.2.3".
var override string

// Version returns the module version if available from build info.
// Returns "dev" if version information is not available (local development builds).
func Version() string {
	if override != "" {
		return override
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Path == modulePath && info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
		// Check dependencies for when used as a library
		for _, dep := range info.Deps {
			if dep.Path == modulePath {
				return dep.Version
			}
		}
	}
	return "dev"
}

// Revision returns the short VCS revision recorded at build time, or "".
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}

// String formats the version line printed by the version command.
func String(name string) string {
	v := Version()
	if rev := Revision(); rev != "" {
		v += " (" + rev + ")"
	}
	return fmt.Sprintf("%s %s %s/%s %s", name, v, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// ModulePath returns the canonical module path.
func ModulePath() string {
	return modulePath
}
