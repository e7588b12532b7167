package config

import (
	"os"
	"runtime/debug"
	"strings"
)

// version is overridden at build time with -ldflags "-X carbonsink/internal/config.version=..."
var version = ""

// GetVersion returns the service version.
// APP_VERSION (set by CI/CD) wins, then the linker-provided value, then module build info.
func GetVersion() string {
	if envVersion := os.Getenv("APP_VERSION"); envVersion != "" {
		return envVersion
	}
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		v := strings.TrimPrefix(info.Main.Version, "v")
		if v != "" && v != "(devel)" {
			return v
		}
	}
	return "0.1.0"
}
