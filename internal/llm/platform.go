package llm

import (
	"runtime"
	"slices"
)

// DefaultSupportedPlatforms lists GOOS values that may run local mode. Linux
// and darwin are included because this module itself runs on the host that
// serves the app (the CLI and the local HTTP bridge), not inside the mobile
// app; deployments that want the mobile-only behavior set
// llm.supported_platforms to android and ios.
var DefaultSupportedPlatforms = []string{"android", "ios", "linux", "darwin"}

// Web targets can never host a native runtime, whatever the configuration says.
var webPlatforms = []string{"js", "wasip1"}

func currentPlatform(override string) string {
	if override != "" {
		return override
	}
	return runtime.GOOS
}

func platformSupported(goos string, supported []string) bool {
	if slices.Contains(webPlatforms, goos) {
		return false
	}
	return slices.Contains(supported, goos)
}
