package featureflags

import (
	"os"
	"strings"
)

// AllowDuplicateOpen restores the legacy behavior where the manual
// creation path skips the open-instance uniqueness check entirely,
// without requiring callers to pass force on every request.
const AllowDuplicateOpen = "allow_duplicate_open"

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
