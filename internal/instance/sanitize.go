package instance

import (
	"fmt"
	"strings"

	"github.com/MangriMen/aether-core/internal/location"
)

// illegalChars mirrors spec.md §4.11's Create step: replace /\?*:'"|<>!
// with underscore. Generalizes the teacher's implicit assumption (it
// never creates directories from user input) using the same
// strings.NewReplacer idiom dilllxd-theboys-launcher's instance naming
// uses for its own sanitize step.
var illegalCharsReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", "?", "_", "*", "_", ":", "_",
	"'", "_", "\"", "_", "|", "_", "<", "_", ">", "_", "!", "_",
)

// SanitizeName replaces illegal path characters and, if exists reports the
// resulting id as taken, disambiguates with a "-1", "-2", ... suffix until
// exists reports a free one. paths is not consulted.
func SanitizeName(paths location.Paths, name string, exists func(id string) bool) string {
	base := illegalCharsReplacer.Replace(strings.TrimSpace(name))
	if base == "" {
		base = "instance"
	}

	if !exists(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !exists(candidate) {
			return candidate
		}
	}
}
