// Package version holds build information for the pytrace binary.
package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// These can be overridden at build time via -ldflags "-X".
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Info is the machine-readable build description.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// Get returns the current build information.
func Get() Info {
	return Info{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
}

// Colored renders Version with each numeric component colored. Color
// output follows color.NoColor.
func Colored() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	s := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		s += "-" + suffix
	}
	return s
}

// Banner is the text printed by "pytrace version".
func Banner() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "pytrace %s\n", Colored())
	if GitCommit != "" {
		fmt.Fprintf(&sb, "commit: %s\n", GitCommit)
	}
	if BuildDate != "" {
		fmt.Fprintf(&sb, "built:  %s\n", BuildDate)
	}
	return sb.String()
}
