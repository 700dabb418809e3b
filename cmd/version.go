package cmd

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the Schemaguard version",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		fmt.Println(buildVersion(info, ok))
	},
}

// buildVersion renders a one-line version string from the binary's embedded
// build info: module version, short VCS revision with a dirty marker, and the
// commit timestamp when stamped.
func buildVersion(info *debug.BuildInfo, ok bool) string {
	if !ok || info == nil {
		return "unknown"
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	var b strings.Builder
	switch v := info.Main.Version; v {
	case "", "(devel)":
		b.WriteString("dev")
	default:
		b.WriteString(v)
	}

	if rev := settings["vcs.revision"]; rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if settings["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		fmt.Fprintf(&b, " (%s)", rev)
	}
	if ts := settings["vcs.time"]; ts != "" {
		fmt.Fprintf(&b, " built %s", ts)
	}
	return b.String()
}
