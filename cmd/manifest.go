package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pullstream/schemaguard/internal/manifest"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect or reset the generation manifest",
}

var manifestShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored manifest as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := newRuntime(cmd)
		if err != nil {
			exitWithError(err)
		}
		defer rt.close()

		m, err := manifest.NewStore(rt.env.ManifestPath).Load()
		if err != nil {
			exitWithError(err)
		}
		if m == nil {
			exitWithError(errors.New("no manifest found; run generate first"))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			exitWithError(err)
		}
	},
}

var manifestClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored manifest so the next run is a first generation",
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := newRuntime(cmd)
		if err != nil {
			exitWithError(err)
		}
		defer rt.close()

		if err := manifest.NewStore(rt.env.ManifestPath).Clear(); err != nil {
			exitWithError(err)
		}
		fmt.Println("Manifest cleared.")
	},
}

func init() {
	manifestCmd.AddCommand(manifestShowCmd)
	manifestCmd.AddCommand(manifestClearCmd)
	rootCmd.AddCommand(manifestCmd)
}
