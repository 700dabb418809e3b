package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pullstream/schemaguard/internal/analyzer"
	"github.com/pullstream/schemaguard/internal/manifest"
	"github.com/pullstream/schemaguard/internal/model"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <definition.json>",
	Short: "Report what a generation would change, without touching any file",
	Args:  cobra.ExactArgs(1),
	Run:   runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Bool("json", false, "Emit the full report as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	rt, err := newRuntime(cmd)
	if err != nil {
		exitWithError(err)
	}
	defer rt.close()

	set, err := model.LoadDefinition(args[0])
	if err != nil {
		exitWithError(err)
	}

	manifests := manifest.NewStore(rt.env.ManifestPath)
	report, err := analyzer.New(manifests, rt.logger).Analyze(set)
	if err != nil {
		exitWithError(err)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			exitWithError(err)
		}
	} else {
		printReport(report)
	}

	if len(report.BlockingIssues()) > 0 {
		exitWithError(errors.New("generation would be blocked"))
	}
}

func printReport(report *analyzer.Report) {
	if report.IsFirstGeneration {
		fmt.Println("No manifest found: everything counts as a first generation.")
		return
	}

	summary := report.Summary()
	fmt.Printf("Summary: %d safe, %d fixable, %d warning, %d dangerous, %d info\n",
		summary.SafeCount, summary.FixableCount, summary.WarningCount,
		summary.DangerousCount, summary.InfoCount)

	printIssues("Safe changes", report.SafeChanges)
	printIssues("Safe type conversions", report.SafeTypeConversions)
	printIssues("Fixable (required field on existing model)", report.RequiredFieldOnExistingModel)
	printIssues("Warnings", report.TypeChangeWarnings)
	printIssues("String length reductions", report.StringLengthReductions)
	printIssues("Destructive type changes", report.DestructiveTypeChanges)
	printIssues("Optional to required", report.OptionalToRequired)
	printIssues("Removed fields", report.FieldRemovals)
	printIssues("Removed models", report.ModelRemovals)

	if !report.HasIssues() {
		fmt.Println("No changes detected.")
	}
}
