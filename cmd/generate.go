package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pullstream/schemaguard/internal/analyzer"
	"github.com/pullstream/schemaguard/internal/autofix"
	"github.com/pullstream/schemaguard/internal/fieldstore"
	"github.com/pullstream/schemaguard/internal/manifest"
	"github.com/pullstream/schemaguard/internal/migrate"
	"github.com/pullstream/schemaguard/internal/model"
	"github.com/pullstream/schemaguard/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate <definition.json>",
	Short: "Analyze model changes and generate the schema and migration",
	Long: `Generate loads the model definition file, compares it against the last
generated manifest, and runs the full generation sequence. Dangerous changes
stop the run before any file is written; optional-to-required changes can be
confirmed with --confirm, and new required fields on existing models can be
auto-fixed with --apply-auto-fixes.`,
	Args: cobra.ExactArgs(1),
	Run:  runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().Bool("apply-auto-fixes", false, "Make new required fields on existing models optional instead of failing")
	generateCmd.Flags().StringArray("confirm", nil, "Confirmation token as 'Model.field=TOKEN' (repeatable)")
}

func runGenerate(cmd *cobra.Command, args []string) {
	rt, err := newRuntime(cmd)
	if err != nil {
		exitWithError(err)
	}
	defer rt.close()

	set, err := model.LoadDefinition(args[0])
	if err != nil {
		exitWithError(err)
	}
	if rt.cfg.MicroserviceID != "" && set.MicroserviceID != rt.cfg.MicroserviceID {
		exitWithError(fmt.Errorf("definition belongs to microservice %s, config expects %s",
			set.MicroserviceID, rt.cfg.MicroserviceID))
	}

	applyFixes, _ := cmd.Flags().GetBool("apply-auto-fixes")
	confirmFlags, _ := cmd.Flags().GetStringArray("confirm")
	confirmations, err := parseConfirmations(confirmFlags)
	if err != nil {
		exitWithError(err)
	}

	ctx := cmd.Context()

	fields, err := fieldstore.Open(rt.env.DatabaseURL, rt.logger)
	if err != nil {
		exitWithError(err)
	}
	defer func() { _ = fields.Close() }()

	if err := fields.EnsureSchema(ctx); err != nil {
		exitWithError(err)
	}

	manifests := manifest.NewStore(rt.env.ManifestPath)
	diffTool := &migrate.CommandTool{
		Bin:    rt.cfg.DiffTool.Bin,
		Args:   rt.cfg.DiffTool.Args,
		Logger: rt.logger,
	}
	if diffTool.Bin == "" {
		diffTool.Bin = "migrate-diff"
	}

	p := pipeline.New(
		manifests,
		analyzer.New(manifests, rt.logger),
		autofix.New(fields, rt.logger),
		fields,
		pipeline.SchemaGenerator{},
		migrate.New(diffTool, rt.logger),
		rt.logger,
	)

	result, err := p.Run(ctx, pipeline.Request{
		Models:         set,
		SchemaPath:     rt.env.SchemaPath,
		MigrationsDir:  rt.env.MigrationsDir,
		ApplyAutoFixes: applyFixes,
		Confirmations:  confirmations,
	})

	var blocked *pipeline.BlockedError
	if errors.As(err, &blocked) {
		fmt.Println("Generation blocked. No files were changed.")
		printIssues("Issues", blocked.Issues)
		exitWithError(errors.New("resolve or confirm the issues above and re-run"))
	}
	if err != nil {
		exitWithError(err)
	}

	printGenerateResult(result)
}

func printGenerateResult(result *pipeline.Result) {
	summary := result.Report.Summary()
	if result.Report.IsFirstGeneration {
		fmt.Println("First generation for this microservice.")
	}
	fmt.Printf("Changes: %d safe, %d info, %d fixed\n",
		summary.SafeCount, summary.InfoCount, len(result.AppliedFixes))
	for _, fix := range result.AppliedFixes {
		fmt.Printf("  auto-fix: %s.%s %s\n", fix.Model, fix.Field, fix.Fix)
	}
	if result.Migration.Created {
		fmt.Printf("Migration written to %s\n", result.Migration.MigrationDir)
	} else if result.Migration.SchemaUnchanged {
		fmt.Println("Schema unchanged, no migration created.")
	} else {
		fmt.Println("No migration created.")
	}
}

func parseConfirmations(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	confirmations := make(map[string]string, len(flags))
	for _, flag := range flags {
		key, token, ok := strings.Cut(flag, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed --confirm value %q, expected 'Model.field=TOKEN'", flag)
		}
		confirmations[key] = token
	}
	return confirmations, nil
}
