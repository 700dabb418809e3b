package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pullstream/schemaguard/internal/analyzer"
	"github.com/pullstream/schemaguard/internal/config"
	"github.com/pullstream/schemaguard/internal/observability"
)

// runtime bundles the resolved configuration and logger shared by every
// command.
type runtime struct {
	cfg    *config.Config
	env    *config.ResolvedEnvironment
	logger *zap.Logger
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	envName, _ := cmd.Flags().GetString("env")
	env, err := config.ResolveEnvironment(cfg, envName)
	if err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &runtime{cfg: cfg, env: env, logger: logger}, nil
}

func (r *runtime) close() {
	_ = r.logger.Sync()
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// printIssues writes a bucket of issues in a fixed, greppable layout.
func printIssues(heading string, issues []analyzer.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Printf("%s:\n", heading)
	for _, issue := range issues {
		fmt.Printf("  - [%s] %s\n", issue.ChangeType, issue.Message)
		if issue.ConfirmationPrompt != "" {
			fmt.Printf("      confirm with: --confirm '%s=%s'\n", issue.Key(), issue.ConfirmationPrompt)
		}
	}
}
