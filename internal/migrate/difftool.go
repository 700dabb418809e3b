package migrate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// BaselineMode selects what the diff tool treats as the "before" schema.
type BaselineMode string

const (
	// BaselineEmpty diffs against nothing: the script recreates the whole
	// schema from scratch.
	BaselineEmpty BaselineMode = "empty"
	// BaselineFromSnapshot diffs against the previous schema snapshot.
	BaselineFromSnapshot BaselineMode = "fromSnapshot"
)

// DiffRequest describes one external diff tool invocation.
type DiffRequest struct {
	BaselineMode     BaselineMode
	BaselinePath     string // previous schema artifact; set in fromSnapshot mode
	TargetSchemaPath string
	OutputPath       string // SQL script is captured here
}

// DiffTool produces a SQL migration script from a baseline and a target
// schema. Implementations are opaque to the orchestrator.
type DiffTool interface {
	Run(ctx context.Context, req DiffRequest) error
}

// CommandTool invokes the configured diff binary as a subprocess. The call is
// synchronous and carries no timeout of its own: a hung tool hangs the
// generation, matching how the rest of the pipeline sequences around it.
type CommandTool struct {
	Bin    string
	Args   []string // extra args placed before the generated ones
	Logger *zap.Logger
}

func (t *CommandTool) Run(ctx context.Context, req DiffRequest) error {
	args := append([]string{}, t.Args...)
	switch req.BaselineMode {
	case BaselineFromSnapshot:
		args = append(args, "--from-schema-datamodel", req.BaselinePath)
	default:
		args = append(args, "--from-empty")
	}
	args = append(args, "--to-schema-datamodel", req.TargetSchemaPath, "--script")

	out, err := os.Create(req.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create diff output file: %w", err)
	}
	defer func() { _ = out.Close() }()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Bin, args...)
	cmd.Stdout = out
	cmd.Stderr = &stderr

	if t.Logger != nil {
		t.Logger.Debug("invoking schema diff tool",
			zap.String("bin", t.Bin),
			zap.Strings("args", args))
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("diff tool %s failed: %w (stderr: %s)", t.Bin, err, stderr.String())
	}
	return nil
}
