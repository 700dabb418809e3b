// Package migrate decides a diff strategy, drives the external schema-diff
// tool, and materializes migration scripts into named migration folders.
package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pullstream/schemaguard/internal/sqlcheck"
)

// MigrationFileName is the script file written into each migration folder.
const MigrationFileName = "migration.sql"

// previousSchemaArtifact is the transient baseline file handed to the diff
// tool in fromSnapshot mode. It lives in a temp directory and is always
// deleted, success or failure.
const previousSchemaArtifact = "schema.previous.prisma"

// Request carries the facts the orchestrator collects up front.
type Request struct {
	MigrationsDir    string
	TargetSchemaPath string

	// PreviousSchemaExisted reports whether a schema snapshot existed before
	// this generation overwrote it.
	PreviousSchemaExisted bool
	PreviousSchemaText    string
	CurrentSchemaText     string
}

// Result reports what the orchestrator did. A run that produced no migration
// is not a failure: the schema and code files are already on disk, so a
// missing script is a degraded-but-recoverable outcome.
type Result struct {
	Strategy        BaselineMode
	SchemaUnchanged bool
	MigrationDir    string
	Created         bool
}

// Orchestrator owns the diff/materialize sequence.
type Orchestrator struct {
	tool   DiffTool
	logger *zap.Logger
	now    func() time.Time
}

// New returns an orchestrator driving tool.
func New(tool DiffTool, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{tool: tool, logger: logger, now: time.Now}
}

// Run executes the diff sequence. It never returns an error: every failure
// past this point is logged with full context and generation continues
// without a migration artifact.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Result {
	result := &Result{}

	hasExistingMigrations := o.hasMigrationFolders(req.MigrationsDir)

	// Diagnostic only: an unchanged schema still goes through the diff so a
	// missing migration history can be rebuilt.
	result.SchemaUnchanged = req.PreviousSchemaExisted && req.PreviousSchemaText == req.CurrentSchemaText
	if result.SchemaUnchanged {
		o.logger.Info("generated schema is identical to the previous snapshot",
			zap.String("schema", req.TargetSchemaPath))
	}

	// Previous-baseline diffing needs both a previous snapshot and a
	// surviving migration history; anything else gets an empty baseline so a
	// coherent init migration always exists.
	if req.PreviousSchemaExisted && hasExistingMigrations {
		result.Strategy = BaselineFromSnapshot
	} else {
		result.Strategy = BaselineEmpty
	}

	tmpDir, err := os.MkdirTemp("", "schemaguard-diff-")
	if err != nil {
		o.logFailure("failed to create diff workspace", err, req, result)
		return result
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	diffReq := DiffRequest{
		BaselineMode:     result.Strategy,
		TargetSchemaPath: req.TargetSchemaPath,
		OutputPath:       filepath.Join(tmpDir, "diff.sql"),
	}
	if result.Strategy == BaselineFromSnapshot {
		diffReq.BaselinePath = filepath.Join(tmpDir, previousSchemaArtifact)
		if err := os.WriteFile(diffReq.BaselinePath, []byte(req.PreviousSchemaText), 0o644); err != nil {
			o.logFailure("failed to write previous schema baseline", err, req, result)
			return result
		}
	}

	if err := o.tool.Run(ctx, diffReq); err != nil {
		o.logFailure("schema diff tool failed", err, req, result)
		return result
	}

	script, err := os.ReadFile(diffReq.OutputPath)
	if err != nil {
		o.logFailure("failed to read diff output", err, req, result)
		return result
	}

	if !hasStatements(string(script)) {
		o.logger.Info("diff produced no statements, skipping migration folder",
			zap.String("strategy", string(result.Strategy)),
			zap.Int("script_bytes", len(script)))
		return result
	}

	qualifier := "init"
	if o.hasInitMigration(req.MigrationsDir) {
		qualifier = "update"
	}
	name := fmt.Sprintf("%d_%s", o.now().UnixMilli(), qualifier)
	dir := filepath.Join(req.MigrationsDir, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		o.logFailure("failed to create migration folder", err, req, result)
		return result
	}
	if err := os.WriteFile(filepath.Join(dir, MigrationFileName), script, 0o644); err != nil {
		o.logFailure("failed to write migration script", err, req, result)
		return result
	}

	for _, finding := range sqlcheck.Scan(string(script)) {
		o.logger.Warn("migration script contains a destructive statement",
			zap.String("code", finding.Code),
			zap.String("object", finding.Object),
			zap.String("detail", finding.Detail),
			zap.String("migration", name))
	}

	o.logger.Info("materialized migration",
		zap.String("migration", name),
		zap.String("strategy", string(result.Strategy)),
		zap.Int("script_bytes", len(script)))

	result.MigrationDir = dir
	result.Created = true
	return result
}

// logFailure records a degraded outcome with enough context for operator
// follow-up. The absence of a migration artifact is only visible here.
func (o *Orchestrator) logFailure(msg string, err error, req Request, result *Result) {
	o.logger.Error(msg,
		zap.Error(err),
		zap.String("strategy", string(result.Strategy)),
		zap.String("schema", req.TargetSchemaPath),
		zap.String("migrations_dir", req.MigrationsDir),
		zap.Bool("previous_schema_existed", req.PreviousSchemaExisted),
		zap.Bool("schema_unchanged", result.SchemaUnchanged))
}

// hasMigrationFolders reports whether at least one migration directory exists.
func (o *Orchestrator) hasMigrationFolders(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return true
		}
	}
	return false
}

// hasInitMigration reports whether an _init-suffixed folder already exists.
func (o *Orchestrator) hasInitMigration(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasSuffix(entry.Name(), "_init") {
			return true
		}
	}
	return false
}

// hasStatements reports whether the script contains anything besides blank
// and comment-only lines. Migrations are never created for no-op diffs.
func hasStatements(script string) bool {
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		return true
	}
	return false
}
