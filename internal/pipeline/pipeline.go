// Package pipeline sequences a full generation run: analysis, fail-fast
// gating, auto-fixes, schema generation, diff orchestration, and the final
// manifest rewrite.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pullstream/schemaguard/internal/analyzer"
	"github.com/pullstream/schemaguard/internal/autofix"
	"github.com/pullstream/schemaguard/internal/manifest"
	"github.com/pullstream/schemaguard/internal/migrate"
	"github.com/pullstream/schemaguard/internal/model"
	"github.com/pullstream/schemaguard/internal/schemagen"
)

// SchemaGenerator is the default Generator: it renders the datasource schema
// file and nothing else.
type SchemaGenerator struct{}

func (SchemaGenerator) Generate(_ context.Context, set model.Set, schemaPath string) error {
	return schemagen.WriteSchema(schemaPath, set)
}

// Generator produces the schema (and code) artifacts for a model set. The
// code scaffolding side is an external collaborator; the pipeline only needs
// the schema file to exist afterwards.
type Generator interface {
	Generate(ctx context.Context, set model.Set, schemaPath string) error
}

// FieldSyncer pushes the accepted definition's field rows into the metadata
// store. The pipeline calls it only once every gate has passed, so a blocked
// generation never rewrites stored metadata.
type FieldSyncer interface {
	SyncFields(ctx context.Context, set model.Set) error
}

// BlockedError is the single aggregated payload for a generation stopped by
// blocking issues, so a caller can present every required confirmation or fix
// at once instead of iterating.
type BlockedError struct {
	Issues []analyzer.Issue
}

func (e *BlockedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "generation blocked by %d issue(s):", len(e.Issues))
	for _, issue := range e.Issues {
		fmt.Fprintf(&b, "\n  [%s] %s", issue.ChangeType, issue.Message)
		if issue.ConfirmationPrompt != "" {
			fmt.Fprintf(&b, " (confirm with %s)", issue.ConfirmationPrompt)
		}
	}
	return b.String()
}

// Request is one generation run.
type Request struct {
	Models         model.Set
	SchemaPath     string
	MigrationsDir  string
	ApplyAutoFixes bool
	// Confirmations maps issue keys ("Model.field") to confirmation tokens.
	Confirmations map[string]string
}

// Result is the outcome of a successful run.
type Result struct {
	Report       *analyzer.Report
	AppliedFixes []manifest.AppliedFix
	Migration    *migrate.Result
}

// Pipeline wires the generation sequence together. All collaborators are
// injected; the pipeline holds no ambient state.
type Pipeline struct {
	manifests    *manifest.Store
	analyzer     *analyzer.Analyzer
	fixes        *autofix.Applier // nil disables auto-fixing
	syncer       FieldSyncer      // nil disables metadata sync
	generator    Generator
	orchestrator *migrate.Orchestrator
	logger       *zap.Logger
	now          func() time.Time
}

// New assembles a pipeline. fixes may be nil when no transactional store is
// configured; requests with ApplyAutoFixes then fail if anything is fixable.
func New(manifests *manifest.Store, a *analyzer.Analyzer, fixes *autofix.Applier,
	syncer FieldSyncer, generator Generator, orchestrator *migrate.Orchestrator, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		manifests:    manifests,
		analyzer:     a,
		fixes:        fixes,
		syncer:       syncer,
		generator:    generator,
		orchestrator: orchestrator,
		logger:       logger,
		now:          time.Now,
	}
}

// Run executes one generation. The run is single-flight per microservice:
// nothing here guards against two concurrent generations for the same
// microservice id, which would race on the manifest and on migration folder
// naming.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	report, err := p.analyzer.Analyze(req.Models)
	if err != nil {
		return nil, err
	}

	// Fail fast before touching any file. Type warnings, destructive type
	// changes and length reductions can only be resolved by changing the
	// model definition; optional-to-required passes with the exact token.
	var blocked []analyzer.Issue
	blocked = append(blocked, report.TypeChangeWarnings...)
	blocked = append(blocked, report.StringLengthReductions...)
	blocked = append(blocked, report.DestructiveTypeChanges...)
	blocked = append(blocked, report.MissingConfirmations(req.Confirmations)...)
	if len(blocked) > 0 {
		return nil, &BlockedError{Issues: blocked}
	}

	if len(report.RequiredFieldOnExistingModel) > 0 {
		if !req.ApplyAutoFixes {
			return nil, &BlockedError{Issues: report.RequiredFieldOnExistingModel}
		}
		if p.fixes == nil {
			return nil, errors.New("auto-fixes requested but no transactional store is configured")
		}
	}

	// Every gate has passed. Only now does the accepted definition reach the
	// metadata store, so a blocked run leaves stored field rows untouched.
	// The sync must land before the fixes, which update those same rows.
	if p.syncer != nil {
		if err := p.syncer.SyncFields(ctx, req.Models); err != nil {
			return nil, fmt.Errorf("failed to sync field metadata: %w", err)
		}
	}

	working := req.Models.Clone()

	var applied []manifest.AppliedFix
	if len(report.RequiredFieldOnExistingModel) > 0 {
		applied, err = p.fixes.Apply(ctx, report.RequiredFieldOnExistingModel)
		if err != nil {
			return nil, fmt.Errorf("auto-fix phase failed: %w", err)
		}
		substituteFixes(&working, applied)
	}

	// The previous schema snapshot is read before generation overwrites it.
	previousText, previousExisted := readSchema(req.SchemaPath)

	if err := p.generator.Generate(ctx, working, req.SchemaPath); err != nil {
		return nil, fmt.Errorf("schema generation failed: %w", err)
	}
	currentText, _ := readSchema(req.SchemaPath)

	migration := p.orchestrator.Run(ctx, migrate.Request{
		MigrationsDir:         req.MigrationsDir,
		TargetSchemaPath:      req.SchemaPath,
		PreviousSchemaExisted: previousExisted,
		PreviousSchemaText:    previousText,
		CurrentSchemaText:     currentText,
	})

	if err := p.saveManifest(req.Models.MicroserviceID, working, applied); err != nil {
		return nil, err
	}

	p.logger.Info("generation complete",
		zap.String("microservice", req.Models.MicroserviceID),
		zap.Bool("first_generation", report.IsFirstGeneration),
		zap.Int("fixes_applied", len(applied)),
		zap.Bool("migration_created", migration.Created))

	return &Result{Report: report, AppliedFixes: applied, Migration: migration}, nil
}

// substituteFixes folds the applied fixes back into the working model set so
// the generated schema matches the persisted metadata.
func substituteFixes(working *model.Set, fixes []manifest.AppliedFix) {
	for _, fix := range fixes {
		m, ok := working.Models[fix.Model]
		if !ok {
			continue
		}
		f, ok := m.Fields[fix.Field]
		if !ok {
			continue
		}
		f.IsOptional = true
		m.Fields[fix.Field] = f
	}
}

// saveManifest rewrites the manifest in full, carrying forward the audit
// trail of previously applied fixes.
func (p *Pipeline) saveManifest(microserviceID string, working model.Set, applied []manifest.AppliedFix) error {
	previous, err := p.manifests.Load()
	if err != nil {
		return err
	}

	m := &manifest.Manifest{
		Version:        manifest.Version,
		MicroserviceID: microserviceID,
		GeneratedAt:    p.now().UTC(),
		Models:         working.Models,
	}
	if previous != nil {
		m.AppliedFixes = previous.AppliedFixes
	}
	m.AppliedFixes = append(m.AppliedFixes, applied...)

	if err := p.manifests.Save(m); err != nil {
		return fmt.Errorf("failed to persist manifest: %w", err)
	}
	return nil
}

func readSchema(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
