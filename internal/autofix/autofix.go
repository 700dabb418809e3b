// Package autofix neutralizes fixable migration issues by mutating field
// metadata inside a single transaction.
package autofix

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pullstream/schemaguard/internal/analyzer"
	"github.com/pullstream/schemaguard/internal/manifest"
)

// Tx is the transactional handle the applier mutates through. Both operations
// happen inside the same transaction; a returned error rolls everything back.
type Tx interface {
	MakeFieldOptional(ctx context.Context, fieldID string) error
	RecordAppliedFix(ctx context.Context, fix manifest.AppliedFix) error
}

// Store provides the transaction primitive.
type Store interface {
	RunInTransaction(ctx context.Context, fn func(Tx) error) error
}

// Applier applies fixes for an analysis report's fixable bucket.
type Applier struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// New returns an applier writing through store.
func New(store Store, logger *zap.Logger) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{store: store, logger: logger, now: time.Now}
}

// Apply flips every fixable field to optional inside one transaction and
// returns the audit records for the applied fixes. Either all fixes land or
// none do: an issue without a field identifier aborts the whole transaction.
// Nothing to fix is a success with an empty list.
func (a *Applier) Apply(ctx context.Context, issues []analyzer.Issue) ([]manifest.AppliedFix, error) {
	if len(issues) == 0 {
		return nil, nil
	}

	fixes := make([]manifest.AppliedFix, 0, len(issues))
	err := a.store.RunInTransaction(ctx, func(tx Tx) error {
		for _, issue := range issues {
			if issue.FieldID == "" {
				return fmt.Errorf("cannot fix %q.%q: %w", issue.Model, issue.Field, analyzer.ErrMissingFieldID)
			}
			if err := tx.MakeFieldOptional(ctx, issue.FieldID); err != nil {
				return fmt.Errorf("failed to make %q.%q optional: %w", issue.Model, issue.Field, err)
			}
			fix := manifest.AppliedFix{
				AppliedAt: a.now().UTC(),
				Model:     issue.Model,
				Field:     issue.Field,
				FieldID:   issue.FieldID,
				Fix:       manifest.FixMadeOptional,
				Reason:    "required field added to an existing model",
			}
			if err := tx.RecordAppliedFix(ctx, fix); err != nil {
				return fmt.Errorf("failed to record fix for %q.%q: %w", issue.Model, issue.Field, err)
			}
			fixes = append(fixes, fix)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, fix := range fixes {
		a.logger.Info("applied auto-fix",
			zap.String("model", fix.Model),
			zap.String("field", fix.Field),
			zap.String("field_id", fix.FieldID),
			zap.String("fix", fix.Fix))
	}
	return fixes, nil
}
