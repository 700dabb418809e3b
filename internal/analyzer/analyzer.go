// Package analyzer compares the requested model set against the persisted
// manifest and categorizes every structural difference by risk.
package analyzer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pullstream/schemaguard/internal/confirm"
	"github.com/pullstream/schemaguard/internal/manifest"
	"github.com/pullstream/schemaguard/internal/model"
	"github.com/pullstream/schemaguard/internal/risk"
)

// ErrMicroserviceMismatch is returned when the manifest on disk belongs to a
// different microservice than the one being regenerated. A manifest must
// never be silently reused across microservices.
var ErrMicroserviceMismatch = errors.New("manifest microservice id mismatch")

// ErrMissingFieldID is returned when a fixable issue has no stable field
// identifier. The fix step needs the id to target its update, so a missing id
// is a programming error in the caller, not a recoverable validation issue.
var ErrMissingFieldID = errors.New("fixable issue is missing a field id")

// Analyzer produces migration issue reports from the manifest store.
type Analyzer struct {
	manifests *manifest.Store
	logger    *zap.Logger
}

// New returns an analyzer reading previous snapshots from manifests.
func New(manifests *manifest.Store, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{manifests: manifests, logger: logger}
}

// Analyze loads the manifest for the requested microservice and compares the
// current model set against it.
func (a *Analyzer) Analyze(current model.Set) (*Report, error) {
	previous, err := a.manifests.Load()
	if err != nil {
		return nil, err
	}
	report, err := Compare(previous, current)
	if err != nil {
		return nil, err
	}

	summary := report.Summary()
	a.logger.Info("analyzed model changes",
		zap.String("microservice", current.MicroserviceID),
		zap.Bool("first_generation", report.IsFirstGeneration),
		zap.Int("total_issues", summary.TotalIssues),
		zap.Int("dangerous", summary.DangerousCount),
		zap.Int("fixable", summary.FixableCount),
		zap.Int("models_affected", summary.ModelsAffected))
	return report, nil
}

// Compare is the pure core of the analyzer: previous may be nil (first
// generation). Models and fields are walked in sorted name order so reports
// are deterministic; all comparisons are by key lookup.
func Compare(previous *manifest.Manifest, current model.Set) (*Report, error) {
	report := &Report{}

	if previous == nil {
		// First generation: every model is implicitly new, nothing to analyze.
		report.IsFirstGeneration = true
		return report, nil
	}

	if previous.MicroserviceID != current.MicroserviceID {
		return nil, fmt.Errorf("manifest belongs to microservice %q but %q was requested: %w",
			previous.MicroserviceID, current.MicroserviceID, ErrMicroserviceMismatch)
	}

	for _, name := range current.ModelNames() {
		currentModel := current.Models[name]
		previousModel, exists := previous.Models[name]
		if !exists {
			report.SafeChanges = append(report.SafeChanges, Issue{
				Model:      name,
				ChangeType: ChangeNewModel,
				Severity:   SeverityInfo,
				Message:    fmt.Sprintf("model %q is new and will be created", name),
			})
			continue
		}
		if err := compareFields(report, name, previousModel, currentModel); err != nil {
			return nil, err
		}
	}

	// Models present in the manifest but absent now. Informational only: the
	// generator stops emitting them but nothing is dropped automatically.
	for _, name := range sortedModelNames(previous.Models) {
		if _, exists := current.Models[name]; !exists {
			report.ModelRemovals = append(report.ModelRemovals, Issue{
				Model:      name,
				ChangeType: ChangeModelRemoved,
				Severity:   SeverityInfo,
				Message:    fmt.Sprintf("model %q was removed from the definition; its table is left in place", name),
			})
		}
	}

	return report, nil
}

func compareFields(report *Report, modelName string, previous, current model.Model) error {
	for _, fieldName := range current.FieldNames() {
		currentField := current.Fields[fieldName]
		previousField, exists := previous.Fields[fieldName]
		if !exists {
			if err := reportNewField(report, modelName, currentField); err != nil {
				return err
			}
			continue
		}

		if previousField.DataType != currentField.DataType {
			reportTypeChange(report, modelName, previousField, currentField)
		}

		if previousField.IsOptional && !currentField.IsOptional {
			report.OptionalToRequired = append(report.OptionalToRequired, Issue{
				Model:      modelName,
				Field:      fieldName,
				FieldID:    currentField.ID,
				ChangeType: ChangeOptionalToRequired,
				Severity:   SeverityError,
				Message: fmt.Sprintf("field %q.%q changes from optional to required; existing null rows would violate the constraint",
					modelName, fieldName),
				ConfirmationPrompt: confirm.BuildToken(confirm.TokenSpec{
					Action: confirm.ActionRequire,
					Model:  modelName,
					Field:  fieldName,
				}),
			})
		}

		if from, to, reduced := lengthReduction(previousField, currentField); reduced {
			report.StringLengthReductions = append(report.StringLengthReductions, Issue{
				Model:      modelName,
				Field:      fieldName,
				FieldID:    currentField.ID,
				ChangeType: ChangeLengthReduced,
				Severity:   SeverityWarning,
				FromLength: from,
				ToLength:   to,
				Message: fmt.Sprintf("field %q.%q max length shrinks from %d to %d; longer values would be truncated",
					modelName, fieldName, from, to),
			})
		}
	}

	for _, fieldName := range sortedFieldNames(previous.Fields) {
		if _, exists := current.Fields[fieldName]; !exists {
			report.FieldRemovals = append(report.FieldRemovals, Issue{
				Model:      modelName,
				Field:      fieldName,
				ChangeType: ChangeFieldRemoved,
				Severity:   SeverityInfo,
				Message:    fmt.Sprintf("field %q.%q was removed from the definition; its column is left in place", modelName, fieldName),
			})
		}
	}

	return nil
}

func reportNewField(report *Report, modelName string, field model.Field) error {
	if field.IsOptional {
		report.SafeChanges = append(report.SafeChanges, Issue{
			Model:      modelName,
			Field:      field.Name,
			FieldID:    field.ID,
			ChangeType: ChangeNewField,
			Severity:   SeverityInfo,
			Message:    fmt.Sprintf("optional field %q.%q is new and will be added", modelName, field.Name),
		})
		return nil
	}

	// A new required field is fixable (forced optional), but only if the fix
	// step can target it by id.
	if field.ID == "" {
		return fmt.Errorf("required field %q.%q: %w", modelName, field.Name, ErrMissingFieldID)
	}
	report.RequiredFieldOnExistingModel = append(report.RequiredFieldOnExistingModel, Issue{
		Model:      modelName,
		Field:      field.Name,
		FieldID:    field.ID,
		ChangeType: ChangeRequiredFieldAdded,
		Severity:   SeverityError,
		Message: fmt.Sprintf("required field %q.%q added to an existing model; existing rows have no value for it",
			modelName, field.Name),
	})
	return nil
}

func reportTypeChange(report *Report, modelName string, previous, current model.Field) {
	issue := Issue{
		Model:    modelName,
		Field:    current.Name,
		FieldID:  current.ID,
		FromType: previous.DataType,
		ToType:   current.DataType,
	}

	switch risk.Classify(previous.DataType, current.DataType) {
	case risk.LevelSafe:
		issue.ChangeType = ChangeTypeConversion
		issue.Severity = SeverityInfo
		issue.Message = fmt.Sprintf("field %q.%q converts from %s to %s; the cast is lossless",
			modelName, current.Name, previous.DataType, current.DataType)
		report.SafeTypeConversions = append(report.SafeTypeConversions, issue)
	case risk.LevelWarning:
		issue.ChangeType = ChangeTypeWarning
		issue.Severity = SeverityError
		issue.Message = fmt.Sprintf("field %q.%q changes from %s to %s; the cast can lose data",
			modelName, current.Name, previous.DataType, current.DataType)
		report.TypeChangeWarnings = append(report.TypeChangeWarnings, issue)
	case risk.LevelBlocking:
		issue.ChangeType = ChangeDestructiveType
		issue.Severity = SeverityError
		issue.Message = fmt.Sprintf("field %q.%q changes from %s to %s; the column would be dropped and recreated",
			modelName, current.Name, previous.DataType, current.DataType)
		report.DestructiveTypeChanges = append(report.DestructiveTypeChanges, issue)
	}
}

// lengthReduction reports a shrinking max length on a string field. A side
// without a max length is unbounded and never counts as a reduction target.
func lengthReduction(previous, current model.Field) (from, to int, reduced bool) {
	if current.DataType != model.TypeString {
		return 0, 0, false
	}
	if previous.MaxLength == nil || current.MaxLength == nil {
		return 0, 0, false
	}
	if *current.MaxLength >= *previous.MaxLength {
		return 0, 0, false
	}
	return *previous.MaxLength, *current.MaxLength, true
}

func sortedModelNames(models map[string]model.Model) []string {
	return model.Set{Models: models}.ModelNames()
}

func sortedFieldNames(fields map[string]model.Field) []string {
	return model.Model{Fields: fields}.FieldNames()
}
