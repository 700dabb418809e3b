package analyzer

import (
	"github.com/pullstream/schemaguard/internal/confirm"
	"github.com/pullstream/schemaguard/internal/model"
)

// ChangeType labels what structurally changed between manifest and request.
type ChangeType string

const (
	ChangeNewModel           ChangeType = "new_model"
	ChangeNewField           ChangeType = "new_field"
	ChangeRequiredFieldAdded ChangeType = "required_field_added"
	ChangeTypeConversion     ChangeType = "type_conversion"
	ChangeTypeWarning        ChangeType = "type_change_warning"
	ChangeDestructiveType    ChangeType = "destructive_type_change"
	ChangeLengthReduced      ChangeType = "string_length_reduced"
	ChangeOptionalToRequired ChangeType = "optional_to_required"
	ChangeFieldRemoved       ChangeType = "field_removed"
	ChangeModelRemoved       ChangeType = "model_removed"
)

// Severity of a single issue as it is surfaced to the caller.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one migration finding. FromType/ToType are set for type changes,
// FromLength/ToLength for string length reductions, ConfirmationPrompt for
// changes that require an explicit caller confirmation.
type Issue struct {
	Model              string         `json:"model"`
	Field              string         `json:"field,omitempty"`
	FieldID            string         `json:"fieldId,omitempty"`
	ChangeType         ChangeType     `json:"changeType"`
	Severity           Severity       `json:"severity"`
	FromType           model.DataType `json:"fromType,omitempty"`
	ToType             model.DataType `json:"toType,omitempty"`
	FromLength         int            `json:"fromLength,omitempty"`
	ToLength           int            `json:"toLength,omitempty"`
	Message            string         `json:"message"`
	ConfirmationPrompt string         `json:"confirmationPrompt,omitempty"`
}

// Key identifies an issue for confirmation lookup: "Model" or "Model.Field".
func (i Issue) Key() string {
	if i.Field == "" {
		return i.Model
	}
	return i.Model + "." + i.Field
}

// Report is the categorized outcome of one analysis run. It is ephemeral and
// produced fresh per run; the summary is always derived from the buckets.
type Report struct {
	IsFirstGeneration bool `json:"isFirstGeneration"`

	SafeChanges                  []Issue `json:"safeChanges,omitempty"`
	SafeTypeConversions          []Issue `json:"safeTypeConversions,omitempty"`
	RequiredFieldOnExistingModel []Issue `json:"requiredFieldOnExistingModel,omitempty"`
	TypeChangeWarnings           []Issue `json:"typeChangeWarnings,omitempty"`
	StringLengthReductions       []Issue `json:"stringLengthReductions,omitempty"`
	DestructiveTypeChanges       []Issue `json:"destructiveTypeChanges,omitempty"`
	OptionalToRequired           []Issue `json:"optionalToRequired,omitempty"`
	FieldRemovals                []Issue `json:"fieldRemovals,omitempty"`
	ModelRemovals                []Issue `json:"modelRemovals,omitempty"`
}

// Summary holds counts derived deterministically from the report's buckets.
type Summary struct {
	SafeCount           int  `json:"safeCount"`
	FixableCount        int  `json:"fixableCount"`
	WarningCount        int  `json:"warningCount"`
	DangerousCount      int  `json:"dangerousCount"`
	InfoCount           int  `json:"infoCount"`
	TotalIssues         int  `json:"totalIssues"`
	ModelsAffected      int  `json:"modelsAffected"`
	HasDangerousChanges bool `json:"hasDangerousChanges"`
	HasFixableChanges   bool `json:"hasFixableChanges"`
}

func (r *Report) buckets() [][]Issue {
	return [][]Issue{
		r.SafeChanges,
		r.SafeTypeConversions,
		r.RequiredFieldOnExistingModel,
		r.TypeChangeWarnings,
		r.StringLengthReductions,
		r.DestructiveTypeChanges,
		r.OptionalToRequired,
		r.FieldRemovals,
		r.ModelRemovals,
	}
}

// Summary derives the counts from the current bucket contents.
func (r *Report) Summary() Summary {
	s := Summary{
		SafeCount:      len(r.SafeChanges),
		FixableCount:   len(r.RequiredFieldOnExistingModel),
		WarningCount:   len(r.StringLengthReductions),
		DangerousCount: len(r.TypeChangeWarnings) + len(r.DestructiveTypeChanges) + len(r.OptionalToRequired),
		InfoCount:      len(r.SafeTypeConversions) + len(r.FieldRemovals) + len(r.ModelRemovals),
	}

	affected := make(map[string]struct{})
	for _, bucket := range r.buckets() {
		s.TotalIssues += len(bucket)
		for _, issue := range bucket {
			affected[issue.Model] = struct{}{}
		}
	}
	s.ModelsAffected = len(affected)

	s.HasDangerousChanges = s.DangerousCount > 0
	s.HasFixableChanges = s.FixableCount > 0
	return s
}

// HasIssues reports whether any bucket, informational or not, is non-empty.
func (r *Report) HasIssues() bool {
	for _, bucket := range r.buckets() {
		if len(bucket) > 0 {
			return true
		}
	}
	return false
}

// HasNonSafeIssues reports whether generation is gated. Removals and safe
// type conversions are informational and never set it.
func (r *Report) HasNonSafeIssues() bool {
	s := r.Summary()
	return s.DangerousCount > 0 || s.WarningCount > 0
}

// BlockingIssues returns every issue that gates generation, in bucket order.
func (r *Report) BlockingIssues() []Issue {
	var out []Issue
	out = append(out, r.TypeChangeWarnings...)
	out = append(out, r.StringLengthReductions...)
	out = append(out, r.DestructiveTypeChanges...)
	out = append(out, r.OptionalToRequired...)
	return out
}

// MissingConfirmations recomputes the expected token for every issue that
// requires explicit confirmation and returns the ones whose supplied token is
// absent or wrong, keyed by Issue.Key. Only optional-to-required changes
// require confirmation; removals are informational and never do.
func (r *Report) MissingConfirmations(supplied map[string]string) []Issue {
	var missing []Issue
	for _, issue := range r.OptionalToRequired {
		expected := confirm.BuildToken(confirm.TokenSpec{
			Action: confirm.ActionRequire,
			Model:  issue.Model,
			Field:  issue.Field,
		})
		if supplied[issue.Key()] != expected {
			missing = append(missing, issue)
		}
	}
	return missing
}
