package analyzer

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/pullstream/schemaguard/internal/confirm"
	"github.com/pullstream/schemaguard/internal/manifest"
	"github.com/pullstream/schemaguard/internal/model"
)

const msID = "4eef25cf-c340-49bf-8ecf-eef40ff8b647"

func intPtr(v int) *int { return &v }

func leadModel(fields map[string]model.Field) model.Model {
	return model.Model{Name: "Lead", Fields: fields}
}

func setOf(models ...model.Model) model.Set {
	set := model.Set{MicroserviceID: msID, Models: map[string]model.Model{}}
	for _, m := range models {
		set.Models[m.Name] = m
	}
	return set
}

func manifestOf(models ...model.Model) *manifest.Manifest {
	man := &manifest.Manifest{MicroserviceID: msID, Models: map[string]model.Model{}}
	for _, m := range models {
		man.Models[m.Name] = m
	}
	return man
}

func TestCompare_FirstGeneration(t *testing.T) {
	set := setOf(
		leadModel(map[string]model.Field{"amount": {ID: "f-1", Name: "amount", DataType: model.TypeInt}}),
		model.Model{Name: "Contact", Fields: map[string]model.Field{}},
	)

	report, err := Compare(nil, set)
	if err != nil {
		t.Fatalf("Compare() returned error: %v", err)
	}
	if !report.IsFirstGeneration {
		t.Error("IsFirstGeneration = false, want true")
	}
	if report.HasIssues() {
		t.Errorf("first generation report has issues: %+v", report)
	}
}

func TestCompare_MicroserviceMismatchIsFatal(t *testing.T) {
	man := manifestOf(leadModel(map[string]model.Field{}))
	man.MicroserviceID = "other-service"

	_, err := Compare(man, setOf(leadModel(map[string]model.Field{})))
	if !errors.Is(err, ErrMicroserviceMismatch) {
		t.Fatalf("Compare() error = %v, want ErrMicroserviceMismatch", err)
	}
}

func TestCompare_NewModelIsSafe(t *testing.T) {
	man := manifestOf(leadModel(map[string]model.Field{}))
	set := setOf(
		leadModel(map[string]model.Field{}),
		model.Model{Name: "Invoice", Fields: map[string]model.Field{
			// A required field on a brand-new model is safe: there are no
			// existing rows to violate it.
			"total": {ID: "f-9", Name: "total", DataType: model.TypeDecimal},
		}},
	)

	report, err := Compare(man, set)
	if err != nil {
		t.Fatalf("Compare() returned error: %v", err)
	}
	if len(report.SafeChanges) != 1 {
		t.Fatalf("SafeChanges = %+v, want exactly one entry", report.SafeChanges)
	}
	issue := report.SafeChanges[0]
	if issue.Model != "Invoice" || issue.ChangeType != ChangeNewModel {
		t.Errorf("new model issue = %+v, want new_model on Invoice", issue)
	}
	if len(report.RequiredFieldOnExistingModel) != 0 {
		t.Errorf("new model's fields leaked into the fixable bucket: %+v", report.RequiredFieldOnExistingModel)
	}
	if report.HasNonSafeIssues() {
		t.Error("new model must never gate generation")
	}
}

func TestCompare_RequiredFieldOnExistingModel(t *testing.T) {
	man := manifestOf(leadModel(map[string]model.Field{
		"name": {ID: "f-1", Name: "name", DataType: model.TypeString, IsOptional: true},
	}))
	set := setOf(leadModel(map[string]model.Field{
		"name":  {ID: "f-1", Name: "name", DataType: model.TypeString, IsOptional: true},
		"score": {ID: "f-2", Name: "score", DataType: model.TypeInt},
	}))

	report, err := Compare(man, set)
	if err != nil {
		t.Fatalf("Compare() returned error: %v", err)
	}
	if len(report.RequiredFieldOnExistingModel) != 1 {
		t.Fatalf("RequiredFieldOnExistingModel = %+v, want exactly one entry", report.RequiredFieldOnExistingModel)
	}
	issue := report.RequiredFieldOnExistingModel[0]
	if issue.Model != "Lead" || issue.Field != "score" || issue.FieldID != "f-2" {
		t.Errorf("fixable issue = %+v, want Lead.score with field id f-2", issue)
	}

	summary := report.Summary()
	if !summary.HasFixableChanges || summary.FixableCount != 1 {
		t.Errorf("summary = %+v, want one fixable change", summary)
	}
	if summary.HasDangerousChanges {
		t.Error("a fixable issue alone must not be dangerous")
	}
}

func TestCompare_RequiredFieldWithoutIDIsFatal(t *testing.T) {
	man := manifestOf(leadModel(map[string]model.Field{}))
	set := setOf(leadModel(map[string]model.Field{
		"score": {Name: "score", DataType: model.TypeInt},
	}))

	_, err := Compare(man, set)
	if !errors.Is(err, ErrMissingFieldID) {
		t.Fatalf("Compare() error = %v, want ErrMissingFieldID", err)
	}
}

func TestCompare_NewOptionalFieldIsSafe(t *testing.T) {
	man := manifestOf(leadModel(map[string]model.Field{}))
	set := setOf(leadModel(map[string]model.Field{
		"notes": {ID: "f-3", Name: "notes", DataType: model.TypeString, IsOptional: true},
	}))

	report, err := Compare(man, set)
	if err != nil {
		t.Fatalf("Compare() returned error: %v", err)
	}
	if len(report.SafeChanges) != 1 || report.SafeChanges[0].ChangeType != ChangeNewField {
		t.Errorf("SafeChanges = %+v, want one new_field entry", report.SafeChanges)
	}
}

func TestCompare_TypeChangeClassification(t *testing.T) {
	tests := []struct {
		name   string
		from   model.DataType
		to     model.DataType
		bucket func(*Report) []Issue
		gates  bool
	}{
		{"safe conversion", model.TypeInt, model.TypeString, func(r *Report) []Issue { return r.SafeTypeConversions }, false},
		{"warning conversion", model.TypeFloat, model.TypeInt, func(r *Report) []Issue { return r.TypeChangeWarnings }, true},
		{"destructive conversion", model.TypeInt, model.TypeBoolean, func(r *Report) []Issue { return r.DestructiveTypeChanges }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			man := manifestOf(leadModel(map[string]model.Field{
				"amount": {ID: "f-1", Name: "amount", DataType: tt.from, IsOptional: true},
			}))
			set := setOf(leadModel(map[string]model.Field{
				"amount": {ID: "f-1", Name: "amount", DataType: tt.to, IsOptional: true},
			}))

			report, err := Compare(man, set)
			if err != nil {
				t.Fatalf("Compare() returned error: %v", err)
			}
			bucket := tt.bucket(report)
			if len(bucket) != 1 {
				t.Fatalf("bucket = %+v, want exactly one entry", bucket)
			}
			issue := bucket[0]
			if issue.Field != "amount" || issue.FromType != tt.from || issue.ToType != tt.to {
				t.Errorf("issue = %+v, want amount %s->%s", issue, tt.from, tt.to)
			}
			if report.HasNonSafeIssues() != tt.gates {
				t.Errorf("HasNonSafeIssues() = %v, want %v", report.HasNonSafeIssues(), tt.gates)
			}
		})
	}
}

func TestCompare_OptionalToRequiredCarriesPrompt(t *testing.T) {
	man := manifestOf(leadModel(map[string]model.Field{
		"email": {ID: "f-4", Name: "email", DataType: model.TypeString, IsOptional: true},
	}))
	set := setOf(leadModel(map[string]model.Field{
		"email": {ID: "f-4", Name: "email", DataType: model.TypeString},
	}))

	report, err := Compare(man, set)
	if err != nil {
		t.Fatalf("Compare() returned error: %v", err)
	}
	if len(report.OptionalToRequired) != 1 {
		t.Fatalf("OptionalToRequired = %+v, want exactly one entry", report.OptionalToRequired)
	}

	issue := report.OptionalToRequired[0]
	want := confirm.BuildToken(confirm.TokenSpec{Action: confirm.ActionRequire, Model: "Lead", Field: "email"})
	if issue.ConfirmationPrompt != want {
		t.Errorf("ConfirmationPrompt = %q, want %q", issue.ConfirmationPrompt, want)
	}
	if !report.HasNonSafeIssues() {
		t.Error("optional to required must gate generation")
	}
}

func TestCompare_StringLengthReduction(t *testing.T) {
	man := manifestOf(leadModel(map[string]model.Field{
		"title": {ID: "f-5", Name: "title", DataType: model.TypeString, IsOptional: true, MaxLength: intPtr(255)},
	}))
	set := setOf(leadModel(map[string]model.Field{
		"title": {ID: "f-5", Name: "title", DataType: model.TypeString, IsOptional: true, MaxLength: intPtr(80)},
	}))

	report, err := Compare(man, set)
	if err != nil {
		t.Fatalf("Compare() returned error: %v", err)
	}
	if len(report.StringLengthReductions) != 1 {
		t.Fatalf("StringLengthReductions = %+v, want one entry", report.StringLengthReductions)
	}
	issue := report.StringLengthReductions[0]
	if issue.FromLength != 255 || issue.ToLength != 80 {
		t.Errorf("lengths = %d->%d, want 255->80", issue.FromLength, issue.ToLength)
	}
	summary := report.Summary()
	if summary.WarningCount != 1 || summary.DangerousCount != 0 {
		t.Errorf("summary = %+v, want one warning and nothing dangerous", summary)
	}
	if !report.HasNonSafeIssues() {
		t.Error("a length reduction must gate generation")
	}
}

func TestCompare_RemovalsAreInformational(t *testing.T) {
	man := manifestOf(
		leadModel(map[string]model.Field{
			"name":  {ID: "f-1", Name: "name", DataType: model.TypeString, IsOptional: true},
			"notes": {ID: "f-2", Name: "notes", DataType: model.TypeString, IsOptional: true},
		}),
		model.Model{Name: "Task", Fields: map[string]model.Field{}},
	)
	set := setOf(leadModel(map[string]model.Field{
		"name": {ID: "f-1", Name: "name", DataType: model.TypeString, IsOptional: true},
	}))

	report, err := Compare(man, set)
	if err != nil {
		t.Fatalf("Compare() returned error: %v", err)
	}
	if len(report.FieldRemovals) != 1 || report.FieldRemovals[0].Field != "notes" {
		t.Errorf("FieldRemovals = %+v, want one entry for notes", report.FieldRemovals)
	}
	if len(report.ModelRemovals) != 1 || report.ModelRemovals[0].Model != "Task" {
		t.Errorf("ModelRemovals = %+v, want one entry for Task", report.ModelRemovals)
	}
	if report.HasNonSafeIssues() {
		t.Error("removals must never gate generation")
	}
	summary := report.Summary()
	if summary.InfoCount != 2 {
		t.Errorf("InfoCount = %d, want 2", summary.InfoCount)
	}
}

func TestCompare_UnchangedSetHasNoIssues(t *testing.T) {
	fields := map[string]model.Field{
		"name":  {ID: "f-1", Name: "name", DataType: model.TypeString, IsOptional: true, MaxLength: intPtr(120)},
		"score": {ID: "f-2", Name: "score", DataType: model.TypeInt, IsOptional: true},
	}
	man := manifestOf(leadModel(fields))
	set := setOf(leadModel(fields))

	for i := 0; i < 2; i++ {
		report, err := Compare(man, set)
		if err != nil {
			t.Fatalf("Compare() run %d returned error: %v", i, err)
		}
		if report.HasIssues() {
			t.Fatalf("run %d: unchanged set produced issues: %+v", i, report)
		}
		if report.Summary().TotalIssues != 0 {
			t.Fatalf("run %d: TotalIssues = %d, want 0", i, report.Summary().TotalIssues)
		}
	}
}

func TestCompare_IndependentBucketsForSameField(t *testing.T) {
	// A field that both becomes required and changes type yields two
	// independently resolved issues.
	man := manifestOf(leadModel(map[string]model.Field{
		"amount": {ID: "f-1", Name: "amount", DataType: model.TypeInt, IsOptional: true},
	}))
	set := setOf(leadModel(map[string]model.Field{
		"amount": {ID: "f-1", Name: "amount", DataType: model.TypeString},
	}))

	report, err := Compare(man, set)
	if err != nil {
		t.Fatalf("Compare() returned error: %v", err)
	}
	if len(report.OptionalToRequired) != 1 {
		t.Errorf("OptionalToRequired = %+v, want one entry", report.OptionalToRequired)
	}
	if len(report.SafeTypeConversions) != 1 {
		t.Errorf("SafeTypeConversions = %+v, want one entry (Int->String is safe)", report.SafeTypeConversions)
	}
}

func TestReport_MissingConfirmations(t *testing.T) {
	man := manifestOf(leadModel(map[string]model.Field{
		"email": {ID: "f-4", Name: "email", DataType: model.TypeString, IsOptional: true},
		"phone": {ID: "f-5", Name: "phone", DataType: model.TypeString, IsOptional: true},
	}))
	set := setOf(leadModel(map[string]model.Field{
		"email": {ID: "f-4", Name: "email", DataType: model.TypeString},
		"phone": {ID: "f-5", Name: "phone", DataType: model.TypeString},
	}))

	report, err := Compare(man, set)
	if err != nil {
		t.Fatalf("Compare() returned error: %v", err)
	}

	missing := report.MissingConfirmations(nil)
	if len(missing) != 2 {
		t.Fatalf("with no confirmations, missing = %+v, want 2 entries", missing)
	}

	supplied := map[string]string{
		"Lead.email": confirm.BuildToken(confirm.TokenSpec{Action: confirm.ActionRequire, Model: "Lead", Field: "email"}),
		"Lead.phone": "REQUIRE Lead.phone", // wrong format
	}
	missing = report.MissingConfirmations(supplied)
	if len(missing) != 1 || missing[0].Field != "phone" {
		t.Fatalf("missing = %+v, want only Lead.phone", missing)
	}

	supplied["Lead.phone"] = confirm.BuildToken(confirm.TokenSpec{Action: confirm.ActionRequire, Model: "Lead", Field: "phone"})
	if missing := report.MissingConfirmations(supplied); len(missing) != 0 {
		t.Fatalf("missing = %+v, want none", missing)
	}
}

func TestAnalyzer_LoadsManifestFromStore(t *testing.T) {
	store := manifest.NewStore(filepath.Join(t.TempDir(), "manifest.json"))
	if err := store.Save(manifestOf(leadModel(map[string]model.Field{}))); err != nil {
		t.Fatalf("Save() returned error: %v", err)
	}

	a := New(store, nil)
	report, err := a.Analyze(setOf(
		leadModel(map[string]model.Field{}),
		model.Model{Name: "Invoice", Fields: map[string]model.Field{}},
	))
	if err != nil {
		t.Fatalf("Analyze() returned error: %v", err)
	}
	if report.IsFirstGeneration {
		t.Error("IsFirstGeneration = true with a stored manifest")
	}
	if len(report.SafeChanges) != 1 {
		t.Errorf("SafeChanges = %+v, want one new_model entry", report.SafeChanges)
	}
}
