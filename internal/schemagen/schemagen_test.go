package schemagen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pullstream/schemaguard/internal/model"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func sampleSet() model.Set {
	return model.Set{
		MicroserviceID: "ms-1",
		Models: map[string]model.Model{
			"Lead": {
				Name:  "Lead",
				Order: 2,
				Fields: map[string]model.Field{
					"name":   {ID: "f-1", Name: "name", Order: 1, DataType: model.TypeString, MaxLength: intPtr(120)},
					"score":  {ID: "f-2", Name: "score", Order: 2, DataType: model.TypeInt, IsOptional: true},
					"owner":  {ID: "f-3", Name: "owner", Order: 3, DataType: model.TypeUUID, IsOptional: true},
					"active": {ID: "f-4", Name: "active", Order: 4, DataType: model.TypeBoolean, DefaultValue: strPtr("true")},
				},
			},
			"Contact": {
				Name:  "Contact",
				Order: 1,
				Fields: map[string]model.Field{
					"email": {ID: "f-5", Name: "email", Order: 1, DataType: model.TypeString, IsUnique: true},
				},
			},
		},
	}
}

func TestRender_ModelAndFieldOrder(t *testing.T) {
	out := Render(sampleSet())

	contactAt := strings.Index(out, "model Contact {")
	leadAt := strings.Index(out, "model Lead {")
	if contactAt == -1 || leadAt == -1 {
		t.Fatalf("missing model blocks in output:\n%s", out)
	}
	if contactAt > leadAt {
		t.Error("Contact (order 1) rendered after Lead (order 2)")
	}
}

func TestRender_FieldAttributes(t *testing.T) {
	out := Render(sampleSet())

	wantLines := []string{
		"name String @db.VarChar(120)",
		"score Int?",
		"owner String? @db.Uuid",
		"active Boolean @default(true)",
		"email String @unique",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_IsDeterministic(t *testing.T) {
	first := Render(sampleSet())
	for i := 0; i < 5; i++ {
		if got := Render(sampleSet()); got != first {
			t.Fatal("Render() output changed between calls on the same set")
		}
	}
}

func TestWriteSchema_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prisma", "schema.prisma")

	if err := WriteSchema(path, sampleSet()); err != nil {
		t.Fatalf("WriteSchema() returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written schema: %v", err)
	}
	if !strings.Contains(string(data), "model Lead {") {
		t.Error("written schema missing Lead model block")
	}
}
