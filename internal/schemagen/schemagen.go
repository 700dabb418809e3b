// Package schemagen renders the ORM schema file for a model set. The
// rendered file is the "target" artifact handed to the external schema-diff
// tool; the rest of the code scaffolding is produced elsewhere.
package schemagen

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pullstream/schemaguard/internal/model"
)

// typeNames maps platform data types to ORM schema scalar types.
var typeNames = map[model.DataType]string{
	model.TypeInt:      "Int",
	model.TypeFloat:    "Float",
	model.TypeDecimal:  "Decimal",
	model.TypeString:   "String",
	model.TypeBoolean:  "Boolean",
	model.TypeDateTime: "DateTime",
	// UUID and Enum values are stored as strings; the platform keeps enum
	// membership and UUID semantics in its own metadata.
	model.TypeUUID:  "String",
	model.TypeEnum:  "String",
	model.TypeJSON:  "Json",
	model.TypeBytes: "Bytes",
}

// Render produces the schema file text for the set. Models are emitted in
// declared order (falling back to name) and fields likewise, so regenerating
// an unchanged set yields byte-identical output.
func Render(set model.Set) string {
	var b strings.Builder

	b.WriteString("// Generated by schemaguard. Do not edit by hand.\n")

	for _, m := range orderedModels(set) {
		b.WriteString("\nmodel ")
		b.WriteString(m.Name)
		b.WriteString(" {\n")
		b.WriteString("  id String @id @default(uuid())\n")
		for _, f := range orderedFields(m) {
			b.WriteString("  ")
			b.WriteString(renderField(f))
			b.WriteString("\n")
		}
		b.WriteString("}\n")
	}

	return b.String()
}

// WriteSchema renders the set and writes it to path, creating parent
// directories as needed.
func WriteSchema(path string, set model.Set) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create schema directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(Render(set)), 0o644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	return nil
}

func renderField(f model.Field) string {
	typeName, ok := typeNames[f.DataType]
	if !ok {
		typeName = "String"
	}

	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteString(" ")
	b.WriteString(typeName)
	if f.IsOptional {
		b.WriteString("?")
	}
	if f.IsUnique {
		b.WriteString(" @unique")
	}
	if f.DataType == model.TypeString && f.MaxLength != nil {
		b.WriteString(fmt.Sprintf(" @db.VarChar(%d)", *f.MaxLength))
	}
	if f.DataType == model.TypeUUID {
		b.WriteString(" @db.Uuid")
	}
	if f.DefaultValue != nil && !f.IsOptional {
		b.WriteString(fmt.Sprintf(" @default(%s)", renderDefault(f)))
	}
	return b.String()
}

func renderDefault(f model.Field) string {
	switch f.DataType {
	case model.TypeInt, model.TypeFloat, model.TypeDecimal, model.TypeBoolean:
		return *f.DefaultValue
	default:
		return fmt.Sprintf("%q", *f.DefaultValue)
	}
}

func orderedModels(set model.Set) []model.Model {
	models := make([]model.Model, 0, len(set.Models))
	for _, name := range set.ModelNames() {
		models = append(models, set.Models[name])
	}
	sort.SliceStable(models, func(i, j int) bool {
		if models[i].Order != models[j].Order {
			return models[i].Order < models[j].Order
		}
		return models[i].Name < models[j].Name
	})
	return models
}

func orderedFields(m model.Model) []model.Field {
	fields := make([]model.Field, 0, len(m.Fields))
	for _, name := range m.FieldNames() {
		fields = append(fields, m.Fields[name])
	}
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Order != fields[j].Order {
			return fields[i].Order < fields[j].Order
		}
		return fields[i].Name < fields[j].Name
	})
	return fields
}
