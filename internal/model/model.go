// Package model holds the data-model snapshot types shared by the analyzer,
// the manifest store, and the schema renderer.
package model

import "sort"

// DataType is a platform field type, matching the vocabulary the model
// exporters emit.
type DataType string

const (
	TypeInt      DataType = "Int"
	TypeFloat    DataType = "Float"
	TypeDecimal  DataType = "Decimal"
	TypeString   DataType = "String"
	TypeBoolean  DataType = "Boolean"
	TypeDateTime DataType = "DateTime"
	TypeUUID     DataType = "UUID"
	TypeJSON     DataType = "Json"
	TypeBytes    DataType = "Bytes"
	TypeEnum     DataType = "Enum"
)

// Field is a single field of a generated model. Only DataType, IsOptional,
// MaxLength, and ID participate in migration analysis; the rest of the
// metadata rides along through the manifest so regeneration is lossless.
type Field struct {
	ID                string   `json:"id,omitempty"`
	Name              string   `json:"name"`
	Label             string   `json:"label,omitempty"`
	Description       string   `json:"description,omitempty"`
	Order             int      `json:"order,omitempty"`
	DataType          DataType `json:"dataType"`
	IsOptional        bool     `json:"isOptional"`
	IsUnique          bool     `json:"isUnique,omitempty"`
	MaxLength         *int     `json:"maxLength,omitempty"`
	DefaultValue      *string  `json:"defaultValue,omitempty"`
	EnumDefnID        string   `json:"enumDefnId,omitempty"`
	ForeignKeyModelID string   `json:"foreignKeyModelId,omitempty"`
	OnDelete          string   `json:"onDelete,omitempty"`
}

// Model is a single generated model.
type Model struct {
	ID          string           `json:"id,omitempty"`
	Name        string           `json:"name"`
	Label       string           `json:"label,omitempty"`
	Description string           `json:"description,omitempty"`
	Order       int              `json:"order,omitempty"`
	Fields      map[string]Field `json:"fields"`
}

// FieldNames returns the model's field names in sorted order. All comparisons
// are by key lookup; sorting only makes reports and rendered schemas
// deterministic.
func (m Model) FieldNames() []string {
	names := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set is the full model set requested for one microservice generation.
type Set struct {
	MicroserviceID string           `json:"microserviceId"`
	Models         map[string]Model `json:"models"`
}

// ModelNames returns the set's model names in sorted order.
func (s Set) ModelNames() []string {
	names := make([]string, 0, len(s.Models))
	for name := range s.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the set. The pipeline mutates its working copy
// when substituting auto-fixed field metadata and must not touch the caller's.
func (s Set) Clone() Set {
	out := Set{MicroserviceID: s.MicroserviceID}
	if s.Models == nil {
		return out
	}
	out.Models = make(map[string]Model, len(s.Models))
	for name, m := range s.Models {
		cm := m
		cm.Fields = make(map[string]Field, len(m.Fields))
		for fname, f := range m.Fields {
			cf := f
			if f.MaxLength != nil {
				v := *f.MaxLength
				cf.MaxLength = &v
			}
			if f.DefaultValue != nil {
				v := *f.DefaultValue
				cf.DefaultValue = &v
			}
			cm.Fields[fname] = cf
		}
		out.Models[name] = cm
	}
	return out
}
