package model

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed definition.schema.json
var definitionSchema string

// definitionFile is the on-disk shape of a model definition: the model
// exporters emit models and fields as ordered arrays, not maps.
type definitionFile struct {
	MicroserviceID string            `json:"microserviceId"`
	Models         []definitionModel `json:"models"`
}

type definitionModel struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Order       int     `json:"order"`
	Fields      []Field `json:"fields"`
}

// LoadDefinition reads a model definition file, validates it against the
// embedded JSON Schema, and converts it to a Set keyed by model and field
// name.
func LoadDefinition(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("failed to read model definition %s: %w", path, err)
	}
	return ParseDefinition(data)
}

// ParseDefinition validates and converts a raw model definition document.
func ParseDefinition(data []byte) (Set, error) {
	schemaLoader := gojsonschema.NewStringLoader(definitionSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return Set{}, fmt.Errorf("model definition is not valid JSON: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return Set{}, fmt.Errorf("model definition failed schema validation: %s", strings.Join(problems, "; "))
	}

	var def definitionFile
	if err := unmarshalStrict(data, &def); err != nil {
		return Set{}, fmt.Errorf("failed to decode model definition: %w", err)
	}

	set := Set{
		MicroserviceID: def.MicroserviceID,
		Models:         make(map[string]Model, len(def.Models)),
	}
	for _, dm := range def.Models {
		if _, exists := set.Models[dm.Name]; exists {
			return Set{}, fmt.Errorf("duplicate model %q in definition", dm.Name)
		}
		m := Model{
			ID:          dm.ID,
			Name:        dm.Name,
			Label:       dm.Label,
			Description: dm.Description,
			Order:       dm.Order,
			Fields:      make(map[string]Field, len(dm.Fields)),
		}
		for _, f := range dm.Fields {
			if _, exists := m.Fields[f.Name]; exists {
				return Set{}, fmt.Errorf("duplicate field %q on model %q", f.Name, dm.Name)
			}
			m.Fields[f.Name] = f
		}
		set.Models[dm.Name] = m
	}
	return set, nil
}

// unmarshalStrict decodes JSON and rejects fields the schema does not know
// about, so a typo'd property fails loudly instead of being dropped.
func unmarshalStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
