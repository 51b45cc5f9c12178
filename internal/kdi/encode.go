package kdi

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Encode serializes a document for writing and upload. It is the single
// serialization path for import files; the output is checked against the
// import schema, which rejects nulls and unknown keys.
func Encode(doc Document) ([]byte, error) {
	if doc.Assets == nil {
		doc.Assets = []Asset{}
	}
	if doc.VulnDefs == nil {
		doc.VulnDefs = []VulnDef{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	if err := Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Validate checks an encoded document against the import schema.
func Validate(data []byte) error {
	s, err := loadSchema()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("document failed schema validation: %s", strings.Join(msgs, "; "))
	}
	return nil
}
