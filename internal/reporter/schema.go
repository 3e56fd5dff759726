package reporter

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var reportSchemaJSON []byte

var loadReportSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(reportSchemaJSON))
})

// SchemaJSON returns the embedded draft-07 schema of the report document.
func SchemaJSON() []byte {
	return append([]byte(nil), reportSchemaJSON...)
}

// ValidateBytes checks data against the report schema. It returns one
// message per violation; an error means the document could not be
// validated at all.
func ValidateBytes(data []byte) ([]string, error) {
	schema, err := loadReportSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to load report schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return violations, nil
}

// ValidateFile reads path and validates it against the report schema.
func ValidateFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ValidateBytes(data)
}
