package schema

import (
	_ "embed"
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"
)

// Schema validates raw edge events.
type Schema struct {
	schema *gojsonschema.Schema
}

//go:embed event.json
var event json.RawMessage
var eventLoader = gojsonschema.NewBytesLoader(event)

// NewEventSchema compiles the embedded edge event schema.
func NewEventSchema() (*Schema, error) {
	schema, err := gojsonschema.NewSchema(eventLoader)
	if err != nil {
		return nil, err
	}

	return &Schema{schema: schema}, nil
}

// Validate validates data against the event schema. An error is
// returned if data is not valid JSON.
func (s *Schema) Validate(data []byte) (*gojsonschema.Result, error) {
	return s.schema.Validate(gojsonschema.NewBytesLoader(data))
}
