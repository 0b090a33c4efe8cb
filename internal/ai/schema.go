package ai

import (
	"encoding/json"
	"sync"

	"github.com/christopherklint97/clarity/internal/suggest"
	"github.com/invopop/jsonschema"
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaJSON string
)

// Schema returns the JSON Schema of suggest.SuggestionBatch, reflected from
// the Go types so structured-output requests match what the validator accepts.
func Schema() *jsonschema.Schema {
	schemaOnce.Do(buildSchema)
	return schema
}

// SchemaJSON returns Schema serialized as compact JSON.
func SchemaJSON() string {
	schemaOnce.Do(buildSchema)
	return schemaJSON
}

func buildSchema() {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema = r.Reflect(&suggest.SuggestionBatch{})
	data, err := json.Marshal(schema)
	if err != nil {
		panic("ai: marshaling suggestions schema: " + err.Error())
	}
	schemaJSON = string(data)
}
