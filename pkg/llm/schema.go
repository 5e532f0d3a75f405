package llm

type SchemaType string

const (
	TypeObject SchemaType = "object"
	TypeString SchemaType = "string"
)

// Schema is a provider-neutral output contract. Providers translate it into
// their own representation.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	// Order keeps property iteration deterministic.
	Order    []string
	Required []string
}

// IsRequired reports whether field is listed in Required.
func (s *Schema) IsRequired(field string) bool {
	for _, r := range s.Required {
		if r == field {
			return true
		}
	}
	return false
}

// JSONSchema renders the schema as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]interface{} {
	out := map[string]interface{}{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]interface{}, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.JSONSchema()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = append([]string(nil), s.Required...)
	}
	return out
}
