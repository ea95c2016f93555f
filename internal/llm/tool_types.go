package llm

// ToolDef is the provider-agnostic catalogue entry advertised to the model.
// It follows the OpenAI function calling schema.
type ToolDef struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction contains the function name, description, and parameter schema.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
}

// ToolParameters is the JSON Schema object describing the arguments. Properties
// is always emitted, even when empty, because some providers reject a bare
// object schema.
type ToolParameters struct {
	Type       string                  `json:"type"`
	Properties map[string]ToolParamDef `json:"properties"`
	Required   []string                `json:"required,omitempty"`
}

// ToolParamDef defines a single parameter in JSON Schema format.
type ToolParamDef struct {
	// Type is the JSON Schema type (string, integer, number).
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}
