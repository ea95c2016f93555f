package tools

import (
	"reflect"
	"strings"

	"github.com/comigor/travelbot/internal/llm"
)

// SchemaFor builds the JSON schema of the argument struct A:
//
//	json:"name"            property name (fields without one are skipped)
//	desc:"..."             property description
//	validate:"required"    listed in "required"
//
// Pointer fields describe optional values of their element kind.
func SchemaFor[A any]() llm.ToolParameters {
	params := llm.ToolParameters{Type: "object", Properties: map[string]llm.ToolParamDef{}}

	t := reflect.TypeFor[A]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return params
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := jsonName(f)
		if name == "" || !f.IsExported() {
			continue
		}
		params.Properties[name] = llm.ToolParamDef{
			Type:        schemaKind(f.Type),
			Description: f.Tag.Get("desc"),
		}
		if hasRule(f.Tag.Get("validate"), "required") {
			params.Required = append(params.Required, name)
		}
	}
	return params
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

func schemaKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return "string"
	}
}

func hasRule(tag, rule string) bool {
	for _, r := range strings.Split(tag, ",") {
		if r == rule {
			return true
		}
	}
	return false
}
