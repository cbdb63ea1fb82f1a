package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/randalmurphal/bookgraph/pkg/fault"
)

// SchemaFor reflects T into a strict JSON Schema: every property required and
// no additional properties, as structured-output backends demand.
func SchemaFor[T any]() map[string]any {
	r := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	raw, err := json.Marshal(r.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("llm: reflect schema: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(fmt.Sprintf("llm: decode schema: %v", err))
	}
	delete(m, "$schema")
	delete(m, "$id")
	strict(m)
	return m
}

func strict(schema map[string]any) {
	props, _ := schema["properties"].(map[string]any)
	if t, _ := schema["type"].(string); t == "object" {
		schema["additionalProperties"] = false
		if len(props) > 0 {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			schema["required"] = required
		}
	}
	for _, p := range props {
		if pm, ok := p.(map[string]any); ok {
			strict(pm)
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		strict(items)
	}
}

// DecodeJSON parses model output into T. It tolerates code fences and prose
// around the first top-level object. Failures are *fault.MalformedError.
func DecodeJSON[T any](output string) (T, error) {
	var v T
	s := strings.TrimSpace(output)
	if s == "" {
		return v, &fault.MalformedError{Source: "generator", Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v, nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return v, &fault.MalformedError{Source: "generator", Err: fmt.Errorf("no JSON object in output (len=%d)", len(s))}
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &v); err != nil {
		return v, &fault.MalformedError{Source: "generator", Err: err}
	}
	return v, nil
}
