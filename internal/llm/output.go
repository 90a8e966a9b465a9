package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiled holds compiled schemas by name.
var compiled sync.Map // string → *jsonschema.Schema

// checkOutput extracts the JSON document from a model reply and validates it
// against schema. Replies wrapped in a Markdown code fence are unwrapped.
func checkOutput(provider string, schema *Schema, reply string) (json.RawMessage, error) {
	raw := json.RawMessage(unfence([]byte(reply)))
	if schema == nil {
		return raw, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &Error{Provider: provider, Kind: KindMalformed, Output: raw, Err: fmt.Errorf("not JSON: %w", err)}
	}
	s, err := compile(schema)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", schema.Name, err)
	}
	if err := s.Validate(doc); err != nil {
		return nil, &Error{Provider: provider, Kind: KindMalformed, Output: raw, Err: err}
	}
	return raw, nil
}

func compile(schema *Schema) (*jsonschema.Schema, error) {
	if s, ok := compiled.Load(schema.Name); ok {
		return s.(*jsonschema.Schema), nil
	}

	// The compiler wants plain decoded JSON, not Go maps of []string.
	b, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	url := "mem://llm/" + schema.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	compiled.Store(schema.Name, s)
	return s, nil
}

// unfence strips surrounding whitespace and a ```json fence if present.
func unfence(b []byte) []byte {
	b = bytes.TrimSpace(b)
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	b = bytes.TrimPrefix(b, []byte("```"))
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[i+1:] // drop the language tag line
	}
	b = bytes.TrimSuffix(bytes.TrimSpace(b), []byte("```"))
	return bytes.TrimSpace(b)
}
