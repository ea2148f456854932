package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// decodeOrderedObject calls fn for every member of a JSON object in document
// order. A JSON null is treated as an empty object.
func decodeOrderedObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(ErrInput, "model: read JSON object")
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.Wrap(ErrInput, "model: expected JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(ErrInput, "model: read JSON key")
		}
		key, ok := tok.(string)
		if !ok {
			return eris.Wrap(ErrInput, "model: expected JSON key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return eris.Wrapf(ErrInput, "model: read value of %q", key)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return eris.Wrap(ErrInput, "model: unterminated JSON object")
	}
	return nil
}

// walkMapping calls fn for every key/value pair of a YAML mapping node in
// document order. A null node is treated as an empty mapping.
func walkMapping(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return eris.Wrapf(ErrInput, "model: expected YAML mapping at line %d", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}
