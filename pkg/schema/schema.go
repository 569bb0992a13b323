package schema

import (
	"encoding/json"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	cache   = make(map[reflect.Type]*Schema)
	cacheMu sync.RWMutex
)

// Schema is the JSON schema reflected from a Go type.
type Schema struct {
	RawSchema *jsonschema.Schema
	// Parameters represents the tool input schema: an object with
	// properties and required fields, with references resolved.
	Parameters *jsonschema.Schema
}

// New creates a new schema from the given type
func New(t reflect.Type) (*Schema, error) {
	cacheMu.RLock()
	s, ok := cache[t]
	cacheMu.RUnlock()
	if ok {
		return s, nil
	}

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Newf("schema: struct type expected, got %s", t.Kind())
	}

	raw := JSONSchema(t)
	s = &Schema{
		RawSchema:  raw,
		Parameters: ToFunctionSchema(raw),
	}

	cacheMu.Lock()
	cache[t] = s
	cacheMu.Unlock()
	return s, nil
}

func (s *Schema) String() string {
	js, _ := json.MarshalIndent(s.Parameters, "", "\t")
	return string(js)
}

// ToFunctionSchema returns the top level object schema with
// $defs references inlined.
func ToFunctionSchema(tSchema *jsonschema.Schema) *jsonschema.Schema {
	refID := strings.TrimPrefix(tSchema.Ref, "#/$defs/")

	defs := make(map[string]*jsonschema.Schema)
	root := tSchema
	for name, def := range tSchema.Definitions {
		if name == refID {
			root = def
		} else {
			defs[name] = def
		}
	}

	res := &jsonschema.Schema{
		Type:       root.Type,
		Properties: root.Properties,
		Required:   root.Required,
	}
	if res.Properties != nil {
		resolveRefs(res.Properties, defs)
	}
	return res
}

// resolveRefs inlines known definitions, unknown references are left as is.
func resolveRefs(props *orderedmap.OrderedMap[string, *jsonschema.Schema], defs map[string]*jsonschema.Schema) {
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		child := pair.Value
		if child.Ref != "" {
			if def, ok := defs[strings.TrimPrefix(child.Ref, "#/$defs/")]; ok {
				pair.Value = def
				child = def
			}
		}
		if child.Properties != nil {
			resolveRefs(child.Properties, defs)
		}
		if child.Items != nil && child.Items.Ref != "" {
			if def, ok := defs[strings.TrimPrefix(child.Items.Ref, "#/$defs/")]; ok {
				child.Items = def
			}
		}
	}
}

// JSONSchema return the json schema of the type
func JSONSchema(t reflect.Type) *jsonschema.Schema {
	r := new(jsonschema.Reflector)
	r.ExpandedStruct = true
	r.DoNotReference = true
	r.AllowAdditionalProperties = true

	// Structs from different packages may share a name,
	// the hash of the full path keeps definitions apart.
	r.Namer = func(t reflect.Type) string {
		name := t.Name()
		if t.Kind() == reflect.Struct {
			fullname := t.PkgPath() + "/" + t.Name()
			name = t.Name() + "@" + strconv.FormatUint(xxhash.Sum64String(fullname), 10)
		}
		return name
	}

	return r.ReflectFromType(t)
}

// FromAny creates a json schema from any JSON compatible value,
// for example the input schema reported by a tool provider:
//
//	map[string]any{
//		"type": "object",
//		"properties": map[string]any{
//			"query": map[string]any{
//				"type": "string",
//			},
//		},
//	}
func FromAny(t any) (*jsonschema.Schema, error) {
	if t == nil {
		return nil, nil
	}
	if s, ok := t.(*jsonschema.Schema); ok {
		return s, nil
	}
	var js []byte
	switch v := t.(type) {
	case json.RawMessage:
		js = v
	case []byte:
		js = v
	default:
		var err error
		js, err = json.Marshal(t)
		if err != nil {
			return nil, errors.Wrap(err, "marshal schema")
		}
	}
	schema := &jsonschema.Schema{}
	if err := json.Unmarshal(js, schema); err != nil {
		return nil, errors.Wrap(err, "unmarshal schema")
	}
	return schema, nil
}

// ArgumentDoc describes one top level argument of a tool.
type ArgumentDoc struct {
	Name        string
	Description string
	Required    bool
}

// Arguments returns the top level properties in declaration order.
func Arguments(s *jsonschema.Schema) []ArgumentDoc {
	if s == nil || s.Properties == nil {
		return nil
	}
	var res []ArgumentDoc
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		doc := ArgumentDoc{
			Name:     pair.Key,
			Required: slices.Contains(s.Required, pair.Key),
		}
		if pair.Value != nil {
			doc.Description = pair.Value.Description
		}
		res = append(res, doc)
	}
	return res
}
