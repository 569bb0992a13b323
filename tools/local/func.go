package local

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/effective-security/toolchat/pkg/schema"
	"github.com/effective-security/toolchat/tools"
	"github.com/invopop/jsonschema"
)

// ErrFailedUnmarshalInput is returned when the tool input is not valid for the tool.
var ErrFailedUnmarshalInput = errors.New("failed to unmarshal input")

// Func is a typed tool backed by a function.
// The input schema is reflected from I.
type Func[I any, O any] struct {
	name        string
	description string
	params      *jsonschema.Schema
	run         func(context.Context, *I) (*O, error)
}

// NewFunc returns a typed tool.
func NewFunc[I any, O any](name, description string, run func(context.Context, *I) (*O, error)) (*Func[I, O], error) {
	var in I
	sc, err := schema.New(reflect.TypeOf(in))
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create schema for %s", name)
	}
	return &Func[I, O]{
		name:        name,
		description: description,
		params:      sc.Parameters,
		run:         run,
	}, nil
}

var _ tools.Tool[struct{}, struct{}] = (*Func[struct{}, struct{}])(nil)

func (f *Func[I, O]) Name() string {
	return f.name
}

func (f *Func[I, O]) Description() string {
	return f.description
}

func (f *Func[I, O]) Parameters() *jsonschema.Schema {
	return f.params
}

func (f *Func[I, O]) Run(ctx context.Context, req *I) (*O, error) {
	return f.run(ctx, req)
}

// Call decodes JSON input, runs the tool and returns the output.
// String outputs are returned as is, other types are JSON encoded.
func (f *Func[I, O]) Call(ctx context.Context, input string) (string, error) {
	var req I
	if err := json.Unmarshal(llmutils.BytesTrimBackticks([]byte(input)), &req); err != nil {
		return "", errors.Wrap(ErrFailedUnmarshalInput, err.Error())
	}
	out, err := f.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	if s, ok := any(*out).(string); ok {
		return s, nil
	}
	bs, err := json.Marshal(out)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal output")
	}
	return string(bs), nil
}
