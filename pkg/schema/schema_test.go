package schema_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/effective-security/toolchat/pkg/schema"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Location struct {
	City    string `json:"city" jsonschema:"description=City name"`
	Country string `json:"country,omitempty" jsonschema:"description=Country code"`
}

type ForecastRequest struct {
	Location *Location `json:"location" jsonschema:"description=Where to look"`
	Days     int       `json:"days,omitempty" jsonschema:"description=Number of days"`
	Unit     string    `json:"unit" jsonschema:"description=Unit of measurement,enum=celsius,enum=fahrenheit"`
}

func TestSchema(t *testing.T) {
	t.Parallel()

	t.Run("Forecast", func(t *testing.T) {
		t.Parallel()
		s, err := schema.New(reflect.TypeOf(ForecastRequest{}))
		require.NoError(t, err)

		exp := `{
	"properties": {
		"location": {
			"properties": {
				"city": {
					"type": "string",
					"description": "City name"
				},
				"country": {
					"type": "string",
					"description": "Country code"
				}
			},
			"type": "object",
			"required": [
				"city"
			],
			"description": "Where to look"
		},
		"days": {
			"type": "integer",
			"description": "Number of days"
		},
		"unit": {
			"type": "string",
			"enum": [
				"celsius",
				"fahrenheit"
			],
			"description": "Unit of measurement"
		}
	},
	"type": "object",
	"required": [
		"location",
		"unit"
	]
}`
		assert.Equal(t, exp, s.String())
		assert.Equal(t, exp, llmutils.ToJSONIndent(s.Parameters))

		// cached
		s2, err := schema.New(reflect.TypeOf(&ForecastRequest{}))
		require.NoError(t, err)
		assert.Equal(t, s.String(), s2.String())

		var sc jsonschema.Schema
		require.NoError(t, json.Unmarshal([]byte(exp), &sc))
		assert.Equal(t, 3, sc.Properties.Len())
	})

	t.Run("NotStruct", func(t *testing.T) {
		t.Parallel()
		_, err := schema.New(reflect.TypeOf(""))
		assert.EqualError(t, err, "schema: struct type expected, got string")
	})
}

func TestSchemaFromAny(t *testing.T) {
	t.Parallel()

	input := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "what to look for",
			},
			"limit": map[string]any{
				"type": "integer",
			},
		},
		"required": []string{"query"},
	}
	sc, err := schema.FromAny(input)
	require.NoError(t, err)
	require.NotNil(t, sc)
	assert.Equal(t, "object", sc.Type)
	assert.Equal(t, []string{"query"}, sc.Required)

	raw, err := schema.FromAny(json.RawMessage(llmutils.ToJSON(input)))
	require.NoError(t, err)
	assert.Equal(t, llmutils.ToJSON(sc), llmutils.ToJSON(raw))

	same, err := schema.FromAny(sc)
	require.NoError(t, err)
	assert.Same(t, sc, same)

	none, err := schema.FromAny(nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = schema.FromAny([]byte("{"))
	assert.Error(t, err)
}

func TestArguments(t *testing.T) {
	t.Parallel()

	sc, err := schema.FromAny(json.RawMessage(`{
		"type": "object",
		"properties": {
			"timezone": {"type": "string", "description": "IANA time zone"},
			"format": {"type": "string"}
		},
		"required": ["timezone"]
	}`))
	require.NoError(t, err)

	args := schema.Arguments(sc)
	assert.Equal(t, []schema.ArgumentDoc{
		{Name: "timezone", Description: "IANA time zone", Required: true},
		{Name: "format"},
	}, args)

	assert.Empty(t, schema.Arguments(nil))
	assert.Empty(t, schema.Arguments(&jsonschema.Schema{Type: "object"}))
}
