package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeArgs struct {
	Host    string   `json:"host" description:"Host name or IP"`
	Timeout *int     `json:"timeout_ms"`
	Mode    string   `json:"mode,omitempty" enum:"fast|slow"`
	Tags    []string `json:"tags,omitempty"`
	hidden  string
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(probeArgs{})

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"host"}, schema["required"])

	props := schema["properties"].(map[string]any)
	require.Len(t, props, 4)
	assert.Equal(t, "Host name or IP", props["host"].(map[string]any)["description"])
	assert.Equal(t, "integer", props["timeout_ms"].(map[string]any)["type"])
	assert.Equal(t, []any{"fast", "slow"}, props["mode"].(map[string]any)["enum"])
	assert.Equal(t, map[string]any{"type": "string"}, props["tags"].(map[string]any)["items"])
}

func TestCreateSchema_NonStruct(t *testing.T) {
	schema := CreateSchema(42)
	assert.Equal(t, map[string]any{"type": "object", "properties": map[string]any{}}, schema)
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Ask {{.Network}} then {{upper .Resolver}}", map[string]any{
		"Network":  "NetworkAgent",
		"Resolver": "resolver",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ask NetworkAgent then RESOLVER", out)

	plain, err := RenderTemplate("no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers", plain)

	_, err = RenderTemplate("{{.Missing}}", map[string]any{})
	assert.Error(t, err)
}
