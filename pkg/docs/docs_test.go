package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "variants")
	assert.Contains(t, names, "steps")
	assert.Contains(t, names, "recovery")
	assert.IsIncreasing(t, names)
}

func TestRenderPlain(t *testing.T) {
	out, err := Render("variants", false)
	require.NoError(t, err)
	assert.Contains(t, out, "Host variants")
	assert.Contains(t, out, "plasma")
}

func TestRenderStyled(t *testing.T) {
	out, err := Render("steps", true)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderUnknownTopic(t *testing.T) {
	_, err := Render("nope", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variants", "error should list available topics")
}
