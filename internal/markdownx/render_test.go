package markdownx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML_Heading(t *testing.T) {
	out, err := RenderHTML("# TIL: goroutines\n\nsome text")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>TIL: goroutines</h1>")
	assert.Contains(t, out, "<p>some text</p>")
}

func TestRenderHTML_Empty(t *testing.T) {
	out, err := RenderHTML("")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
