package tui_test

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facebook/flipper-sub000/internal/presentation/tui"
)

func TestPrintBanner_Ascii(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, termenv.Ascii, ":8089")
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "listening on :8089")
}

func TestNewRenderer(t *testing.T) {
	render, err := tui.NewRenderer(80)
	require.NoError(t, err)
	out, err := render("# Window\n\n- Button `7`\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Window")
	assert.Contains(t, out, "Button")
}
