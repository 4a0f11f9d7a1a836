// Package tui holds terminal chrome for the inspector CLI.
package tui

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a markdown renderer for the current terminal.
// A zero width keeps glamour's default word wrap.
func NewRenderer(width int) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render, nil
}
