package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/facebook/flipper-sub000/internal/presentation/graph"
	"github.com/facebook/flipper-sub000/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	nodes := []*domain.Node{
		{ID: "1", Name: "Window", Children: []string{"2", "9"}},
		{ID: "2", Name: `Say "hi"`, Children: []string{}},
	}

	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "Shapes and Edges",
			contains: []string{
				"graph TD\n",
				`n1[["Window <br/> #1"]]`,
				`n2("Say 'hi' <br/> #2")`,
				"n1 --> n2",
			},
			excludes: []string{"n9", "classDef"},
		},
		{
			name:    "Overlay",
			overlay: &graph.Overlay{Matches: []string{"2", "2", "ghost"}, Path: []string{"1"}},
			contains: []string{
				"class n2 match;",
				"class n1 hit;",
			},
			excludes: []string{"nghost"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(nodes, tt.overlay)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
			if tt.overlay != nil {
				assert.Equal(t, 1, strings.Count(got, "class n2 match;"))
			}
		})
	}
}
