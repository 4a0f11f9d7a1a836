// Package graph renders dumped trees as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"

	"github.com/facebook/flipper-sub000/pkg/domain"
)

// Overlay marks nodes to style on the chart.
type Overlay struct {
	Matches []string
	// Path is a hit-test path, root first.
	Path []string
}

// GenerateMermaid produces a top-down flowchart of nodes. Nodes with
// children are drawn as subroutines, leaves as rounded boxes. Edges to
// children outside the dump are dropped.
func GenerateMermaid(nodes []*domain.Node, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}

	for _, n := range nodes {
		safeID := sanitizeMermaidID(n.ID)
		opener, closer := "(", ")"
		if len(n.Children) > 0 {
			opener, closer = "[[", "]]"
		}
		label := strings.ReplaceAll(n.Name, "\"", "'")
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> #%s\"%s\n", safeID, opener, label, n.ID, closer)

		for _, child := range n.Children {
			if !present[child] {
				continue
			}
			fmt.Fprintf(&sb, "    %s --> %s\n", safeID, sanitizeMermaidID(child))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef match fill:#fce7f3,stroke:#db2777,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef hit fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		styled := make(map[string]bool)
		for _, id := range overlay.Matches {
			if present[id] && !styled[id] {
				styled[id] = true
				fmt.Fprintf(&sb, "    class %s match;\n", sanitizeMermaidID(id))
			}
		}
		for _, id := range overlay.Path {
			if present[id] {
				fmt.Fprintf(&sb, "    class %s hit;\n", sanitizeMermaidID(id))
			}
		}
	}

	return sb.String()
}

// sanitizeMermaidID prefixes ids since tracker ids are numeric.
func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return "n" + r.Replace(id)
}
