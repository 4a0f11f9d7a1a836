// Package tree formats dumped node trees for terminals and markdown.
package tree

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/facebook/flipper-sub000/pkg/domain"
)

// Line is one node of an outline with its depth below the root.
type Line struct {
	Depth int
	Node  *domain.Node
}

// Walk lays out nodes depth first starting at nodes[0]. Children that are
// not part of the dump are skipped and each node is visited once.
func Walk(nodes []*domain.Node) []Line {
	if len(nodes) == 0 {
		return nil
	}
	index := make(map[string]*domain.Node, len(nodes))
	for _, n := range nodes {
		index[n.ID] = n
	}

	var lines []Line
	seen := make(map[string]bool, len(nodes))
	var visit func(n *domain.Node, depth int)
	visit = func(n *domain.Node, depth int) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true
		lines = append(lines, Line{Depth: depth, Node: n})
		for _, id := range n.Children {
			if child, ok := index[id]; ok {
				visit(child, depth+1)
			}
		}
	}
	visit(nodes[0], 0)
	return lines
}

// FromSearch flattens a search result. Each node keeps only the children
// present in the result, and the ids of matching nodes are returned apart.
func FromSearch(root *domain.SearchResultNode) (nodes []*domain.Node, matches []string) {
	root.Walk(func(r *domain.SearchResultNode) {
		if r.Element == nil {
			return
		}
		n := *r.Element
		n.Children = make([]string, 0, len(r.Children))
		for _, c := range r.Children {
			n.Children = append(n.Children, c.ID)
		}
		nodes = append(nodes, &n)
		if r.IsMatch {
			matches = append(matches, r.ID)
		}
	})
	return nodes, matches
}

// Options tune Markdown and Text output.
type Options struct {
	// Matches are emphasised.
	Matches []string
	// Properties appends the data groups of every node.
	Properties bool
}

func (o Options) isMatch(id string) bool { return slices.Contains(o.Matches, id) }

// Markdown renders an outline of the tree, suitable for glamour.
func Markdown(nodes []*domain.Node, opts Options) string {
	lines := Walk(nodes)
	if len(lines) == 0 {
		return "_empty tree_\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s `%s`\n\n", lines[0].Node.Name, lines[0].Node.ID)
	for _, l := range lines {
		name := l.Node.Name
		if opts.isMatch(l.Node.ID) {
			name = "**" + name + "**"
		}
		fmt.Fprintf(&sb, "%s- %s `%s`%s\n", strings.Repeat("  ", l.Depth), name, l.Node.ID, attributes(l.Node))
	}

	if opts.Properties {
		for _, l := range lines {
			if len(l.Node.Data) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "\n## %s `%s`\n\n", l.Node.Name, l.Node.ID)
			sb.WriteString("| Group | Property | Value |\n|---|---|---|\n")
			for _, g := range l.Node.Data {
				for _, p := range g.Props {
					fmt.Fprintf(&sb, "| %s | %s | %s |\n", g.Name, p.Key, escapeCell(FormatValue(p.Value)))
				}
			}
		}
	}
	return sb.String()
}

func attributes(n *domain.Node) string {
	var sb strings.Builder
	for _, a := range n.Attributes {
		fmt.Fprintf(&sb, " %s=%s", a.Name, a.Value)
	}
	if n.Decoration != "" {
		fmt.Fprintf(&sb, " (%s)", n.Decoration)
	}
	return sb.String()
}

// FormatValue prints a property value, unwrapping the typed envelope used
// on the wire.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case domain.Value:
		return FormatValue(t.Data)
	case domain.Props:
		if inner, ok := t.Get("value"); ok {
			if _, typed := t.Get("__type__"); typed {
				return FormatValue(inner)
			}
		}
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	case string:
		return t
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
