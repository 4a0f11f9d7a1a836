package tree_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/facebook/flipper-sub000/internal/presentation/tree"
	"github.com/facebook/flipper-sub000/pkg/domain"
)

func dump() []*domain.Node {
	var title domain.Props
	title.Set("title", domain.Editable(domain.KindString, "OK|go"))
	title.Set("frame", domain.Props{{Key: "x", Value: 10}})
	return []*domain.Node{
		{ID: "1", Name: "Window", Children: []string{"2", "3"}},
		{ID: "2", Name: "View", Children: []string{"4", "missing"}, Attributes: []domain.Attribute{{Name: "id", Value: "content"}}},
		{ID: "3", Name: "Text", Children: []string{"1"}},
		{ID: "4", Name: "Button", Data: domain.Groups{{Name: "Button", Props: title}}},
	}
}

func depths(lines []tree.Line) map[string]int {
	out := make(map[string]int, len(lines))
	for _, l := range lines {
		out[l.Node.ID] = l.Depth
	}
	return out
}

func TestWalk(t *testing.T) {
	lines := tree.Walk(dump())
	want := map[string]int{"1": 0, "2": 1, "4": 2, "3": 1}
	if diff := cmp.Diff(want, depths(lines)); diff != "" {
		t.Errorf("Walk() depths mismatch (-want +got):\n%s", diff)
	}
	var order []string
	for _, l := range lines {
		order = append(order, l.Node.ID)
	}
	assert.Equal(t, []string{"1", "2", "4", "3"}, order)
	assert.Nil(t, tree.Walk(nil))
}

func TestFromSearch(t *testing.T) {
	root := &domain.SearchResultNode{
		ID:      "1",
		Element: &domain.Node{ID: "1", Name: "Window", Children: []string{"2", "3"}},
		Children: []*domain.SearchResultNode{{
			ID:      "3",
			IsMatch: true,
			Element: &domain.Node{ID: "3", Name: "Button", Children: []string{}},
		}},
	}
	nodes, matches := tree.FromSearch(root)
	assert.Equal(t, []string{"3"}, matches)
	if diff := cmp.Diff([]string{"3"}, nodes[0].Children); diff != "" {
		t.Errorf("pruned children mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"2", "3"}, root.Element.Children, "input is not modified")
}

func TestMarkdown(t *testing.T) {
	md := tree.Markdown(dump(), tree.Options{Matches: []string{"4"}, Properties: true})
	assert.Contains(t, md, "# Window `1`\n")
	assert.Contains(t, md, "  - View `2` id=content\n")
	assert.Contains(t, md, "    - **Button** `4`\n")
	assert.Contains(t, md, "| Button | title | OK\\|go |")
	assert.Contains(t, md, `| Button | frame | {"x":10} |`)

	assert.Equal(t, "_empty tree_\n", tree.Markdown(nil, tree.Options{}))
}

func TestFormatValue(t *testing.T) {
	wire := domain.Props{{Key: "__type__", Value: "number"}, {Key: "__mutable__", Value: true}, {Key: "value", Value: 3.5}}
	assert.Equal(t, "3.5", tree.FormatValue(wire))
	assert.Equal(t, "null", tree.FormatValue(nil))
	assert.Equal(t, "true", tree.FormatValue(domain.ReadOnly(domain.KindBoolean, true)))
	assert.Equal(t, `[1,"a"]`, tree.FormatValue([]any{1, "a"}))
}

func TestText_Ascii(t *testing.T) {
	var buf bytes.Buffer
	err := tree.Text(&buf, tree.Walk(dump()), termenv.Ascii, tree.Options{Matches: []string{"4"}})
	assert.NoError(t, err)
	assert.Equal(t, "Window #1\n  View #2 id=content\n    Button #4\n  Text #3\n", buf.String())
}
