package domain

// Axis selects one of the two parallel projections of the object graph.
type Axis int

const (
	// AxisMain is the structural (layout) tree.
	AxisMain Axis = iota
	// AxisAX is the accessibility-style auxiliary tree.
	AxisAX
)

func (a Axis) String() string {
	if a == AxisAX {
		return "ax"
	}
	return "main"
}

// Extra info keys used to cross-reference the two trees.
const (
	// ExtraLinkedAXNode on a main-tree node names the AX-tree id it corresponds to.
	// A boolean true means "same id on the AX axis".
	ExtraLinkedAXNode = "linkedAXNode"
	// ExtraLinkedNode on an AX-tree node names the main-tree id it corresponds to.
	ExtraLinkedNode = "linkedNode"
)

// Attribute is a short name/value pair shown next to a node.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Node is the wire snapshot of a tracked object.
// It is recomputed on every query and never cached.
type Node struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Data       Groups         `json:"data"`
	Children   []string       `json:"children"`
	Attributes []Attribute    `json:"attributes"`
	Decoration string         `json:"decoration,omitempty"`
	ExtraInfo  map[string]any `json:"extraInfo,omitempty"`
}

// LinkedAXID returns the AX-tree id this node cross-references, if any.
func (n *Node) LinkedAXID() (string, bool) {
	if n == nil || n.ExtraInfo == nil {
		return "", false
	}
	switch v := n.ExtraInfo[ExtraLinkedAXNode].(type) {
	case string:
		return v, v != ""
	case bool:
		return n.ID, v
	}
	return "", false
}

// SearchResultNode is one node of the minimal tree connecting search matches to the root.
type SearchResultNode struct {
	ID        string              `json:"id"`
	IsMatch   bool                `json:"isMatch"`
	Element   *Node               `json:"element"`
	Children  []*SearchResultNode `json:"children,omitempty"`
	AXElement *Node               `json:"axElement,omitempty"`
}

// Walk visits r and its descendants depth-first, parents before children.
func (r *SearchResultNode) Walk(fn func(*SearchResultNode)) {
	if r == nil {
		return
	}
	fn(r)
	for _, c := range r.Children {
		c.Walk(fn)
	}
}
