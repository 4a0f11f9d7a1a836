package domain

// Command names served by a session.
const (
	MethodGetRoot          = "getRoot"
	MethodGetNodes         = "getNodes"
	MethodGetAllNodes      = "getAllNodes"
	MethodGetAXRoot        = "getAXRoot"
	MethodGetAXNodes       = "getAXNodes"
	MethodSetData          = "setData"
	MethodSetHighlighted   = "setHighlighted"
	MethodSetSearchActive  = "setSearchActive"
	MethodIsSearchActive   = "isSearchActive"
	MethodGetSearchResults = "getSearchResults"
	MethodHitTest          = "hitTest"
	MethodIsConsoleEnabled = "isConsoleEnabled"
)

// Push events sent by a session without a request.
const (
	EventInvalidate   = "invalidate"
	EventInvalidateAX = "invalidateAX"
	EventSelect       = "select"
	EventSelectAX     = "selectAX"
)

// Methods lists every command name, in documentation order.
var Methods = []string{
	MethodGetRoot, MethodGetNodes, MethodGetAllNodes, MethodGetAXRoot, MethodGetAXNodes,
	MethodSetData, MethodSetHighlighted, MethodSetSearchActive, MethodIsSearchActive,
	MethodGetSearchResults, MethodHitTest, MethodIsConsoleEnabled,
}

// NodeRef names a node in push events.
type NodeRef struct {
	ID string `json:"id"`
}

// InvalidateEvent asks the controller to re-query the listed nodes.
type InvalidateEvent struct {
	Nodes []NodeRef `json:"nodes"`
}

// SelectEvent reports the result of a hit test.
// Tree is only set in the extended form.
type SelectEvent struct {
	Path []string       `json:"path"`
	Tree map[string]any `json:"tree,omitempty"`
}

// PathTree nests path into a map of maps, root outermost.
func PathTree(path []string) map[string]any {
	tree := map[string]any{}
	cur := tree
	for _, id := range path {
		next := map[string]any{}
		cur[id] = next
		cur = next
	}
	return tree
}

type GetNodesRequest struct {
	IDs []string `json:"ids"`
}

type GetAXNodesRequest struct {
	IDs                   []string `json:"ids"`
	ForAccessibilityEvent bool     `json:"forAccessibilityEvent"`
	Selected              string   `json:"selected"`
}

type NodesResponse struct {
	Elements []*Node `json:"elements"`
}

// SetDataRequest mutates the property at Path of node ID.
// Value is either an envelope {kind?, data} or a raw value.
type SetDataRequest struct {
	ID    string   `json:"id"`
	AX    bool     `json:"ax"`
	Path  []string `json:"path"`
	Value any      `json:"value"`
}

// Unwrap splits Value into its kind hint and payload.
func (r SetDataRequest) Unwrap() (ValueKind, any, error) {
	env, ok := r.Value.(map[string]any)
	if !ok {
		return KindAuto, r.Value, nil
	}
	data, hasData := env["data"]
	if !hasData {
		return KindAuto, r.Value, nil
	}
	for k := range env {
		if k != "data" && k != "kind" {
			return KindAuto, r.Value, nil
		}
	}
	raw, _ := env["kind"].(string)
	kind, err := ParseValueKind(raw)
	if err != nil {
		return KindAuto, nil, err
	}
	return kind, data, nil
}

type SetHighlightedRequest struct {
	ID              *string `json:"id"`
	IsAlignmentMode bool    `json:"isAlignmentMode"`
}

type SetSearchActiveRequest struct {
	Active bool `json:"active"`
}

type SearchActiveResponse struct {
	IsSearchActive bool `json:"isSearchActive"`
}

type GetSearchResultsRequest struct {
	Query     string `json:"query"`
	AXEnabled bool   `json:"axEnabled"`
}

type SearchResultsResponse struct {
	Results *SearchResultNode `json:"results"`
	Query   string            `json:"query"`
}

type HitTestRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type HitTestResponse struct {
	Path   []string `json:"path"`
	AXPath []string `json:"axPath"`
}

type ConsoleResponse struct {
	IsEnabled bool `json:"isEnabled"`
}
