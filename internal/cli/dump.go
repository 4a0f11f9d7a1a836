package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/muesli/termenv"

	"github.com/facebook/flipper-sub000/internal/presentation/graph"
	"github.com/facebook/flipper-sub000/internal/presentation/tree"
	"github.com/facebook/flipper-sub000/internal/presentation/tui"
	"github.com/facebook/flipper-sub000/pkg/client"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

// Output formats accepted by RunDump.
const (
	FormatTree     = "tree"
	FormatMarkdown = "markdown"
	FormatMermaid  = "mermaid"
	FormatJSON     = "json"
)

// DumpOptions select what to fetch and how to print it.
type DumpOptions struct {
	AX    bool
	Query string
	// Name labels the archived dump; defaults to a timestamp.
	Name string
	// Archive receives a copy of the dump when set.
	Archive ports.SnapshotArchive

	Format     string
	Properties bool
	// Styled enables colour and glamour rendering.
	Styled bool
	Width  int
}

// RunDump connects to url as a controller, fetches a tree and prints it.
func RunDump(ctx context.Context, url string, w io.Writer, opts DumpOptions) error {
	c, err := client.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer c.Close()

	snap, matches, err := Dump(ctx, c, opts)
	if err != nil {
		return err
	}

	if opts.Archive != nil {
		if err := opts.Archive.Save(ctx, snap); err != nil {
			return fmt.Errorf("failed to archive %s: %w", snap.Name, err)
		}
	}
	return Render(w, snap, matches, opts)
}

// Dump fetches the main or AX tree, or the search result tree when a query
// is given. The second result lists the ids that matched the query.
func Dump(ctx context.Context, c ports.RemoteController, opts DumpOptions) (*ports.Snapshot, []string, error) {
	axis := domain.AxisMain
	if opts.AX {
		axis = domain.AxisAX
	}
	snap := &ports.Snapshot{Name: opts.Name, Axis: axis.String(), Query: opts.Query}
	if snap.Name == "" {
		snap.Name = "dump-" + time.Now().UTC().Format("20060102-150405")
	}

	var matches []string
	switch {
	case opts.Query != "":
		var res domain.SearchResultsResponse
		if err := call(ctx, c, domain.MethodGetSearchResults, map[string]any{"query": opts.Query, "axEnabled": opts.AX}, &res); err != nil {
			return nil, nil, err
		}
		if res.Results != nil {
			snap.Nodes, matches = tree.FromSearch(res.Results)
		}
		// Search results always hold main-tree elements.
		snap.Axis = domain.AxisMain.String()
	case opts.AX:
		nodes, err := walkAX(ctx, c)
		if err != nil {
			return nil, nil, err
		}
		snap.Nodes = nodes
	default:
		var res domain.NodesResponse
		if err := call(ctx, c, domain.MethodGetAllNodes, nil, &res); err != nil {
			return nil, nil, err
		}
		snap.Nodes = res.Elements
	}
	return snap, matches, nil
}

// walkAX fetches the AX tree level by level.
func walkAX(ctx context.Context, c ports.RemoteController) ([]*domain.Node, error) {
	var root domain.Node
	if err := call(ctx, c, domain.MethodGetAXRoot, nil, &root); err != nil {
		return nil, err
	}
	nodes := []*domain.Node{&root}
	seen := map[string]bool{root.ID: true}
	frontier := root.Children

	for len(frontier) > 0 {
		var ids []string
		for _, id := range frontier {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			break
		}
		var res domain.NodesResponse
		if err := call(ctx, c, domain.MethodGetAXNodes, map[string]any{"ids": ids}, &res); err != nil {
			return nil, err
		}
		frontier = nil
		for _, n := range res.Elements {
			nodes = append(nodes, n)
			frontier = append(frontier, n.Children...)
		}
	}
	return nodes, nil
}

func call(ctx context.Context, c ports.RemoteController, method string, params, out any) error {
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// Render prints snap in opts.Format.
func Render(w io.Writer, snap *ports.Snapshot, matches []string, opts DumpOptions) error {
	treeOpts := tree.Options{Matches: matches, Properties: opts.Properties}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case FormatMermaid:
		_, err := io.WriteString(w, graph.GenerateMermaid(snap.Nodes, &graph.Overlay{Matches: matches}))
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, tree.Markdown(snap.Nodes, treeOpts))
		return err
	case FormatTree, "":
		if !opts.Styled {
			return tree.Text(w, tree.Walk(snap.Nodes), termenv.Ascii, treeOpts)
		}
		render, err := tui.NewRenderer(opts.Width)
		if err != nil {
			return err
		}
		out, err := render(tree.Markdown(snap.Nodes, treeOpts))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	return fmt.Errorf("unknown format %q", opts.Format)
}
