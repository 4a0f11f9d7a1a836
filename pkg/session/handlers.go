package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/facebook/flipper-sub000/internal/runtime"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

type empty struct{}

// decode maps JSON params onto a request struct.
func decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidParams, err)
	}
	return nil
}

func (s *Session) getRoot(ctx context.Context, params map[string]any) (any, string, error) {
	node, err := s.engine.SnapshotRoot(s.root, domain.AxisMain)
	return node, "", err
}

func (s *Session) getAXRoot(ctx context.Context, params map[string]any) (any, string, error) {
	node, err := s.engine.SnapshotRoot(s.root, domain.AxisAX)
	return node, "", err
}

func (s *Session) getNodes(ctx context.Context, params map[string]any) (any, string, error) {
	var req domain.GetNodesRequest
	if err := decode(params, &req); err != nil {
		return nil, "", err
	}
	nodes, failed, err := s.engine.Nodes(req.IDs, domain.AxisMain)
	if err != nil {
		return nil, failed, err
	}
	return domain.NodesResponse{Elements: nodes}, "", nil
}

func (s *Session) getAllNodes(ctx context.Context, params map[string]any) (any, string, error) {
	nodes, err := s.engine.AllNodes(s.root, domain.AxisMain)
	if err != nil {
		return nil, "", err
	}
	return domain.NodesResponse{Elements: nodes}, "", nil
}

// getAXNodes fails fast on unknown ids, except for accessibility-event
// refreshes which skip them and keep only the selected node.
func (s *Session) getAXNodes(ctx context.Context, params map[string]any) (any, string, error) {
	var req domain.GetAXNodesRequest
	if err := decode(params, &req); err != nil {
		return nil, "", err
	}
	if !req.ForAccessibilityEvent {
		nodes, failed, err := s.engine.Nodes(req.IDs, domain.AxisAX)
		if err != nil {
			return nil, failed, err
		}
		return domain.NodesResponse{Elements: nodes}, "", nil
	}

	nodes := make([]*domain.Node, 0, 1)
	for _, id := range req.IDs {
		if req.Selected != "" && id != req.Selected {
			continue
		}
		node, err := s.engine.Snapshot(id, domain.AxisAX)
		if errors.Is(err, domain.ErrUnknownID) {
			continue
		}
		if err != nil {
			return nil, id, err
		}
		nodes = append(nodes, node)
	}
	return domain.NodesResponse{Elements: nodes}, "", nil
}

func (s *Session) setData(ctx context.Context, params map[string]any) (any, string, error) {
	var req domain.SetDataRequest
	if err := decode(params, &req); err != nil {
		return nil, "", err
	}
	kind, value, err := req.Unwrap()
	if err != nil {
		return nil, req.ID, fmt.Errorf("%w: %w", domain.ErrInvalidParams, err)
	}
	if err := s.engine.SetValue(req.ID, req.Path, kind, value); err != nil {
		return nil, req.ID, err
	}
	s.queue(domain.AxisMain, req.ID)
	if !req.AX {
		return empty{}, "", nil
	}
	s.queue(domain.AxisAX, req.ID)
	node, err := s.engine.Snapshot(req.ID, domain.AxisAX)
	if err != nil {
		return nil, req.ID, err
	}
	return node, "", nil
}

// setHighlighted keeps at most one highlighted node. Unknown ids are ignored.
func (s *Session) setHighlighted(ctx context.Context, params map[string]any) (any, string, error) {
	var req domain.SetHighlightedRequest
	if err := decode(params, &req); err != nil {
		return nil, "", err
	}
	if s.highlighted != "" && (req.ID == nil || *req.ID != s.highlighted) {
		if err := s.engine.SetHighlighted(s.highlighted, false, s.alignment); err != nil && !errors.Is(err, domain.ErrUnknownID) {
			s.reportError(err)
		}
		s.highlighted = ""
	}
	if req.ID == nil {
		return empty{}, "", nil
	}
	if err := s.engine.SetHighlighted(*req.ID, true, req.IsAlignmentMode); err != nil {
		if errors.Is(err, domain.ErrUnknownID) {
			return empty{}, "", nil
		}
		return nil, *req.ID, err
	}
	s.highlighted, s.alignment = *req.ID, req.IsAlignmentMode
	return empty{}, "", nil
}

func (s *Session) setSearchActive(ctx context.Context, params map[string]any) (any, string, error) {
	var req domain.SetSearchActiveRequest
	if err := decode(params, &req); err != nil {
		return nil, "", err
	}
	if req.Active == s.searchActive {
		return empty{}, "", nil
	}
	if s.overlay != nil {
		if req.Active {
			if err := s.overlay.Install(s.onTap); err != nil {
				return nil, "", fmt.Errorf("install overlay: %w", err)
			}
		} else {
			s.overlay.Remove()
		}
	}
	s.searchActive = req.Active
	return empty{}, "", nil
}

func (s *Session) isSearchActive(ctx context.Context, params map[string]any) (any, string, error) {
	return domain.SearchActiveResponse{IsSearchActive: s.searchActive}, "", nil
}

func (s *Session) getSearchResults(ctx context.Context, params map[string]any) (any, string, error) {
	var req domain.GetSearchResultsRequest
	if err := decode(params, &req); err != nil {
		return nil, "", err
	}
	res, err := s.engine.Search(req.Query, s.root, runtime.SearchOptions{
		Axis:   domain.AxisMain,
		Linked: req.AXEnabled,
	})
	if err != nil {
		return nil, "", err
	}
	return domain.SearchResultsResponse{Results: res, Query: req.Query}, "", nil
}

func (s *Session) hitTest(ctx context.Context, params map[string]any) (any, string, error) {
	var req domain.HitTestRequest
	if err := decode(params, &req); err != nil {
		return nil, "", err
	}
	path, err := s.engine.HitTest(s.root, req.X, req.Y, domain.AxisMain)
	if err != nil {
		return nil, "", err
	}
	axPath, err := s.engine.HitTest(s.root, req.X, req.Y, domain.AxisAX)
	if err != nil {
		return nil, "", err
	}
	return domain.HitTestResponse{Path: path, AXPath: axPath}, "", nil
}

func (s *Session) isConsoleEnabled(ctx context.Context, params map[string]any) (any, string, error) {
	return domain.ConsoleResponse{IsEnabled: false}, "", nil
}

// onTap is handed to the overlay and may be called from any goroutine.
func (s *Session) onTap(x, y float64) {
	if err := s.Tap(x, y); err != nil {
		s.logger.Warn("Dropped overlay tap", "err", err)
	}
}
