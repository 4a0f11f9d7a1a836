package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

// Mask replaces the value of every redacted property.
const Mask = "***"

type redactMiddleware struct {
	next     ports.SnapshotArchive
	patterns []*regexp.Regexp
}

// NewRedactMiddleware masks node properties whose key matches one of the
// patterns before the dump reaches the archive. Nested objects are walked.
func NewRedactMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SnapshotArchive) ports.SnapshotArchive {
		return &redactMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, snap *ports.Snapshot) error {
	// The caller keeps rendering snap, so mask a copy.
	cloned := *snap
	cloned.Nodes = make([]*domain.Node, len(snap.Nodes))
	for i, n := range snap.Nodes {
		c := *n
		c.Data = make(domain.Groups, len(n.Data))
		for j, grp := range n.Data {
			c.Data[j] = domain.Group{Name: grp.Name, Props: m.mask(grp.Props)}
		}
		cloned.Nodes[i] = &c
	}
	return m.next.Save(ctx, &cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, name string) (*ports.Snapshot, error) {
	return m.next.Load(ctx, name)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// mask returns a masked copy of props.
func (m *redactMiddleware) mask(props domain.Props) domain.Props {
	if props == nil {
		return nil
	}
	out := make(domain.Props, len(props))
	for i, kv := range props {
		out[i] = domain.Prop{Key: kv.Key, Value: m.maskValue(kv.Key, kv.Value)}
	}
	return out
}

func (m *redactMiddleware) maskValue(key string, v any) any {
	if m.matches(key) {
		if _, typed := v.(domain.Value); typed {
			return domain.ReadOnly(domain.KindString, Mask)
		}
		return Mask
	}
	switch t := v.(type) {
	case domain.Props:
		return m.mask(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = m.maskValue(k, inner)
		}
		return out
	case domain.Value:
		t.Data = m.maskValue(key, t.Data)
		return t
	default:
		return v
	}
}
