package loam_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facebook/flipper-sub000/internal/testutils"
	"github.com/facebook/flipper-sub000/pkg/adapters/loam"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

func TestArchive_Contract(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t)
	ports.RunArchiveContract(t, loam.New(repo))
}

func TestArchive_PreservesProperties(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t)
	archive := loam.New(repo)
	ctx := context.Background()

	var props domain.Props
	props.Set("title", domain.Editable(domain.KindString, "Accept"))
	snap := &ports.Snapshot{
		Name:  "button",
		Axis:  domain.AxisAX.String(),
		Query: "ok",
		Nodes: []*domain.Node{{
			ID:       "7",
			Name:     "Button",
			Data:     domain.Groups{{Name: "Button", Props: props}},
			Children: []string{},
		}},
	}
	require.NoError(t, archive.Save(ctx, snap))

	loaded, err := archive.Load(ctx, "button")
	require.NoError(t, err)
	assert.Equal(t, "ok", loaded.Query)
	assert.Equal(t, domain.AxisAX.String(), loaded.Axis)
	require.Len(t, loaded.Nodes, 1)
	group, ok := loaded.Nodes[0].Data.Get("Button")
	require.True(t, ok)
	title, ok := group.Get("title")
	require.True(t, ok)
	value, _ := title.(domain.Props).Get("value")
	assert.Equal(t, "Accept", value)
}

func TestArchive_SaveReplaces(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t)
	archive := loam.New(repo)
	ctx := context.Background()

	require.NoError(t, archive.Save(ctx, &ports.Snapshot{Name: "dump", Axis: "main"}))
	require.NoError(t, archive.Save(ctx, &ports.Snapshot{
		Name:  "dump",
		Axis:  "main",
		Nodes: []*domain.Node{{ID: "1", Name: "Window", Children: []string{}}},
	}))

	names, err := archive.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dump"}, names)

	loaded, err := archive.Load(ctx, "dump")
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 1)
}

func TestArchive_RoundTripsNonEmptyDump(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t)
	archive := loam.New(repo)
	ctx := context.Background()

	snap := &ports.Snapshot{
		Name: "tree",
		Axis: domain.AxisMain.String(),
		Nodes: []*domain.Node{
			{ID: "1", Name: "Window", Children: []string{"2"}},
			{ID: "2", Name: "Button", Children: []string{}},
		},
	}
	require.NoError(t, archive.Save(ctx, snap))

	doc, err := archive.Repo.Get(ctx, "tree")
	require.NoError(t, err)
	assert.Equal(t, "2", doc.Data.Count)

	loaded, err := archive.Load(ctx, "tree")
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, []string{"2"}, loaded.Nodes[0].Children)
	assert.Equal(t, "Button", loaded.Nodes[1].Name)

	require.NoError(t, archive.Save(ctx, &ports.Snapshot{Name: "empty", Axis: "main"}))
	empty, err := archive.Load(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, empty.Nodes)
}
