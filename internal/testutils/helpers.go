// Package testutils holds fixtures shared by adapter tests.
package testutils

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo initializes an unversioned Loam repository in a temp dir and
// returns its absolute path. Extra options are applied after the defaults.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	all := append([]loam.Option{loam.WithVersioning(false)}, opts...)
	repo, err := loam.Init(absPath, all...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}
