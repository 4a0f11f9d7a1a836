package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facebook/flipper-sub000/pkg/adapters/memory"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/persistence/middleware"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secretDump(name string) *ports.Snapshot {
	return &ports.Snapshot{
		Name: name,
		Axis: domain.AxisMain.String(),
		Nodes: []*domain.Node{{
			ID:       "field",
			Name:     "TextField",
			Children: []string{},
			Data: domain.Groups{{Name: "TextField", Props: domain.Props{
				{Key: "text", Value: domain.Editable(domain.KindString, "my-secret-sauce")},
			}}},
		}},
	}
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewArchive()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	secure := mw(underlying)

	require.NoError(t, secure.Save(ctx, secretDump("dump")))

	stored, err := underlying.Load(ctx, "dump")
	require.NoError(t, err)
	assert.Equal(t, "dump", stored.Name, "name stays readable")
	require.Len(t, stored.Nodes, 1)
	assert.Equal(t, "encrypted", stored.Nodes[0].ID)
	assert.Contains(t, stored.Nodes[0].ExtraInfo, "__encrypted__")
	assert.Empty(t, stored.Nodes[0].Data)

	loaded, err := secure.Load(ctx, "dump")
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, "TextField", loaded.Nodes[0].Name)
	text, ok := loaded.Nodes[0].Data.Lookup([]string{"TextField", "text", "value"})
	require.True(t, ok)
	assert.Equal(t, "my-secret-sauce", text)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewArchive()
	oldKey, newKey := generateKey(t), generateKey(t)

	mwOld, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	secureOld := mwOld(underlying)
	require.NoError(t, secureOld.Save(ctx, secretDump("old")))

	mwNew, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	secureNew := mwNew(underlying)

	loaded, err := secureNew.Load(ctx, "old")
	require.NoError(t, err, "fallback key decrypts dumps saved before rotation")
	assert.Equal(t, "field", loaded.Nodes[0].ID)

	require.NoError(t, secureNew.Save(ctx, secretDump("new")))
	_, err = secureOld.Load(ctx, "new")
	assert.Error(t, err, "old key alone cannot read new dumps")
}

func TestEncryptionMiddleware_RejectsPlainDump(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewArchive()
	require.NoError(t, underlying.Save(ctx, secretDump("plain")))

	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	_, err = mw(underlying).Load(ctx, "plain")
	assert.ErrorContains(t, err, "envelope")

	_, err = mw(underlying).Load(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrSnapshotNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrKeySize)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)

	fromHex, err := middleware.ParseKey(hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, fromHex)

	fromBase64, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, fromBase64)

	_, err = middleware.ParseKey("abcd")
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}
