package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facebook/flipper-sub000/pkg/adapters/memory"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/persistence/middleware"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

func TestRedactMiddleware_Masking(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewArchive()
	mw, err := middleware.NewRedactMiddleware([]string{"(?i)password", "^token$"})
	require.NoError(t, err)
	archive := mw(underlying)

	snap := &ports.Snapshot{
		Name: "login",
		Axis: domain.AxisMain.String(),
		Nodes: []*domain.Node{{
			ID:       "form",
			Name:     "LoginForm",
			Children: []string{},
			Data: domain.Groups{{Name: "LoginForm", Props: domain.Props{
				{Key: "username", Value: domain.Editable(domain.KindString, "jdoe")},
				{Key: "userPassword", Value: domain.Editable(domain.KindString, "secret123")},
				{Key: "session", Value: domain.Props{
					{Key: "token", Value: "abc"},
					{Key: "expires", Value: 3600},
				}},
				{Key: "headers", Value: map[string]any{"token": "xyz", "host": "example.com"}},
			}}},
		}},
	}

	require.NoError(t, archive.Save(ctx, snap))

	original, _ := snap.Nodes[0].Data.Lookup([]string{"LoginForm", "userPassword"})
	assert.Equal(t, "secret123", original, "the caller's dump is not modified")

	stored, err := underlying.Load(ctx, "login")
	require.NoError(t, err)
	data := stored.Nodes[0].Data

	user, _ := data.Lookup([]string{"LoginForm", "username"})
	assert.Equal(t, "jdoe", user)

	password, _ := data.Lookup([]string{"LoginForm", "userPassword"})
	assert.Equal(t, middleware.Mask, password)
	props, _ := data.Get("LoginForm")
	raw, _ := props.Get("userPassword")
	assert.False(t, raw.(domain.Value).Mutable, "masked values are read-only")

	token, _ := data.Lookup([]string{"LoginForm", "session", "token"})
	assert.Equal(t, middleware.Mask, token)
	expires, _ := data.Lookup([]string{"LoginForm", "session", "expires"})
	assert.Equal(t, 3600, expires)

	header, _ := data.Lookup([]string{"LoginForm", "headers", "token"})
	assert.Equal(t, middleware.Mask, header)
	host, _ := data.Lookup([]string{"LoginForm", "headers", "host"})
	assert.Equal(t, "example.com", host)
}

func TestRedactMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewRedactMiddleware([]string{"("})
	assert.ErrorContains(t, err, "invalid redact pattern")
}

func TestChain_Contract(t *testing.T) {
	redact, err := middleware.NewRedactMiddleware([]string{"password"})
	require.NoError(t, err)
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	ports.RunArchiveContract(t, middleware.Chain(memory.NewArchive(), redact, encrypt))
}
