package auth

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	p, err := ParseBasic("Basic " + base64.StdEncoding.EncodeToString([]byte("bob:secret")))
	require.NoError(t, err)
	assert.Equal(t, "bob", p.UserID)
	assert.False(t, p.Anonymous())

	p, err = ParseBasic("")
	require.NoError(t, err)
	assert.True(t, p.Anonymous())

	_, err = ParseBasic("Bearer abc")
	assert.Error(t, err)
	_, err = ParseBasic("Basic !!!")
	assert.Error(t, err)
	_, err = ParseBasic("Basic " + base64.StdEncoding.EncodeToString([]byte("nocolon")))
	assert.Error(t, err)
}

func TestPrincipalContext(t *testing.T) {
	ctx := WithPrincipal(context.Background(), &Principal{UserID: "alice"})
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", p.UserID)

	_, ok = PrincipalFrom(context.Background())
	assert.False(t, ok)
}
