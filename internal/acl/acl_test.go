package acl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicies(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		kind  string
		user  string
		path  string
		read  bool
		write bool
	}{
		{"none", "", "/bob/cal/", true, true},
		{"none", "alice", "/bob/cal/", true, true},
		{"owner_only", "bob", "/bob/cal/x.ics", true, true},
		{"owner_only", "alice", "/bob/cal/x.ics", false, false},
		{"owner_only", "", "/bob/cal/", false, false},
		{"read_only", "bob", "/bob/cal/", true, false},
	}
	for _, tc := range cases {
		t.Run(tc.kind+"/"+tc.user, func(t *testing.T) {
			p, err := New(tc.kind)
			require.NoError(t, err)
			eff, err := p.Effective(ctx, tc.user, tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.read, eff.CanRead())
			assert.Equal(t, tc.write, eff.CanWrite())
		})
	}
}

func TestUnknownPolicy(t *testing.T) {
	_, err := New("ldap")
	assert.Error(t, err)
}
