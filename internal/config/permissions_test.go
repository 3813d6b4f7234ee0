package config

import (
	"os/user"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsResolveUserByName(t *testing.T) {
	cur, err := user.Current()
	require.NoError(t, err)

	p := &PermissionsConfig{User: cur.Username}
	uid, err := p.ResolveUID()
	require.NoError(t, err)
	assert.Equal(t, cur.Uid, strconv.Itoa(uid))

	gid, err := p.ResolveGID()
	require.NoError(t, err)
	assert.Equal(t, -1, gid, "unset group resolves to -1")
}

func TestPermissionsUnknownUser(t *testing.T) {
	p := &PermissionsConfig{User: "no-such-user-javorganize"}
	_, err := p.ResolveUID()
	assert.Error(t, err)
}
