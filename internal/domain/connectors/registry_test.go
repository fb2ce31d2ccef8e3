package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubFactory(c Connector) Factory {
	return func(Settings) (Connector, error) { return c, nil }
}

func TestRegistryRegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	stub := &stubConnector{name: "stub", kind: KindCRM}

	require.NoError(t, r.Register("stub", stubFactory(stub)))
	assert.True(t, r.Has("stub"))
	assert.Equal(t, []string{"stub"}, r.List())

	c, err := r.Create("stub", Settings{})
	require.NoError(t, err)
	assert.Equal(t, "stub", c.Name())
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("dup", stubFactory(&stubConnector{})))
	err := r.Register("dup", stubFactory(&stubConnector{}))
	assert.ErrorContains(t, err, "already registered")
}

func TestRegistryCreateUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("ghost", Settings{})
	assert.ErrorContains(t, err, "not found")
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(name, stubFactory(&stubConnector{name: name})))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.List())
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", stubFactory(&stubConnector{})))
	r.Clear()
	assert.False(t, r.Has("a"))
	assert.Empty(t, r.List())
}
