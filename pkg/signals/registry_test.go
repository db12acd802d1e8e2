package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRegistryLookupHit(t *testing.T) {
	r := NewMapRegistry(map[string]map[string]bool{
		"PA01-DIM01": {"has_budget_line": true, "has_timeline": false},
	})

	ok, err := r.Lookup("PA01-DIM01", "has_budget_line")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Lookup("PA01-DIM01", "has_timeline")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMapRegistryLookupMissingChunk(t *testing.T) {
	r := NewMapRegistry(map[string]map[string]bool{})
	_, err := r.Lookup("PA99-DIM99", "has_budget_line")
	assert.Error(t, err)
}

func TestMapRegistryLookupMissingSignal(t *testing.T) {
	r := NewMapRegistry(map[string]map[string]bool{
		"PA01-DIM01": {"has_budget_line": true},
	})
	_, err := r.Lookup("PA01-DIM01", "has_unknown_signal")
	assert.Error(t, err)
}
