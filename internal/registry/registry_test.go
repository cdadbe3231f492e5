package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orcamet/internal/types"
)

func TestModels_StableOrder(t *testing.T) {
	specs := Models()
	require.Len(t, specs, 4)

	want := []types.ModelID{types.ModelUKV, types.ModelECMWF, types.ModelICONEU, types.ModelARPEGE}
	for i, spec := range specs {
		assert.Equal(t, want[i], spec.ID)
		assert.NotEmpty(t, spec.DisplayName)
		assert.NotEmpty(t, spec.Endpoint)
		assert.Greater(t, spec.ResolutionKM, 0.0)
	}
}

func TestModels_ProviderSelectors(t *testing.T) {
	ukv, ok := Lookup(types.ModelUKV)
	require.True(t, ok)
	assert.Equal(t, "ukmo_uk_deterministic_2km", ukv.QueryParams["models"])

	arpege, ok := Lookup(types.ModelARPEGE)
	require.True(t, ok)
	assert.Equal(t, "arpege_world", arpege.QueryParams["models"])
}

func TestLookup_Unknown(t *testing.T) {
	_, ok := Lookup(types.ModelID("gfs"))
	assert.False(t, ok)
}
