package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlgorithm(t *testing.T) {
	for _, a := range Algorithms() {
		parsed, err := ParseAlgorithm(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}

	_, err := ParseAlgorithm("fastest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown algorithm "fastest"`)
}

func TestAlgorithm_String(t *testing.T) {
	assert.Equal(t, "naive", Naive.String())
	assert.Equal(t, "location_insensitive", LocationInsensitive.String())
	assert.Equal(t, "algorithm(42)", Algorithm(42).String())
}

func TestAlgorithm_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Algorithm `json:"a"`
	}{A: Hybrid})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"hybrid"}`, string(data))

	var v struct {
		A Algorithm `json:"a"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"compare"}`), &v))
	assert.Equal(t, Compare, v.A)

	require.Error(t, json.Unmarshal([]byte(`{"a":"bogus"}`), &v))
}
