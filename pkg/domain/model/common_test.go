package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_ValueScan(t *testing.T) {
	v, err := JSONMap{"duplicate_upload_policy": "replace"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"duplicate_upload_policy":"replace"}`, v)

	var m JSONMap
	require.NoError(t, m.Scan([]byte(v.(string))))
	policy, ok := m.String("duplicate_upload_policy")
	assert.True(t, ok)
	assert.Equal(t, "replace", policy)
}

func TestJSONMap_ScanEmpty(t *testing.T) {
	for _, in := range []interface{}{nil, "", []byte{}} {
		var m JSONMap
		require.NoError(t, m.Scan(in))
		assert.NotNil(t, m)
		assert.Empty(t, m)
	}

	var m JSONMap
	assert.Error(t, m.Scan(42))
	assert.Error(t, m.Scan("{"))
}

func TestJSONMap_Clone(t *testing.T) {
	src := JSONMap{"a": "1"}
	c := src.Clone()
	c["a"] = "2"
	assert.Equal(t, "1", src["a"])

	_, ok := c.String("missing")
	assert.False(t, ok)
}
