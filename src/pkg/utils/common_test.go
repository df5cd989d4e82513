package utils

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt32Bytes(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 42, math.MaxInt32, math.MinInt32} {
		assert.Equal(t, v, BytesToInt32(Int32ToBytes(v)))
	}

	assert.Equal(t, []byte{0x2a, 0, 0, 0}, Int32ToBytes(42))
}

func TestFloat32Bytes(t *testing.T) {
	assert.InDelta(t, 1.5, BytesToFloat32(Float32ToBytes(1.5)), 0)
	assert.True(t, math.IsNaN(float64(BytesToFloat32(Float32ToBytes(float32(math.NaN()))))))
}

func TestMust(t *testing.T) {
	assert.Equal(t, 3, Must(3, nil))
	require.Panics(t, func() { Must(0, errors.New("boom")) })
}
