package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "fallback", Coalesce("", "fallback"))
	assert.Equal(t, "set", Coalesce("set", "fallback"))
	assert.Equal(t, 1280, Coalesce(0, 1280))
	assert.Equal(t, 800, Coalesce(800, 1280))
	assert.Zero(t, Coalesce(0, 0))
}

func TestSliceToBytes(t *testing.T) {
	raw := SliceToBytes([]float32{1, 2})
	assert.Len(t, raw, 8)

	assert.Nil(t, SliceToBytes[float32](nil))
}
