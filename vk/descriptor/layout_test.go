package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampU32(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint32(1024), clampU32(1024, 0), "max 0 means unconstrained (probe failed, fall back to requested)")
	assert.Equal(uint32(1024), clampU32(1024, 2048), "below the device limit, the request stands")
	assert.Equal(uint32(512), clampU32(1024, 512), "above the device limit, clamp down")
}
