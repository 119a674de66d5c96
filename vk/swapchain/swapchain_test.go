package swapchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("running", StateRunning.String())
	assert.Equal("destroying", StateDestroying.String())
	assert.Equal("destroyed", StateDestroyed.String())
	assert.Equal("creating", StateCreating.String())
	assert.Equal("recreated", StateRecreated.String())
	assert.Equal("paused", StatePaused.String())
	assert.Equal("unknown", State(99).String())
}
