package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusString(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("loading", StatusLoading.String())
	assert.Equal("ready", StatusReady.String())
	assert.Equal("reloaded", StatusReloaded.String())
	assert.Equal("error", StatusError.String())
	assert.Equal("unknown", Status(99).String())
}
