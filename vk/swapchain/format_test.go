package swapchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestRankOfPrefersEarlierPriorityEntries(t *testing.T) {
	assert := assert.New(t)
	priority := []vk.Format{vk.FormatB8g8r8a8Srgb, vk.FormatR8g8b8a8Srgb}

	assert.Equal(0, rankOf(priority, vk.FormatB8g8r8a8Srgb))
	assert.Equal(1, rankOf(priority, vk.FormatR8g8b8a8Srgb))
	assert.Equal(len(priority), rankOf(priority, vk.FormatD32Sfloat), "unknown format ranks worst")
}

func TestRankOfModePrefersMailboxOverFifo(t *testing.T) {
	assert := assert.New(t)
	assert.Less(rankOfMode(defaultPresentModes, vk.PresentModeMailbox), rankOfMode(defaultPresentModes, vk.PresentModeFifo))
}
