package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupePreservesFirstOccurrenceOrder(t *testing.T) {
	assert := assert.New(t)
	got := dedupe([]string{"VK_KHR_surface", "VK_KHR_xcb_surface", "VK_KHR_surface"})
	assert.Equal([]string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, got)
}

func TestDedupeEmpty(t *testing.T) {
	assert := assert.New(t)
	assert.Empty(dedupe(nil))
}

func TestIntersectKeepsAvailableAndAlwaysKeep(t *testing.T) {
	assert := assert.New(t)
	wanted := []string{"VK_KHR_swapchain", "VK_EXT_descriptor_indexing", "VK_EXT_missing"}
	available := []string{"VK_KHR_swapchain"}

	got := intersect(wanted, available, []string{"VK_EXT_descriptor_indexing"})
	assert.Equal([]string{"VK_KHR_swapchain", "VK_EXT_descriptor_indexing"}, got)
}

func TestSafeStringAppendsNulOnlyOnce(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("hello\x00", safeString("hello"))
	assert.Equal("hello\x00", safeString("hello\x00"))
}

func TestSafeStrings(t *testing.T) {
	assert := assert.New(t)
	got := safeStrings([]string{"a", "b"})
	assert.Equal([]string{"a\x00", "b\x00"}, got)
}

func TestCapabilitiesHas(t *testing.T) {
	assert := assert.New(t)
	caps := CapGraphics | CapTransfer
	assert.True(caps.Has(CapGraphics))
	assert.True(caps.Has(CapTransfer))
	assert.False(caps.Has(CapPresent))
	assert.False(caps.Has(CapGraphics | CapPresent))
}
