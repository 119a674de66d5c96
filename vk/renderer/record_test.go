package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vkengine/vk/descriptor"
)

func TestTransformViewportFlipsYForFullscreenRect(t *testing.T) {
	assert := assert.New(t)
	extent := vk.Extent2D{Width: 800, Height: 600}
	full := descriptor.ScreenRect{Left: 0, Top: 0, Right: 1, Bottom: 1}

	vp := transformViewport(full, extent)
	assert.Equal(float32(0), vp.X)
	assert.Equal(float32(800), vp.Width)
	assert.Equal(float32(-600), vp.Height, "negative height is the Y-flip Vulkan's +Y-down clip space needs")
	assert.Equal(float32(600), vp.Y, "Y offset compensates the flip so the image still starts at the top")
}

func TestTransformViewportHalfRect(t *testing.T) {
	assert := assert.New(t)
	extent := vk.Extent2D{Width: 1000, Height: 1000}
	rect := descriptor.ScreenRect{Left: 0, Top: 0, Right: 0.5, Bottom: 0.5}

	vp := transformViewport(rect, extent)
	assert.Equal(float32(500), vp.Width)
	assert.Equal(float32(-500), vp.Height)
	assert.Equal(float32(500), vp.Y)
}

func TestTransformScissorConvertsToPixelSpace(t *testing.T) {
	assert := assert.New(t)
	extent := vk.Extent2D{Width: 800, Height: 600}
	rect := descriptor.ScreenRect{Left: 0.25, Top: 0.25, Right: 0.75, Bottom: 0.75}

	sc := transformScissor(rect, extent)
	assert.Equal(int32(200), sc.Offset.X)
	assert.Equal(int32(150), sc.Offset.Y)
	assert.Equal(uint32(400), sc.Extent.Width)
	assert.Equal(uint32(300), sc.Extent.Height)
}
