package swapchain

import vk "github.com/vulkan-go/vulkan"

// rankColorFormat picks the highest-ranked supported surface format
// against defaultColorFormats, falling back to the first available
// format when none of the preferred ones are present. Grounded on
// original_source/libs/engine/src/gfx/render_context.cpp:bestColourFormat.
func rankColorFormat(gpu vk.PhysicalDevice, surface vk.Surface) vk.SurfaceFormat {
	var count uint32
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, nil)
	formats := make([]vk.SurfaceFormat, count)
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &count, formats)
	for i := range formats {
		formats[i].Deref()
	}
	if count == 0 {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	if count == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}

	best := formats[0]
	bestRank := rankOf(defaultColorFormats, best.Format)
	for _, f := range formats[1:] {
		if r := rankOf(defaultColorFormats, f.Format); r < bestRank {
			best, bestRank = f, r
		}
	}
	return best
}

// rankDepthFormat ranks device-supported depth formats against
// defaultDepthFormats, falling back to fallback (the probe already
// computed by vk/instance) when nothing in the priority list is
// supported for optimal tiling with depth-stencil-attachment usage.
func rankDepthFormat(gpu vk.PhysicalDevice, fallback vk.Format) vk.Format {
	for _, candidate := range defaultDepthFormats {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(gpu, candidate, &props)
		props.Deref()
		if props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit) != 0 {
			return candidate
		}
	}
	return fallback
}

// rankPresentMode prefers mailbox, falling back to fifo (guaranteed
// available by the spec). Grounded on
// original_source/.../render_context.cpp:bestPresentMode.
func rankPresentMode(gpu vk.PhysicalDevice, surface vk.Surface) vk.PresentMode {
	var count uint32
	vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &count, nil)
	modes := make([]vk.PresentMode, count)
	vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &count, modes)

	best := vk.PresentModeFifo
	bestRank := rankOfMode(defaultPresentModes, best)
	found := false
	for _, m := range modes {
		if r := rankOfMode(defaultPresentModes, m); !found || r < bestRank {
			best, bestRank, found = m, r, true
		}
	}
	return best
}

func rankOf(priority []vk.Format, f vk.Format) int {
	for i, p := range priority {
		if p == f {
			return i
		}
	}
	return len(priority)
}

func rankOfMode(priority []vk.PresentMode, m vk.PresentMode) int {
	for i, p := range priority {
		if p == m {
			return i
		}
	}
	return len(priority)
}
