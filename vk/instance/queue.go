package instance

import vk "github.com/vulkan-go/vulkan"

// resolveQueueFamilies enumerates the physical device's queue family
// properties and picks a graphics family, a present family (queried
// against probeSurface when non-null), and a transfer family. Families
// may alias; a dedicated transfer-only family is preferred when one
// exists, per the teacher's queue.go family-binding walk.
func resolveQueueFamilies(gpu vk.PhysicalDevice, probeSurface vk.Surface) (QueueFamilies, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	if count == 0 {
		return QueueFamilies{}, false
	}
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)

	var (
		graphics      uint32
		haveGraphics  bool
		present       uint32
		havePresent   bool
		transfer      uint32
		haveTransfer  bool
		dedicatedXfer bool
	)

	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		flags := props[i].QueueFlags

		if flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 && !haveGraphics {
			graphics = i
			haveGraphics = true
		}

		if probeSurface != vk.NullSurface {
			var supported vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(gpu, i, probeSurface, &supported)
			if supported.B() && !havePresent {
				present = i
				havePresent = true
			}
		}

		isTransferOnly := flags&vk.QueueFlags(vk.QueueTransferBit) != 0 &&
			flags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 &&
			flags&vk.QueueFlags(vk.QueueComputeBit) == 0
		if isTransferOnly && !dedicatedXfer {
			transfer = i
			haveTransfer = true
			dedicatedXfer = true
		} else if flags&vk.QueueFlags(vk.QueueTransferBit) != 0 && !haveTransfer {
			transfer = i
			haveTransfer = true
		}
	}

	if !haveGraphics {
		return QueueFamilies{}, false
	}
	if !haveTransfer {
		transfer = graphics
		haveTransfer = true
	}
	if probeSurface != vk.NullSurface && !havePresent {
		return QueueFamilies{}, false
	}
	if !havePresent {
		present = graphics
	}

	return QueueFamilies{
		Graphics:   graphics,
		Present:    present,
		Transfer:   transfer,
		HasPresent: probeSurface != vk.NullSurface,
		Separate:   probeSurface != vk.NullSurface && present != graphics,
	}, true
}
