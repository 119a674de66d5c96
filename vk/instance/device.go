package instance

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// enumeratePhysicalDevices lists available GPUs, grounded on the
// teacher's core.go physical-device enumeration loop.
func enumeratePhysicalDevices(inst vk.Instance) ([]vk.PhysicalDevice, error) {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(inst, &count, nil)
	if err := checkResult(ret); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("no Vulkan-capable physical devices found")
	}
	gpus := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(inst, &count, gpus)
	if err := checkResult(ret); err != nil {
		return nil, err
	}
	return gpus, nil
}

func checkResult(ret vk.Result) error {
	if ret != vk.Success {
		return fmt.Errorf("vulkan result %d", ret)
	}
	return nil
}

// selectPhysicalDevice ranks candidates by device type (discrete >
// integrated > virtual > cpu), honours a GPUOverride name match or a
// custom DeviceSelector, and resolves queue families for the winner.
// Grounded on the teacher's instance.go:is_valid_device plus
// original_source/libs/engine/src/vk/instance.cpp device scoring.
func selectPhysicalDevice(gpus []vk.PhysicalDevice, probeSurface vk.Surface, cfg Config) (vk.PhysicalDevice, QueueFamilies, error) {
	type scored struct {
		gpu   vk.PhysicalDevice
		score int
		name  string
	}
	var candidates []scored
	for _, gpu := range gpus {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()
		name := vk.ToString(props.DeviceName[:])

		families, ok := resolveQueueFamilies(gpu, probeSurface)
		if !ok {
			continue
		}

		score := deviceTypeScore(props.DeviceType)
		if cfg.DeviceSelector != nil {
			score = cfg.DeviceSelector(props)
		}
		if cfg.GPUOverride != "" && name == cfg.GPUOverride {
			score += 1000
		}
		candidates = append(candidates, scored{gpu: gpu, score: score, name: name})
		_ = families
	}
	if len(candidates) == 0 {
		return nil, QueueFamilies{}, fmt.Errorf("no physical device exposes the required queue families")
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}
	families, _ := resolveQueueFamilies(best.gpu, probeSurface)
	return best.gpu, families, nil
}

func deviceTypeScore(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 400
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 300
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 200
	case vk.PhysicalDeviceTypeCpu:
		return 100
	default:
		return 0
	}
}
