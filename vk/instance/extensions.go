package instance

import (
	"unsafe"

	"github.com/rs/zerolog"
	vk "github.com/vulkan-go/vulkan"
)

// InstanceExtensions lists the extensions the driver exposes,
// generalizing the teacher's extensions.go:InstanceExtensions/util.go
// duplicate into a single implementation.
func InstanceExtensions() ([]string, error) {
	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	if err := checkResult(ret); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, props)
	if err := checkResult(ret); err != nil {
		return nil, err
	}
	out := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		out = append(out, vk.ToString(props[i].ExtensionName[:]))
	}
	return out, nil
}

// DeviceExtensions lists the extensions a physical device exposes,
// grounded on the teacher's extensions.go:GetDeviceExtensions.
func DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	if err := checkResult(ret); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, props)
	if err := checkResult(ret); err != nil {
		return nil, err
	}
	out := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		out = append(out, vk.ToString(props[i].ExtensionName[:]))
	}
	return out, nil
}

// debugCallback bridges Vulkan's debug report messages into the
// subsystem logger, replacing the teacher's platform.go
// dbgCallbackFunc (which wrote through the stdlib "log" package) with
// structured zerolog output.
func debugCallback(log zerolog.Logger) func(vk.DebugReportFlags, vk.DebugReportObjectType, uint64, uint, int32, string, string, unsafe.Pointer) vk.Bool32 {
	return func(flags vk.DebugReportFlags, objType vk.DebugReportObjectType,
		object uint64, location uint, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

		switch {
		case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
			log.Error().Str("layer", pLayerPrefix).Int32("code", messageCode).Msg(pMessage)
		case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
			log.Warn().Str("layer", pLayerPrefix).Int32("code", messageCode).Msg(pMessage)
		case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
			log.Warn().Str("layer", pLayerPrefix).Int32("code", messageCode).Msg(pMessage)
		default:
			log.Debug().Str("layer", pLayerPrefix).Int32("code", messageCode).Msg(pMessage)
		}
		return vk.Bool32(vk.False)
	}
}
