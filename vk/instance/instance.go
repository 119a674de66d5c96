// Package instance implements spec.md §4.1: acquiring a Vulkan
// instance, selecting a physical device, and creating a logical device
// with graphics/present/transfer queues.
//
// Grounded on the teacher's core.go (CreateGraphicsInstance,
// GetValidationLayers, GetDeviceExtensions) and instance.go (Init,
// is_valid_device), with the separate-present-queue handling of
// platform.go folded in.
package instance

import (
	"github.com/rs/zerolog"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vkengine/internal/logx"
	"github.com/andewx/vkengine/vk/vkerr"
)

var pkgLog = logx.New("instance")

// Capabilities is a bitset of queue roles a logical device can serve,
// generalizing the teacher's application.go:VulkanMode.
type Capabilities uint32

const (
	CapGraphics Capabilities = 1 << iota
	CapPresent
	CapTransfer
	CapCompute
)

func (c Capabilities) Has(want Capabilities) bool { return c&want == want }

// QueueFamilies records the resolved family index for each role.
// Any two may alias (spec.md §3 Device capabilities).
type QueueFamilies struct {
	Graphics uint32
	Present  uint32
	Transfer uint32

	HasPresent bool
	// Separate reports whether Present differs from Graphics, meaning
	// an ownership-transfer barrier is needed on swapchain images
	// (original_source/libs/engine/src/vk/instance.cpp).
	Separate bool
}

// Limits records immutable device capability info (spec.md §3).
type Limits struct {
	MaxLineWidth         float32
	DepthFormat          vk.Format
	SupportsLazyAlloc    bool
	MaxDescriptorSamplers uint32
}

// Candidate preference order for depth formats, highest precision first.
var depthFormatPriority = []vk.Format{
	vk.FormatD32SfloatS8Uint,
	vk.FormatD32Sfloat,
	vk.FormatD24UnormS8Uint,
	vk.FormatD16Unorm,
}

// ProbeSurfaceFunc creates a throw-away surface used only to test
// present support for a queue family; New destroys it once device
// selection completes.
type ProbeSurfaceFunc func(vk.Instance) (vk.Surface, error)

// Config configures instance/device creation (spec.md §4.1, §6).
type Config struct {
	AppName                string
	EngineName             string
	RequiredInstanceExts   []string // supplied by the windowing collaborator
	WantedDeviceExts       []string
	EnableValidation       bool
	GPUOverride            string // env-scoped name pinning device selection
	DeviceSelector         func(props vk.PhysicalDeviceProperties) int
	ProbeSurface           ProbeSurfaceFunc
}

// Device owns the instance-wide Vulkan handles: the instance, the
// selected physical device, the logical device, and its queues.
// Immutable after Init (spec.md §3 "Device capabilities").
type Device struct {
	Instance       vk.Instance
	Physical       vk.PhysicalDevice
	Handle         vk.Device
	Properties     vk.PhysicalDeviceProperties
	MemProperties  vk.PhysicalDeviceMemoryProperties
	Families       QueueFamilies
	Limits         Limits
	Caps           Capabilities
	GraphicsQueue  vk.Queue
	PresentQueue   vk.Queue
	TransferQueue  vk.Queue
	ValidationOn   bool
	debugCallback  vk.DebugReportCallback
}

func New(cfg Config) (*Device, error) {
	log := logx.New("instance")
	d := &Device{ValidationOn: cfg.EnableValidation || logx.Debug()}

	layers := validationLayers(d.ValidationOn)
	wantedInstanceExts := dedupe(append([]string{}, cfg.RequiredInstanceExts...))

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(cfg.AppName),
			PEngineName:        safeString(cfg.EngineName),
		},
		EnabledExtensionCount:   uint32(len(wantedInstanceExts)),
		PpEnabledExtensionNames: safeStrings(wantedInstanceExts),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}, nil, &instance)
	if err := vkerr.Result(vkerr.KindInit, "CreateInstance", ret); err != nil {
		return nil, err
	}
	vk.InitInstance(instance)
	d.Instance = instance

	if d.ValidationOn {
		cbRet := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: debugCallback(log),
		}, nil, &d.debugCallback)
		if err := vkerr.Result(vkerr.KindInit, "CreateDebugReportCallback", cbRet); err != nil {
			log.Warn().Err(err).Msg("failed to install debug report callback")
		}
	}

	gpus, err := enumeratePhysicalDevices(instance)
	if err != nil {
		d.unwind()
		return nil, vkerr.New(vkerr.KindInit, "EnumeratePhysicalDevices", err)
	}

	var probeSurface vk.Surface
	if cfg.ProbeSurface != nil {
		probeSurface, err = cfg.ProbeSurface(instance)
		if err != nil {
			d.unwind()
			return nil, vkerr.New(vkerr.KindInit, "ProbeSurface", err)
		}
		defer func() {
			if probeSurface != vk.NullSurface {
				vk.DestroySurface(instance, probeSurface, nil)
			}
		}()
	}

	gpu, families, err := selectPhysicalDevice(gpus, probeSurface, cfg)
	if err != nil {
		d.unwind()
		return nil, vkerr.New(vkerr.KindInit, "selectPhysicalDevice", err)
	}
	d.Physical = gpu
	d.Families = families

	vk.GetPhysicalDeviceProperties(gpu, &d.Properties)
	d.Properties.Deref()
	vk.GetPhysicalDeviceMemoryProperties(gpu, &d.MemProperties)
	d.MemProperties.Deref()

	d.Limits = probeLimits(gpu, d.Properties)

	deviceExts := dedupe(append([]string{"VK_KHR_swapchain"}, cfg.WantedDeviceExts...))
	availableExts, _ := DeviceExtensions(gpu)
	deviceExts = intersect(deviceExts, availableExts, []string{"VK_KHR_swapchain"})

	queueInfos := buildQueueCreateInfos(families)
	var device vk.Device
	ret = vk.CreateDevice(gpu, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(deviceExts)),
		PpEnabledExtensionNames: safeStrings(deviceExts),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}, nil, &device)
	if err := vkerr.Result(vkerr.KindInit, "CreateDevice", ret); err != nil {
		d.unwind()
		return nil, err
	}
	d.Handle = device

	vk.GetDeviceQueue(device, families.Graphics, 0, &d.GraphicsQueue)
	if families.HasPresent {
		vk.GetDeviceQueue(device, families.Present, 0, &d.PresentQueue)
	}
	vk.GetDeviceQueue(device, families.Transfer, 0, &d.TransferQueue)

	d.Caps = CapGraphics | CapTransfer
	if families.HasPresent {
		d.Caps |= CapPresent
	}

	log.Info().Str("gpu", vk.ToString(d.Properties.DeviceName[:])).
		Uint32("graphics_family", families.Graphics).
		Uint32("present_family", families.Present).
		Uint32("transfer_family", families.Transfer).
		Msg("device initialized")

	return d, nil
}

// unwind releases partially constructed handles in reverse order, per
// spec.md §7 "Init ... the partially constructed handles are released
// in reverse order."
func (d *Device) unwind() {
	if d.Handle != vk.NullHandle {
		vk.DestroyDevice(d.Handle, nil)
	}
	if d.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(d.Instance, d.debugCallback, nil)
	}
	if d.Instance != vk.NullHandle {
		vk.DestroyInstance(d.Instance, nil)
	}
}

// Destroy tears the device and instance down. Fatal error paths reuse
// the same sequencing as unwind.
func (d *Device) Destroy() {
	if d.Handle != vk.NullHandle {
		vk.DeviceWaitIdle(d.Handle)
	}
	d.unwind()
}

func buildQueueCreateInfos(f QueueFamilies) []vk.DeviceQueueCreateInfo {
	seen := map[uint32]bool{}
	var infos []vk.DeviceQueueCreateInfo
	priority := []float32{1.0}
	add := func(family uint32) {
		if seen[family] {
			return
		}
		seen[family] = true
		infos = append(infos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: priority,
		})
	}
	add(f.Graphics)
	if f.HasPresent {
		add(f.Present)
	}
	add(f.Transfer)
	return infos
}

func probeLimits(gpu vk.PhysicalDevice, props vk.PhysicalDeviceProperties) Limits {
	depthFormat := vk.FormatD16Unorm
	for _, candidate := range depthFormatPriority {
		var formatProps vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(gpu, candidate, &formatProps)
		formatProps.Deref()
		if vk.FormatFeatureFlagBits(formatProps.OptimalTilingFeatures)&vk.FormatFeatureDepthStencilAttachmentBit != 0 {
			depthFormat = candidate
			break
		}
	}
	return Limits{
		MaxLineWidth:          props.Limits.LineWidthRange[1],
		DepthFormat:           depthFormat,
		SupportsLazyAlloc:     true,
		MaxDescriptorSamplers: props.Limits.MaxDescriptorSetSampledImages,
	}
}

func validationLayers(enabled bool) []string {
	if !enabled {
		return nil
	}
	return []string{"VK_LAYER_KHRONOS_validation"}
}

func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func intersect(wanted, available []string, alwaysKeep []string) []string {
	avail := map[string]bool{}
	for _, a := range available {
		avail[a] = true
	}
	keep := map[string]bool{}
	for _, k := range alwaysKeep {
		keep[k] = true
	}
	var out []string
	for _, w := range wanted {
		if avail[w] || keep[w] {
			out = append(out, w)
		} else {
			pkgLog.Warn().Str("extension", w).Msg("device extension unavailable, skipping")
		}
	}
	return out
}
