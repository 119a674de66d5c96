// Package swapchain implements spec.md §4.3: a surface-bound
// swapchain with its render pass and the running/destroying/
// destroyed/creating/recreated/paused recreation state machine.
//
// Grounded on the teacher's swapchain.go (NewCoreSwapchain,
// CreateFrameImageView, CreateFrameBuffer) and renderpass.go
// (CreateRenderPass); the ranking and state-machine logic follows
// original_source/libs/engine/src/gfx/render_context.cpp
// (bestColourFormat/bestDepthFormat/bestPresentMode, recreateSwapchain,
// Flag::eRenderPaused).
package swapchain

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// State is the recreation state machine named in spec.md §4.3.
type State int

const (
	StateRunning State = iota
	StateDestroying
	StateDestroyed
	StateCreating
	StateRecreated
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDestroying:
		return "destroying"
	case StateDestroyed:
		return "destroyed"
	case StateCreating:
		return "creating"
	case StateRecreated:
		return "recreated"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Outcome is returned by Acquire/Present, mirroring
// RenderContext::Outcome in original_source/render_context.hpp.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRecreated
	OutcomePaused
)

// SurfaceFunc creates (or recreates) the OS surface this swapchain
// presents to. Supplied by the windowing collaborator (spec.md §6).
type SurfaceFunc func(vk.Instance) (vk.Surface, error)

// ExtentFunc reports the current framebuffer size in pixels.
type ExtentFunc func() (width, height uint32)

// Config configures swapchain construction.
type Config struct {
	Instance        vk.Instance
	Physical        vk.PhysicalDevice
	Device          vk.Device
	GraphicsFamily  uint32
	PresentQueue    vk.Queue
	DepthFormat     vk.Format // from instance.Limits, used when probe finds nothing better
	CreateSurface   SurfaceFunc
	FramebufferSize ExtentFunc
	// Images is the requested swapchain image depth (spec.md §4.4 "K");
	// clamped to the surface's min/max image count.
	Images uint32
}

var defaultColorFormats = []vk.Format{
	vk.FormatB8g8r8a8Srgb,
	vk.FormatR8g8b8a8Srgb,
}

var defaultDepthFormats = []vk.Format{
	vk.FormatD32SfloatS8Uint,
	vk.FormatD32Sfloat,
	vk.FormatD24UnormS8Uint,
}

var defaultPresentModes = []vk.PresentMode{
	vk.PresentModeMailbox,
	vk.PresentModeFifo,
}

// Context owns the surface, swapchain, its images/views, depth
// attachment, framebuffers, and render pass.
type Context struct {
	cfg     Config
	state   State
	handle  vk.Swapchain
	surface vk.Surface

	colorFormat vk.SurfaceFormat
	depthFormat vk.Format
	presentMode vk.PresentMode
	extent      vk.Extent2D

	images       []vk.Image
	imageViews   []vk.ImageView
	depthImage   vk.Image
	depthMemory  vk.DeviceMemory
	depthView    vk.ImageView
	framebuffers []vk.Framebuffer

	renderPass vk.RenderPass

	lastAcquired uint32
}

func New(cfg Config) (*Context, error) {
	if cfg.Images == 0 {
		cfg.Images = 3
	}
	c := &Context{cfg: cfg, state: StateDestroyed}
	if err := c.create(); err != nil {
		return nil, err
	}
	return c, nil
}

// create runs the full creating->recreated transition: surface probe,
// format/present-mode/extent ranking, swapchain/render-pass/
// framebuffer construction (spec.md §4.3).
func (c *Context) create() error {
	c.state = StateCreating

	if c.surface == vk.NullSurface {
		surf, err := c.cfg.CreateSurface(c.cfg.Instance)
		if err != nil {
			return fmt.Errorf("swapchain: create surface: %w", err)
		}
		c.surface = surf
	}

	w, h := c.cfg.FramebufferSize()
	if w == 0 || h == 0 {
		c.state = StatePaused
		return nil
	}

	var caps vk.SurfaceCapabilities
	vk.GetPhysicalDeviceSurfaceCapabilities(c.cfg.Physical, c.surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	c.colorFormat = rankColorFormat(c.cfg.Physical, c.surface)
	c.depthFormat = rankDepthFormat(c.cfg.Physical, c.cfg.DepthFormat)
	c.presentMode = rankPresentMode(c.cfg.Physical, c.surface)
	c.extent = clampExtent(caps, w, h)

	imageCount := c.cfg.Images
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}
	if imageCount < caps.MinImageCount {
		imageCount = caps.MinImageCount
	}

	old := c.handle
	var newSwapchain vk.Swapchain
	ret := vk.CreateSwapchain(c.cfg.Device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          c.surface,
		MinImageCount:    imageCount,
		ImageFormat:      c.colorFormat.Format,
		ImageColorSpace:  c.colorFormat.ColorSpace,
		ImageExtent:      c.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      c.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}, nil, &newSwapchain)
	if ret != vk.Success {
		return fmt.Errorf("swapchain: vkCreateSwapchainKHR failed: %d", ret)
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(c.cfg.Device, old, nil)
	}
	c.handle = newSwapchain

	if err := c.createImageViews(); err != nil {
		return err
	}
	if err := c.createDepthAttachment(); err != nil {
		return err
	}
	if c.renderPass == vk.NullRenderPass {
		rp, err := createRenderPass(c.cfg.Device, c.colorFormat.Format, c.depthFormat)
		if err != nil {
			return err
		}
		c.renderPass = rp
	}
	if err := c.createFramebuffers(); err != nil {
		return err
	}

	c.state = StateRecreated
	return nil
}

func (c *Context) createImageViews() error {
	var count uint32
	vk.GetSwapchainImages(c.cfg.Device, c.handle, &count, nil)
	c.images = make([]vk.Image, count)
	vk.GetSwapchainImages(c.cfg.Device, c.handle, &count, c.images)

	c.destroyImageViews()
	c.imageViews = make([]vk.ImageView, count)
	for i := uint32(0); i < count; i++ {
		var view vk.ImageView
		ret := vk.CreateImageView(c.cfg.Device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    c.images[i],
			ViewType: vk.ImageViewType2d,
			Format:   c.colorFormat.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view)
		if ret != vk.Success {
			return fmt.Errorf("swapchain: vkCreateImageView failed: %d", ret)
		}
		c.imageViews[i] = view
	}
	return nil
}

func (c *Context) createDepthAttachment() error {
	c.destroyDepthAttachment()

	var img vk.Image
	ret := vk.CreateImage(c.cfg.Device, &vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		ImageType:   vk.ImageType2d,
		Format:      c.depthFormat,
		Extent:      vk.Extent3D{Width: c.extent.Width, Height: c.extent.Height, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		SharingMode: vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img)
	if ret != vk.Success {
		return fmt.Errorf("swapchain: depth vkCreateImage failed: %d", ret)
	}
	c.depthImage = img

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(c.cfg.Device, img, &req)
	req.Deref()

	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(c.cfg.Physical, &memProps)
	memProps.Deref()

	memType := findDeviceLocalMemoryType(memProps, req.MemoryTypeBits)
	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(c.cfg.Device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if ret != vk.Success {
		return fmt.Errorf("swapchain: depth vkAllocateMemory failed: %d", ret)
	}
	c.depthMemory = mem
	vk.BindImageMemory(c.cfg.Device, img, mem, 0)

	var view vk.ImageView
	ret = vk.CreateImageView(c.cfg.Device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   c.depthFormat,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view)
	if ret != vk.Success {
		return fmt.Errorf("swapchain: depth vkCreateImageView failed: %d", ret)
	}
	c.depthView = view
	return nil
}

func (c *Context) createFramebuffers() error {
	c.destroyFramebuffers()
	c.framebuffers = make([]vk.Framebuffer, len(c.imageViews))
	for i, v := range c.imageViews {
		views := []vk.ImageView{v, c.depthView}
		var fb vk.Framebuffer
		ret := vk.CreateFramebuffer(c.cfg.Device, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      c.renderPass,
			AttachmentCount: uint32(len(views)),
			PAttachments:    views,
			Width:           c.extent.Width,
			Height:          c.extent.Height,
			Layers:          1,
		}, nil, &fb)
		if ret != vk.Success {
			return fmt.Errorf("swapchain: vkCreateFramebuffer failed: %d", ret)
		}
		c.framebuffers[i] = fb
	}
	return nil
}

func findDeviceLocalMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32) uint32 {
	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<i) != 0 {
			props.MemoryTypes[i].Deref()
			if props.MemoryTypes[i].PropertyFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit) != 0 {
				return i
			}
		}
	}
	return 0
}

func clampExtent(caps vk.SurfaceCapabilities, w, h uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampU32(w, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampU32(h, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RenderPass returns the swapchain's render pass handle.
func (c *Context) RenderPass() vk.RenderPass { return c.renderPass }

// Extent returns the current swapchain extent.
func (c *Context) Extent() vk.Extent2D { return c.extent }

// State returns the current state-machine state.
func (c *Context) State() State { return c.state }

// Framebuffer returns the framebuffer for image index idx.
func (c *Context) Framebuffer(idx uint32) vk.Framebuffer { return c.framebuffers[idx] }

// OnFramebufferResize is the windowing collaborator's entry point
// when it reports a new framebuffer size (spec.md §4.3 transition a).
func (c *Context) OnFramebufferResize() error {
	return c.Recreate()
}

// Recreate drives destroying -> destroyed -> creating, waiting the
// device idle first so in-flight frames never reference a destroyed
// image (spec.md §4.3, §5 "no fence is ever waited across swapchain
// recreation - the device is drained to idle first").
func (c *Context) Recreate() error {
	c.state = StateDestroying
	vk.DeviceWaitIdle(c.cfg.Device)
	c.state = StateDestroyed
	return c.create()
}

// Acquire obtains the next swapchain image, signalling renderReady and
// arming inFlight, per spec.md §4.4 step 3.
func (c *Context) Acquire(renderReady vk.Semaphore, inFlight vk.Fence) (uint32, Outcome, error) {
	if c.state == StatePaused {
		return 0, OutcomePaused, nil
	}
	var idx uint32
	ret := vk.AcquireNextImage(c.cfg.Device, c.handle, vk.MaxUint64, renderReady, inFlight, &idx)
	switch ret {
	case vk.Success:
		c.lastAcquired = idx
		c.state = StateRunning
		return idx, OutcomeSuccess, nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		if err := c.Recreate(); err != nil {
			return 0, OutcomeRecreated, err
		}
		if c.state == StatePaused {
			return 0, OutcomePaused, nil
		}
		return 0, OutcomeRecreated, nil
	default:
		if err := c.Recreate(); err != nil {
			return 0, OutcomeRecreated, err
		}
		return 0, OutcomeRecreated, nil
	}
}

// Present presents lastAcquired, waiting on presentReady, per
// spec.md §4.4 step 11.
func (c *Context) Present(queue vk.Queue, presentReady vk.Semaphore) (Outcome, error) {
	if c.state == StatePaused {
		return OutcomePaused, nil
	}
	waitSemaphores := []vk.Semaphore{presentReady}
	swapchains := []vk.Swapchain{c.handle}
	indices := []uint32{c.lastAcquired}
	ret := vk.QueuePresent(queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waitSemaphores)),
		PWaitSemaphores:    waitSemaphores,
		SwapchainCount:     uint32(len(swapchains)),
		PSwapchains:        swapchains,
		PImageIndices:      indices,
	})
	switch ret {
	case vk.Success:
		return OutcomeSuccess, nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		if err := c.Recreate(); err != nil {
			return OutcomeRecreated, err
		}
		return OutcomeRecreated, nil
	default:
		if err := c.Recreate(); err != nil {
			return OutcomeRecreated, err
		}
		return OutcomeRecreated, nil
	}
}

func (c *Context) destroyImageViews() {
	for _, v := range c.imageViews {
		if v != vk.NullImageView {
			vk.DestroyImageView(c.cfg.Device, v, nil)
		}
	}
	c.imageViews = nil
}

func (c *Context) destroyDepthAttachment() {
	if c.depthView != vk.NullImageView {
		vk.DestroyImageView(c.cfg.Device, c.depthView, nil)
		c.depthView = vk.NullImageView
	}
	if c.depthImage != vk.NullImage {
		vk.DestroyImage(c.cfg.Device, c.depthImage, nil)
		c.depthImage = vk.NullImage
	}
	if c.depthMemory != vk.NullDeviceMemory {
		vk.FreeMemory(c.cfg.Device, c.depthMemory, nil)
		c.depthMemory = vk.NullDeviceMemory
	}
}

func (c *Context) destroyFramebuffers() {
	for _, fb := range c.framebuffers {
		if fb != vk.NullFramebuffer {
			vk.DestroyFramebuffer(c.cfg.Device, fb, nil)
		}
	}
	c.framebuffers = nil
}

// Destroy tears down every owned handle, including the surface.
func (c *Context) Destroy() {
	vk.DeviceWaitIdle(c.cfg.Device)
	c.destroyFramebuffers()
	if c.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(c.cfg.Device, c.renderPass, nil)
	}
	c.destroyDepthAttachment()
	c.destroyImageViews()
	if c.handle != vk.NullSwapchain {
		vk.DestroySwapchain(c.cfg.Device, c.handle, nil)
	}
	if c.surface != vk.NullSurface {
		vk.DestroySurface(c.cfg.Instance, c.surface, nil)
	}
	c.state = StateDestroyed
}
