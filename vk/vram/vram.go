// Package vram implements spec.md §4.2: buffer/image allocation with
// running byte totals, and a staging-ring transfer engine that copies
// host bytes to device-local memory.
//
// Grounded on the teacher's extensions.go (FindRequiredMemoryType,
// CreateBuffer) and buffers.go (CoreBuffer), generalized from a single
// fixed uniform-buffer helper into a general-purpose allocator.
package vram

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vkengine/vk/vkerr"
)

// Kind tags a resource for the running-byte-totals observability
// counters (spec.md §4.2 "two running totals (bytes by resource kind)").
type Kind int

const (
	KindBuffer Kind = iota
	KindImage
)

// Buffer is an allocator-owned buffer and its backing memory.
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Mapped unsafe.Pointer // non-nil when created host-visible and left mapped
}

// Image is an allocator-owned image and its backing memory.
type Image struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Format vk.Format
	Extent vk.Extent3D
	Layers uint32
}

// Allocator owns buffer/image creation, the staging ring, and the
// deferred-release queue. One per Device (spec.md §3 "Global state").
type Allocator struct {
	device     vk.Device
	memProps   vk.PhysicalDeviceMemoryProperties
	transferQ  vk.Queue
	transferFI uint32

	totals [2]int64 // indexed by Kind, bytes currently live, updated via atomic

	stages  *stagingRing
	release *ReleaseQueue
}

func New(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, transferQueue vk.Queue, transferFamily uint32) (*Allocator, error) {
	a := &Allocator{
		device:     device,
		memProps:   memProps,
		transferQ:  transferQueue,
		transferFI: transferFamily,
		release:    newReleaseQueue(),
	}
	ring, err := newStagingRing(device, memProps, transferFamily)
	if err != nil {
		return nil, vkerr.New(vkerr.KindInit, "vram.New", err)
	}
	a.stages = ring
	return a, nil
}

// Total reports the current live byte count for kind.
func (a *Allocator) Total(kind Kind) int64 {
	return atomic.LoadInt64(&a.totals[kind])
}

func (a *Allocator) addTotal(kind Kind, delta int64) {
	atomic.AddInt64(&a.totals[kind], delta)
}

// BufferSpec describes a create-buffer request (spec.md §4.2).
type BufferSpec struct {
	Size          vk.DeviceSize
	Usage         vk.BufferUsageFlags
	HostVisible   bool
	QueueFamilies []uint32 // roles this buffer must be visible to
}

// sharingInfo derives VK_SHARING_MODE_EXCLUSIVE/CONCURRENT from the
// requested queue-visibility set, per spec.md §4.2 "sharing-mode is
// derived from queue-visibility".
func sharingInfo(families []uint32) (vk.SharingMode, []uint32) {
	dedup := dedupeUint32(families)
	if len(dedup) <= 1 {
		return vk.SharingModeExclusive, nil
	}
	return vk.SharingModeConcurrent, dedup
}

func dedupeUint32(in []uint32) []uint32 {
	seen := map[uint32]bool{}
	var out []uint32
	for _, f := range in {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// CreateBuffer allocates a buffer and binds device memory to it,
// updating the KindBuffer running total. Grounded on the teacher's
// extensions.go:CreateBuffer, generalized to accept arbitrary usage
// flags and queue-visibility instead of a single hardcoded usage.
func (a *Allocator) CreateBuffer(spec BufferSpec) (Buffer, error) {
	b, err := a.createBufferRaw(spec)
	if err != nil {
		return Buffer{}, err
	}
	a.addTotal(KindBuffer, int64(b.Size))
	return b, nil
}

// createBufferRaw performs the allocation without touching the public
// byte totals; the staging ring uses this for its internal buffers,
// which are bookkeeping-exempt (spec.md §4.2 counts resources the
// draw list and resource store own, not transfer scratch space).
func (a *Allocator) createBufferRaw(spec BufferSpec) (Buffer, error) {
	sharing, families := sharingInfo(spec.QueueFamilies)

	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        spec.Size,
		Usage:       spec.Usage,
		SharingMode: sharing,
	}
	if len(families) > 0 {
		info.QueueFamilyIndexCount = uint32(len(families))
		info.PQueueFamilyIndices = families
	}

	var buf vk.Buffer
	ret := vk.CreateBuffer(a.device, &info, nil, &buf)
	if err := vkerr.Result(vkerr.KindInit, "CreateBuffer", ret); err != nil {
		return Buffer{}, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(a.device, buf, &memReqs)
	memReqs.Deref()

	hostReq := vk.MemoryPropertyFlagBits(0)
	if spec.HostVisible {
		hostReq = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}
	memType, ok := findMemoryType(a.memProps, vk.MemoryPropertyFlagBits(memReqs.MemoryTypeBits), hostReq)
	if !ok {
		vk.DestroyBuffer(a.device, buf, nil)
		return Buffer{}, vkerr.New(vkerr.KindInit, "CreateBuffer", fmt.Errorf("no suitable memory type"))
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(a.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if err := vkerr.Result(vkerr.KindInit, "AllocateMemory", ret); err != nil {
		vk.DestroyBuffer(a.device, buf, nil)
		return Buffer{}, err
	}
	vk.BindBufferMemory(a.device, buf, mem, 0)

	b := Buffer{Handle: buf, Memory: mem, Size: memReqs.Size}
	if spec.HostVisible {
		var mapped unsafe.Pointer
		vk.MapMemory(a.device, mem, 0, vk.WholeSize, 0, &mapped)
		b.Mapped = mapped
	}

	return b, nil
}

// ImageSpec describes a create-image request.
type ImageSpec struct {
	Extent        vk.Extent3D
	Format        vk.Format
	Usage         vk.ImageUsageFlags
	Flags         vk.ImageCreateFlags // e.g. vk.ImageCreateCubeCompatibleBit for a 6-layer cubemap
	Layers        uint32
	MipLevels     uint32
	QueueFamilies []uint32
}

func (a *Allocator) CreateImage(spec ImageSpec) (Image, error) {
	if spec.Layers == 0 {
		spec.Layers = 1
	}
	if spec.MipLevels == 0 {
		spec.MipLevels = 1
	}
	sharing, families := sharingInfo(spec.QueueFamilies)

	info := vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		ImageType:   vk.ImageType2d,
		Flags:       spec.Flags,
		Format:      spec.Format,
		Extent:      spec.Extent,
		MipLevels:   spec.MipLevels,
		ArrayLayers: spec.Layers,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       spec.Usage,
		SharingMode: sharing,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if len(families) > 0 {
		info.QueueFamilyIndexCount = uint32(len(families))
		info.PQueueFamilyIndices = families
	}

	var img vk.Image
	ret := vk.CreateImage(a.device, &info, nil, &img)
	if err := vkerr.Result(vkerr.KindInit, "CreateImage", ret); err != nil {
		return Image{}, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(a.device, img, &memReqs)
	memReqs.Deref()

	memType, ok := findMemoryType(a.memProps, vk.MemoryPropertyFlagBits(memReqs.MemoryTypeBits), vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		vk.DestroyImage(a.device, img, nil)
		return Image{}, vkerr.New(vkerr.KindInit, "CreateImage", fmt.Errorf("no suitable memory type"))
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(a.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if err := vkerr.Result(vkerr.KindInit, "AllocateMemory", ret); err != nil {
		vk.DestroyImage(a.device, img, nil)
		return Image{}, err
	}
	vk.BindImageMemory(a.device, img, mem, 0)

	a.addTotal(KindImage, int64(memReqs.Size))
	return Image{Handle: img, Memory: mem, Size: memReqs.Size, Format: spec.Format, Extent: spec.Extent, Layers: spec.Layers}, nil
}

func findMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits vk.MemoryPropertyFlagBits, want vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if typeBits&(vk.MemoryPropertyFlagBits(1)<<i) != 0 {
			props.MemoryTypes[i].Deref()
			flags := props.MemoryTypes[i].PropertyFlags
			if flags&vk.MemoryPropertyFlags(want) == vk.MemoryPropertyFlags(want) {
				return i, true
			}
		}
	}
	return 0, false
}

// ReleaseBuffer enqueues a buffer's destruction into the deferred
// release queue rather than freeing it immediately (spec.md §4.2
// "Deferred release").
func (a *Allocator) ReleaseBuffer(safeFrame uint64, b Buffer) {
	size := int64(b.Size)
	a.release.Enqueue(safeFrame, func() {
		if b.Mapped != nil {
			vk.UnmapMemory(a.device, b.Memory)
		}
		vk.DestroyBuffer(a.device, b.Handle, nil)
		vk.FreeMemory(a.device, b.Memory, nil)
		a.addTotal(KindBuffer, -size)
	})
}

// ReleaseImage enqueues an image's destruction into the deferred
// release queue.
func (a *Allocator) ReleaseImage(safeFrame uint64, img Image) {
	size := int64(img.Size)
	a.release.Enqueue(safeFrame, func() {
		vk.DestroyImage(a.device, img.Handle, nil)
		vk.FreeMemory(a.device, img.Memory, nil)
		a.addTotal(KindImage, -size)
	})
}

// Advance runs every deferred release whose safe frame has passed.
func (a *Allocator) Advance(currentFrame uint64) {
	a.release.Advance(currentFrame)
}

// Shutdown waits the device idle, drains every pending release
// regardless of safe-frame, and asserts the running totals are zero
// (spec.md §4.2 "an assertion verifies the running byte totals are zero").
func (a *Allocator) Shutdown() error {
	vk.DeviceWaitIdle(a.device)
	a.release.DrainAll()
	a.stages.destroy(a.device)
	if b, i := a.Total(KindBuffer), a.Total(KindImage); b != 0 || i != 0 {
		return fmt.Errorf("vram: shutdown with live allocations: buffers=%d images=%d", b, i)
	}
	return nil
}
