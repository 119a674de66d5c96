package vram

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vkengine/vk/vkerr"
)

// stageCount mirrors original_source/libs/engine/src/gfx/vram.cpp's
// g_stageCount: eight staging slots are maintained regardless of
// workload, trading a little idle VRAM for bounded wait times.
const stageCount = 8

// maxSpinIterations bounds the wait for a free staging slot
// (spec.md §4.2 step 1, §8 boundary scenario 5).
const maxSpinIterations = 1000

type stage struct {
	mu     sync.Mutex
	buffer Buffer
	pool   vk.CommandPool
	cmd    vk.CommandBuffer
	fence  vk.Fence
}

type stagingRing struct {
	device   vk.Device
	memProps vk.PhysicalDeviceMemoryProperties
	queue    vk.Queue
	family   uint32
	slots    [stageCount]*stage
	next     uint64 // round-robin hint, advanced by every successful acquire() call
	mu       sync.Mutex
}

func newStagingRing(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, family uint32) (*stagingRing, error) {
	r := &stagingRing{device: device, memProps: memProps, family: family}
	for i := 0; i < stageCount; i++ {
		s, err := newStage(device, family)
		if err != nil {
			for j := 0; j < i; j++ {
				r.slots[j].destroy(device)
			}
			return nil, err
		}
		r.slots[i] = s
	}
	return r, nil
}

func newStage(device vk.Device, family uint32) (*stage, error) {
	s := &stage{}
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit | vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: family,
	}, nil, &pool)
	if err := vkerr.Result(vkerr.KindInit, "CreateCommandPool", ret); err != nil {
		return nil, err
	}
	s.pool = pool

	bufs := make([]vk.CommandBuffer, 1)
	ret = vk.AllocateCommandBuffers(device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, bufs)
	if err := vkerr.Result(vkerr.KindInit, "AllocateCommandBuffers", ret); err != nil {
		vk.DestroyCommandPool(device, pool, nil)
		return nil, err
	}
	s.cmd = bufs[0]

	var fence vk.Fence
	ret = vk.CreateFence(device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}, nil, &fence)
	if err := vkerr.Result(vkerr.KindInit, "CreateFence", ret); err != nil {
		vk.DestroyCommandPool(device, pool, nil)
		return nil, err
	}
	s.fence = fence
	return s, nil
}

func (s *stage) destroy(device vk.Device) {
	if s.buffer.Handle != vk.NullBuffer {
		if s.buffer.Mapped != nil {
			vk.UnmapMemory(device, s.buffer.Memory)
		}
		vk.DestroyBuffer(device, s.buffer.Handle, nil)
		vk.FreeMemory(device, s.buffer.Memory, nil)
	}
	vk.DestroyFence(device, s.fence, nil)
	vk.DestroyCommandPool(device, s.pool, nil)
}

func (r *stagingRing) destroy(device vk.Device) {
	for _, s := range r.slots {
		if s != nil {
			s.destroy(device)
		}
	}
}

// acquire finds a slot whose fence is signalled, spinning up to
// maxSpinIterations with a yield between tries (spec.md §4.2 step 1).
func (r *stagingRing) acquire() (*stage, error) {
	for iter := 0; iter < maxSpinIterations; iter++ {
		r.mu.Lock()
		idx := r.next
		r.mu.Unlock()

		for i := uint64(0); i < stageCount; i++ {
			s := r.slots[(idx+i)%stageCount]
			status := vk.GetFenceStatus(r.device, s.fence)
			if status == vk.Success {
				s.mu.Lock()
				r.mu.Lock()
				r.next = (idx + i + 1) % stageCount
				r.mu.Unlock()
				return s, nil
			}
		}
		runtime.Gosched()
	}
	return nil, vkerr.New(vkerr.KindTransferExhausted, "stagingRing.acquire", fmt.Errorf("all %d staging slots busy after %d iterations", stageCount, maxSpinIterations))
}

// growIfNeeded doubles the slot's staging buffer until it can hold
// size bytes (spec.md §4.2 step 2, "doubling strategy, capped at
// requested size").
func (r *stagingRing) growIfNeeded(a *Allocator, s *stage, size vk.DeviceSize) error {
	if s.buffer.Size >= size {
		return nil
	}
	newSize := s.buffer.Size
	if newSize == 0 {
		newSize = size
	}
	for newSize < size {
		newSize *= 2
	}
	if s.buffer.Handle != vk.NullBuffer {
		if s.buffer.Mapped != nil {
			vk.UnmapMemory(r.device, s.buffer.Memory)
		}
		vk.DestroyBuffer(r.device, s.buffer.Handle, nil)
		vk.FreeMemory(r.device, s.buffer.Memory, nil)
	}
	buf, err := a.createBufferRaw(BufferSpec{
		Size:        newSize,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		HostVisible: true,
	})
	if err != nil {
		return err
	}
	s.buffer = buf
	return nil
}

// StageToBuffer copies data into dst via a staging slot and returns
// the fence that signals when the copy has landed (spec.md §4.2
// steps 1-4).
func (a *Allocator) StageToBuffer(dst Buffer, dstOffset vk.DeviceSize, data []byte) (vk.Fence, error) {
	s, err := a.stages.acquire()
	if err != nil {
		return vk.NullFence, err
	}
	defer s.mu.Unlock()

	if err := a.stages.growIfNeeded(a, s, vk.DeviceSize(len(data))); err != nil {
		return vk.NullFence, err
	}
	copyToMapped(s.buffer.Mapped, data)

	vk.ResetFences(a.device, 1, []vk.Fence{s.fence})
	vk.ResetCommandBuffer(s.cmd, 0)
	vk.BeginCommandBuffer(s.cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	vk.CmdCopyBuffer(s.cmd, s.buffer.Handle, dst.Handle, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: dstOffset,
		Size:      vk.DeviceSize(len(data)),
	}})
	vk.EndCommandBuffer(s.cmd)

	return s.fence, a.submitStage(s)
}

// StageToImage copies one byte slice per array layer into dst,
// transitioning undefined -> transfer_dst -> shader_read_only
// (spec.md §4.2 step 4, "Image copies may additionally take an array
// of byte slices (one per layer)").
func (a *Allocator) StageToImage(dst Image, aspect vk.ImageAspectFlags, layerData [][]byte) (vk.Fence, error) {
	total := 0
	for _, d := range layerData {
		total += len(d)
	}
	s, err := a.stages.acquire()
	if err != nil {
		return vk.NullFence, err
	}
	defer s.mu.Unlock()

	if err := a.stages.growIfNeeded(a, s, vk.DeviceSize(total)); err != nil {
		return vk.NullFence, err
	}

	offsets := make([]vk.DeviceSize, len(layerData))
	var cursor vk.DeviceSize
	base := uintptr(s.buffer.Mapped)
	for i, d := range layerData {
		offsets[i] = cursor
		copyToMapped(unsafe.Pointer(base+uintptr(cursor)), d)
		cursor += vk.DeviceSize(len(d))
	}

	vk.ResetFences(a.device, 1, []vk.Fence{s.fence})
	vk.ResetCommandBuffer(s.cmd, 0)
	vk.BeginCommandBuffer(s.cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})

	subresource := vk.ImageSubresourceRange{
		AspectMask:     aspect,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     dst.Layers,
	}
	imageBarrier(s.cmd, dst.Handle, subresource, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)

	regions := make([]vk.BufferImageCopy, len(layerData))
	for i := range layerData {
		regions[i] = vk.BufferImageCopy{
			BufferOffset: offsets[i],
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     aspect,
				MipLevel:       0,
				BaseArrayLayer: uint32(i),
				LayerCount:     1,
			},
			ImageExtent: dst.Extent,
		}
	}
	vk.CmdCopyBufferToImage(s.cmd, s.buffer.Handle, dst.Handle, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)

	imageBarrier(s.cmd, dst.Handle, subresource, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)

	vk.EndCommandBuffer(s.cmd)
	return s.fence, a.submitStage(s)
}

func (a *Allocator) submitStage(s *stage) error {
	cmds := []vk.CommandBuffer{s.cmd}
	ret := vk.QueueSubmit(a.transferQ, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    cmds,
	}}, s.fence)
	return vkerr.Result(vkerr.KindTransferExhausted, "QueueSubmit", ret)
}

func copyToMapped(dst unsafe.Pointer, src []byte) {
	if len(src) == 0 {
		return
	}
	out := (*[1 << 30]byte)(dst)[:len(src):len(src)]
	copy(out, src)
}

func imageBarrier(cmd vk.CommandBuffer, img vk.Image, sub vk.ImageSubresourceRange, from, to vk.ImageLayout) {
	srcAccess, srcStage := accessAndStageFor(from)
	dstAccess, dstStage := accessAndStageFor(to)
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange:    sub,
	}})
}

func accessAndStageFor(layout vk.ImageLayout) (vk.AccessFlags, vk.PipelineStageFlags) {
	switch layout {
	case vk.ImageLayoutUndefined:
		return 0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		return 0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
}
