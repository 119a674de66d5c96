package descriptor

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vkengine/vk/vkerr"
	"github.com/andewx/vkengine/vk/vram"
)

// growableBuffer is a persistently-mapped host-visible buffer that
// doubles its capacity when a write overflows it, mirroring the
// staging ring's growth strategy (spec.md §4.2) applied to the
// per-frame object SSBOs.
type growableBuffer struct {
	usage vk.BufferUsageFlags
	buf   vram.Buffer
	cap   vk.DeviceSize
}

func (g *growableBuffer) ensure(alloc *vram.Allocator, size vk.DeviceSize) error {
	if size <= g.cap {
		return nil
	}
	newCap := g.cap
	if newCap == 0 {
		newCap = 4096
	}
	for newCap < size {
		newCap *= 2
	}
	b, err := alloc.CreateBuffer(vram.BufferSpec{
		Size:        newCap,
		Usage:       g.usage,
		HostVisible: true,
	})
	if err != nil {
		return vkerr.New(vkerr.KindTransferExhausted, "descriptor.growableBuffer.ensure", err)
	}
	g.buf, g.cap = b, newCap
	return nil
}

func (g *growableBuffer) write(data unsafe.Pointer, size vk.DeviceSize) {
	if size == 0 {
		return
	}
	dst := unsafe.Slice((*byte)(g.buf.Mapped), int(size))
	src := unsafe.Slice((*byte)(data), int(size))
	copy(dst, src)
}

// FrameSet owns one virtual frame's slice of the object SSBOs, the
// view UBO, and the allocated descriptor sets bound to them. The
// scheduler calls BuildFrame once per frame before recording the render
// pass (spec.md §4.6 "Per frame the scheduler fills growable
// per-slot GPU buffers").
type FrameSet struct {
	device vk.Device
	pool   vk.DescriptorPool
	layout Layouts

	View     vk.DescriptorSet
	Object   vk.DescriptorSet
	Textures vk.DescriptorSet

	viewBuf    growableBuffer
	models     growableBuffer
	normals    growableBuffer
	materials  growableBuffer
	tints      growableBuffer
	flagsBuf   growableBuffer
	dirLights  growableBuffer

	diffuseID  uint32
	specularID uint32
}

// NewFrameSet allocates one of each descriptor set from pool and wraps
// the growable buffers that back the object/view sets.
func NewFrameSet(device vk.Device, pool vk.DescriptorPool, layout Layouts) (*FrameSet, error) {
	layouts := []vk.DescriptorSetLayout{layout.View, layout.Object, layout.Textures}
	sets := make([]vk.DescriptorSet, len(layouts))
	ret := vk.AllocateDescriptorSets(device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(len(layouts)),
		PSetLayouts:        layouts,
	}, &sets[0])
	if err := vkerr.Result(vkerr.KindInit, "AllocateDescriptorSets", ret); err != nil {
		return nil, err
	}

	fs := &FrameSet{
		device:   device,
		pool:     pool,
		layout:   layout,
		View:     sets[0],
		Object:   sets[1],
		Textures: sets[2],
	}
	fs.viewBuf.usage = vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	fs.models.usage = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	fs.normals.usage = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	fs.materials.usage = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	fs.tints.usage = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	fs.flagsBuf.usage = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	fs.dirLights.usage = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	return fs, nil
}

// Destroy frees the growable buffers; the descriptor sets themselves
// are reclaimed when the owning pool is destroyed.
func (fs *FrameSet) Destroy(alloc *vram.Allocator, safeFrame uint64) {
	for _, b := range []*growableBuffer{&fs.viewBuf, &fs.models, &fs.normals, &fs.materials, &fs.tints, &fs.flagsBuf, &fs.dirLights} {
		if b.cap > 0 {
			alloc.ReleaseBuffer(safeFrame, b.buf)
		}
	}
}

// objectSSBOs accumulates one frame's worth of per-drawable rows
// before a single bulk write per SSBO, matching renderer.cpp's
// "push_back into ssbos.*" pattern.
type objectSSBOs struct {
	models    []byte
	normals   []byte
	materials []byte
	tints     []byte
	flags     []uint32
	dirLights []byte
}

// FallbackTextures holds the deterministic blanks substituted when a
// drawable has no diffuse/specular texture bound (spec.md §4.6
// "Missing textures fall back to deterministic blanks").
type FallbackTextures struct {
	White      vk.ImageView
	WhiteImage vram.Image
	WhiteS     vk.Sampler
	Black      vk.ImageView
	BlackImage vram.Image
	BlackS     vk.Sampler
	Cubemap      vk.ImageView // blank 1x1x6 environment map bound to the textures set's cubemap slot
	CubemapImage vram.Image
	CubemapS     vk.Sampler
	Sampler    vk.Sampler // shared by White/BlackS; kept once, destroyed once
	Magenta    [4]float32 // tint substituted in place of a texture read
}

// Destroy releases the fallback images, their views, and the shared
// sampler. safeFrame should be the scheduler's current frame counter;
// nothing references these until a later frame, but the normal
// deferred-release path keeps teardown uniform across resource kinds.
func (f FallbackTextures) Destroy(device vk.Device, alloc *vram.Allocator, safeFrame uint64) {
	vk.DestroyImageView(device, f.White, nil)
	vk.DestroyImageView(device, f.Black, nil)
	vk.DestroyImageView(device, f.Cubemap, nil)
	vk.DestroySampler(device, f.Sampler, nil)
	vk.DestroySampler(device, f.CubemapS, nil)
	alloc.ReleaseImage(safeFrame, f.WhiteImage)
	alloc.ReleaseImage(safeFrame, f.BlackImage)
	alloc.ReleaseImage(safeFrame, f.CubemapImage)
}

// DefaultMagentaTint is the fallback material-tint debug colour used
// when a drawable is flagged textured but carries no bound view.
var DefaultMagentaTint = [4]float32{1, 0, 1, 1}
