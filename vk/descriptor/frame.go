package descriptor

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vkengine/vk/vram"
)

// OrderedDraw is one drawable after pipeline-sort, carrying the push
// constants the scheduler must push immediately before issuing its
// draw call.
type OrderedDraw struct {
	Drawable
	Push PushConstants
}

// OrderedBatch is a Batch with its drawables grouped by pipeline
// (spec.md §4.6 "drawables in a batch are grouped by pipeline").
type OrderedBatch struct {
	Viewport  ScreenRect
	Scissor   ScreenRect
	Drawables []OrderedDraw
}

// BuildFrame fills this frame's object/view SSBOs and the textures
// set's sampler-array slots, and returns the draw list re-grouped by
// pipeline with push constants assigned. Grounded on
// original_source/libs/engine/src/gfx/renderer.cpp:Renderer::render's
// per-batch SSBO/push-constant accumulation loop.
func (fs *FrameSet) BuildFrame(alloc *vram.Allocator, list DrawList, fallback FallbackTextures) ([]OrderedBatch, error) {
	fs.diffuseID = 0
	fs.specularID = 0
	fs.writeTexture(0, fallback.White, fallback.WhiteS, true)
	fs.diffuseID++
	fs.writeTexture(0, fallback.Black, fallback.BlackS, false)
	fs.specularID++

	cubeView, cubeSampler := fallback.Cubemap, fallback.CubemapS
	if list.Cubemap != vk.NullImageView {
		cubeView, cubeSampler = list.Cubemap, list.CubemapSampler
	} else {
	findCubemap:
		for _, batch := range list.Batches {
			for _, d := range batch.Drawables {
				if d.CubemapView != vk.NullImageView {
					cubeView, cubeSampler = d.CubemapView, d.CubemapSampler
					break findCubemap
				}
			}
		}
	}
	fs.writeCubemap(cubeView, cubeSampler)

	var ssbo objectSSBOs
	for _, dl := range list.DirLights {
		ssbo.dirLights = appendDirLight(ssbo.dirLights, dl)
	}
	view := list.View
	view.DirLightCount = uint32(len(list.DirLights))

	out := make([]OrderedBatch, len(list.Batches))

	for bi, batch := range list.Batches {
		ob := OrderedBatch{Viewport: batch.Viewport, Scissor: batch.Scissor}
		sorted := append([]Drawable(nil), batch.Drawables...)
		sortByPipeline(sorted)

		for _, d := range sorted {
			objectID := uint32(len(ssbo.flags))

			ssbo.models = appendMat4(ssbo.models, d.Model)
			ssbo.normals = appendMat4(ssbo.normals, d.NormalModel)
			ssbo.materials = appendMaterial(ssbo.materials, d.Material)

			tint := d.Tint
			push := PushConstants{ObjectID: objectID}

			if d.DiffuseView != vk.NullImageView {
				fs.writeTexture(fs.diffuseID, d.DiffuseView, d.DiffuseSampler, true)
				push.DiffuseID = fs.diffuseID
				fs.diffuseID++
			} else {
				push.DiffuseID = 0
				if d.Flags&FlagTextured != 0 {
					tint = vec4FromArray(DefaultMagentaTint)
				}
			}

			if d.SpecularView != vk.NullImageView {
				fs.writeTexture(fs.specularID, d.SpecularView, d.SpecularSampler, false)
				push.SpecularID = fs.specularID
				fs.specularID++
			} else {
				push.SpecularID = 0
			}

			ssbo.tints = appendVec4(ssbo.tints, tint)
			ssbo.flags = append(ssbo.flags, d.Flags)

			ob.Drawables = append(ob.Drawables, OrderedDraw{Drawable: d, Push: push})
		}
		out[bi] = ob
	}

	if err := fs.writeSSBOs(alloc, ssbo, view); err != nil {
		return nil, err
	}
	return out, nil
}

func (fs *FrameSet) writeSSBOs(alloc *vram.Allocator, ssbo objectSSBOs, view ViewUBO) error {
	type slot struct {
		buf  *growableBuffer
		data []byte
	}
	flagsBytes := uint32SliceToBytes(ssbo.flags)
	slots := []slot{
		{&fs.models, ssbo.models},
		{&fs.normals, ssbo.normals},
		{&fs.materials, ssbo.materials},
		{&fs.tints, ssbo.tints},
		{&fs.flagsBuf, flagsBytes},
		{&fs.dirLights, ssbo.dirLights},
	}
	for _, s := range slots {
		size := vk.DeviceSize(len(s.data))
		if size == 0 {
			continue
		}
		if err := s.buf.ensure(alloc, size); err != nil {
			return err
		}
		s.buf.write(unsafe.Pointer(&s.data[0]), size)
	}

	viewBytes := viewUBOBytes(view)
	if err := fs.viewBuf.ensure(alloc, vk.DeviceSize(len(viewBytes))); err != nil {
		return err
	}
	fs.viewBuf.write(unsafe.Pointer(&viewBytes[0]), vk.DeviceSize(len(viewBytes)))

	fs.writeBufferDescriptor(fs.View, 0, vk.DescriptorTypeUniformBuffer, fs.viewBuf.buf.Handle, vk.DeviceSize(len(viewBytes)))
	objectBuffers := []*growableBuffer{&fs.models, &fs.normals, &fs.materials, &fs.tints, &fs.flagsBuf, &fs.dirLights}
	for binding, b := range objectBuffers {
		if b.cap == 0 {
			continue
		}
		fs.writeBufferDescriptor(fs.Object, uint32(binding), vk.DescriptorTypeStorageBuffer, b.buf.Handle, b.cap)
	}
	return nil
}

func (fs *FrameSet) writeBufferDescriptor(set vk.DescriptorSet, binding uint32, kind vk.DescriptorType, buf vk.Buffer, size vk.DeviceSize) {
	info := vk.DescriptorBufferInfo{Buffer: buf, Offset: 0, Range: size}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  kind,
		PBufferInfo:     []vk.DescriptorBufferInfo{info},
	}
	vk.UpdateDescriptorSets(fs.device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// writeTexture writes a single combined-image-sampler array element:
// binding 0 for diffuse, binding 1 for specular.
func (fs *FrameSet) writeTexture(index uint32, view vk.ImageView, sampler vk.Sampler, diffuse bool) {
	binding := uint32(1)
	if diffuse {
		binding = 0
	}
	info := vk.DescriptorImageInfo{
		Sampler:     sampler,
		ImageView:   view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          fs.Textures,
		DstBinding:      binding,
		DstArrayElement: index,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{info},
	}
	vk.UpdateDescriptorSets(fs.device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// writeCubemap writes the textures set's single cubemap slot
// (binding 2), defaulting to the blank fallback when neither the draw
// list nor any drawable supplies an environment map.
func (fs *FrameSet) writeCubemap(view vk.ImageView, sampler vk.Sampler) {
	info := vk.DescriptorImageInfo{
		Sampler:     sampler,
		ImageView:   view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          fs.Textures,
		DstBinding:      2,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{info},
	}
	vk.UpdateDescriptorSets(fs.device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// sortByPipeline groups drawables by pipeline handle, preserving
// relative order within a group (spec.md §4.6 "Sorting").
func sortByPipeline(d []Drawable) {
	seen := map[vk.Pipeline]bool{}
	order := make([]vk.Pipeline, 0, len(d))
	groups := map[vk.Pipeline][]Drawable{}
	for _, dr := range d {
		if !seen[dr.Pipeline] {
			seen[dr.Pipeline] = true
			order = append(order, dr.Pipeline)
		}
		groups[dr.Pipeline] = append(groups[dr.Pipeline], dr)
	}
	i := 0
	for _, p := range order {
		for _, dr := range groups[p] {
			d[i] = dr
			i++
		}
	}
}
