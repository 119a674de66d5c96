// Package descriptor implements spec.md §4.6: the view/object/textures
// descriptor-set layouts, per-frame growable SSBO/UBO writes, push
// constants, and pipeline-sorted batch iteration with bind
// memoization.
//
// Grounded on the teacher's buffers.go (NewCoreUniformBuffer,
// DescriptorSetLayoutBinding wiring) and pipeline.go (PipelineBuilder
// layout plumbing); the SSBO/push-constant shapes and fallback-texture
// rule are grounded on
// original_source/libs/engine/src/gfx/renderer.cpp (Renderer::render)
// and .../draw/resource_descriptors.hpp.
package descriptor

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Binding indices within the "object" set, matching the six SSBOs
// spec.md §4.6 names.
const (
	BindingModels = iota
	BindingNormals
	BindingMaterials
	BindingTints
	BindingFlags
	BindingDirLights
	objectBindingCount
)

// MaxDiffuse / MaxSpecular bound the textures set's sampler arrays;
// clamped at runtime to the device's reported descriptor-sampler limit
// (spec.md §4.6 "bounded diffuse array (<= hardware-max, typically
// 1024)").
const (
	MaxDiffuse  = 1024
	MaxSpecular = 1024
)

// Layouts owns the three descriptor-set layouts the core defines.
type Layouts struct {
	View     vk.DescriptorSetLayout
	Object   vk.DescriptorSetLayout
	Textures vk.DescriptorSetLayout
}

// CreateLayouts builds the view/object/textures set layouts. maxSamplers
// clamps the two sampler-array bindings to the device's actual limit.
func CreateLayouts(device vk.Device, maxSamplers uint32) (Layouts, error) {
	diffuseCount := clampU32(MaxDiffuse, maxSamplers)
	specularCount := clampU32(MaxSpecular, maxSamplers)

	view, err := createSetLayout(device, []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	})
	if err != nil {
		return Layouts{}, err
	}

	objectBindings := make([]vk.DescriptorSetLayoutBinding, objectBindingCount)
	for i := range objectBindings {
		objectBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		}
	}
	object, err := createSetLayout(device, objectBindings)
	if err != nil {
		vk.DestroyDescriptorSetLayout(device, view, nil)
		return Layouts{}, err
	}

	textures, err := createSetLayout(device, []vk.DescriptorSetLayoutBinding{
		{Binding: 0, DescriptorType: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: diffuseCount, StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
		{Binding: 1, DescriptorType: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: specularCount, StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
		{Binding: 2, DescriptorType: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
	})
	if err != nil {
		vk.DestroyDescriptorSetLayout(device, view, nil)
		vk.DestroyDescriptorSetLayout(device, object, nil)
		return Layouts{}, err
	}

	return Layouts{View: view, Object: object, Textures: textures}, nil
}

func (l Layouts) Destroy(device vk.Device) {
	vk.DestroyDescriptorSetLayout(device, l.View, nil)
	vk.DestroyDescriptorSetLayout(device, l.Object, nil)
	vk.DestroyDescriptorSetLayout(device, l.Textures, nil)
}

func createSetLayout(device vk.Device, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, nil, &layout)
	if ret != vk.Success {
		return vk.NullDescriptorSetLayout, fmt.Errorf("vkCreateDescriptorSetLayout failed: %d", ret)
	}
	return layout, nil
}

func clampU32(want, max uint32) uint32 {
	if max == 0 || want < max {
		return want
	}
	return max
}
