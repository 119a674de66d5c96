package descriptor

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vkengine/vk/vkerr"
)

// CreatePool builds the one descriptor pool the frame ring allocates
// its view/object/textures sets from, sized for frameCount virtual
// frames. Grounded on the gltf-loader example's
// CreateDescriptorPool/CreateDescriptorSet pattern, adapted to this
// core's three-set-per-frame shape.
func CreatePool(device vk.Device, frameCount uint32, maxSamplers uint32) (vk.DescriptorPool, error) {
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: frameCount},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: frameCount * objectBindingCount},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: frameCount * (2*maxSamplers + 1)},
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       frameCount * 3,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &pool)
	if err := vkerr.Result(vkerr.KindInit, "CreateDescriptorPool", ret); err != nil {
		return vk.NullDescriptorPool, err
	}
	return pool, nil
}

// DestroyPool releases the descriptor pool and every set allocated
// from it.
func DestroyPool(device vk.Device, pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(device, pool, nil)
}
