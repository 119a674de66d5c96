package descriptor

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vkengine/vk/vram"
)

// NewFallbackTextures uploads the deterministic 1x1 white/black blanks
// spec.md §4.6 substitutes for an unbound diffuse/specular texture,
// grounded on mrigankad-gorenderengine/scene/texture.go's
// NewSolidTexture (CPU-side shape) staged through vram the way any
// other texture asset would be.
func NewFallbackTextures(device vk.Device, alloc *vram.Allocator) (FallbackTextures, error) {
	white, whiteView, err := newSolidTexture(device, alloc, [4]byte{0xff, 0xff, 0xff, 0xff})
	if err != nil {
		return FallbackTextures{}, fmt.Errorf("descriptor: fallback white texture: %w", err)
	}
	black, blackView, err := newSolidTexture(device, alloc, [4]byte{0x00, 0x00, 0x00, 0xff})
	if err != nil {
		return FallbackTextures{}, fmt.Errorf("descriptor: fallback black texture: %w", err)
	}

	sampler, err := newNearestSampler(device)
	if err != nil {
		return FallbackTextures{}, fmt.Errorf("descriptor: fallback sampler: %w", err)
	}

	cubemap, cubemapView, err := newBlankCubemap(device, alloc, [4]byte{0x00, 0x00, 0x00, 0xff})
	if err != nil {
		return FallbackTextures{}, fmt.Errorf("descriptor: fallback cubemap: %w", err)
	}
	cubemapSampler, err := newNearestSampler(device)
	if err != nil {
		return FallbackTextures{}, fmt.Errorf("descriptor: fallback cubemap sampler: %w", err)
	}

	return FallbackTextures{
		White:        whiteView,
		WhiteImage:   white,
		WhiteS:       sampler,
		Black:        blackView,
		BlackImage:   black,
		BlackS:       sampler,
		Cubemap:      cubemapView,
		CubemapImage: cubemap,
		CubemapS:     cubemapSampler,
		Sampler:      sampler,
		Magenta:      DefaultMagentaTint,
	}, nil
}

// newBlankCubemap uploads a 1x1 six-layer cube image so the textures
// set's binding 2 (spec.md §4.6 "a single cubemap slot") always has a
// deterministic blank to fall back to when no environment map is bound.
func newBlankCubemap(device vk.Device, alloc *vram.Allocator, rgba [4]byte) (vram.Image, vk.ImageView, error) {
	img, err := alloc.CreateImage(vram.ImageSpec{
		Extent: vk.Extent3D{Width: 1, Height: 1, Depth: 1},
		Format: vk.FormatR8g8b8a8Unorm,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
		Flags:  vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit),
		Layers: 6,
	})
	if err != nil {
		return vram.Image{}, vk.NullImageView, err
	}

	faces := make([][]byte, 6)
	for i := range faces {
		faces[i] = rgba[:]
	}
	if _, err := alloc.StageToImage(img, vk.ImageAspectFlags(vk.ImageAspectColorBit), faces); err != nil {
		return vram.Image{}, vk.NullImageView, err
	}

	var view vk.ImageView
	ret := vk.CreateImageView(device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.Handle,
		ViewType: vk.ImageViewTypeCube,
		Format:   vk.FormatR8g8b8a8Unorm,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 6,
		},
	}, nil, &view)
	if ret != vk.Success {
		return vram.Image{}, vk.NullImageView, fmt.Errorf("vkCreateImageView failed: %d", ret)
	}
	return img, view, nil
}

func newSolidTexture(device vk.Device, alloc *vram.Allocator, rgba [4]byte) (vram.Image, vk.ImageView, error) {
	img, err := alloc.CreateImage(vram.ImageSpec{
		Extent: vk.Extent3D{Width: 1, Height: 1, Depth: 1},
		Format: vk.FormatR8g8b8a8Unorm,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit),
		Layers: 1,
	})
	if err != nil {
		return vram.Image{}, vk.NullImageView, err
	}

	if _, err := alloc.StageToImage(img, vk.ImageAspectFlags(vk.ImageAspectColorBit), [][]byte{rgba[:]}); err != nil {
		return vram.Image{}, vk.NullImageView, err
	}

	var view vk.ImageView
	ret := vk.CreateImageView(device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   vk.FormatR8g8b8a8Unorm,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view)
	if ret != vk.Success {
		return vram.Image{}, vk.NullImageView, fmt.Errorf("vkCreateImageView failed: %d", ret)
	}
	return img, view, nil
}

func newNearestSampler(device vk.Device) (vk.Sampler, error) {
	var sampler vk.Sampler
	ret := vk.CreateSampler(device, &vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterNearest,
		MinFilter:    vk.FilterNearest,
		AddressModeU: vk.SamplerAddressModeRepeat,
		AddressModeV: vk.SamplerAddressModeRepeat,
		AddressModeW: vk.SamplerAddressModeRepeat,
		MaxLod:       1,
	}, nil, &sampler)
	if ret != vk.Success {
		return vk.NullHandle, fmt.Errorf("vkCreateSampler failed: %d", ret)
	}
	return sampler, nil
}
