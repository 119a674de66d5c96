package descriptor

import (
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

// ScreenRect is a normalized (0..1) rectangle, converted to a pixel
// viewport/scissor against the current swapchain extent.
type ScreenRect struct {
	Left, Top, Right, Bottom float32
}

// Material mirrors the fixed-layout struct the materials SSBO stores;
// field order matches the shader's expectations.
type Material struct {
	Albedo    lin.Vec4
	Metallic  float32
	Roughness float32
	_pad      [2]float32
}

// DirLight is one entry of the directional-lights SSBO.
type DirLight struct {
	Direction lin.Vec4
	Colour    lin.Vec4
}

const (
	FlagLit      uint32 = 1 << 0
	FlagTextured uint32 = 1 << 1
)

// Drawable is one mesh instance submitted for this frame.
type Drawable struct {
	Model        lin.Mat4x4
	NormalModel  lin.Mat4x4
	Material     Material
	Tint         lin.Vec4
	Flags        uint32
	DiffuseView  vk.ImageView // vk.NullImageView if untextured
	SpecularView vk.ImageView
	DiffuseSampler  vk.Sampler
	SpecularSampler vk.Sampler
	CubemapView    vk.ImageView // optional per-drawable environment override, vk.NullImageView otherwise
	CubemapSampler vk.Sampler
	VertexBuffer vk.Buffer
	IndexBuffer  vk.Buffer
	IndexCount   uint32
	VertexCount  uint32
	Pipeline     vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

// Batch is the unit of viewport/scissor change and pipeline-sort
// grouping (spec.md §4.6 "Sorting").
type Batch struct {
	Viewport  ScreenRect
	Scissor   ScreenRect
	Drawables []Drawable
}

// DrawList is the ordered set of batches produced by the caller and
// consumed once per frame.
type DrawList struct {
	Batches      []Batch
	View         ViewUBO
	DirLights    []DirLight
	Cubemap        vk.ImageView // frame's environment map; vk.NullImageView uses the blank fallback
	CubemapSampler vk.Sampler
	ClearColor   [4]float32
	ClearDepth   float32
	ClearStencil uint32
}

// ViewUBO is the single uniform buffer the "view" set binds.
type ViewUBO struct {
	View         lin.Mat4x4
	Proj         lin.Mat4x4
	Eye          lin.Vec4
	Time         float32
	DirLightCount uint32
	_pad          [2]float32
}

// PushConstants carries the per-draw indices into the object/texture
// SSBOs (spec.md §4.6).
type PushConstants struct {
	ObjectID   uint32
	DiffuseID  uint32
	SpecularID uint32
}
