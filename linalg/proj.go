// Package linalg wraps xlab/linmath with the Vulkan-specific fixups the
// rest of the engine needs: GL clip-space to Vulkan clip-space
// conversion, and the model/normal matrix pair the object SSBO expects.
package linalg

import lin "github.com/xlab/linmath"

// VulkanProjection converts a GL-style projection matrix (linmath's
// native output convention) into Vulkan's clip space: Y flipped and Z
// remapped from [-1,1] to [0,1]. Grounded on the teacher's
// math.go:VulkanProjectionMat.
func VulkanProjection(dst *lin.Mat4x4, src *lin.Mat4x4) {
	dst.Fill(1.0)
	dst.ScaleAniso(dst, 1.0, -1.0, 1.0)
	dst.ScaleAniso(dst, 1.0, 1.0, 0.5)
	dst.Translate(0.0, 0.0, 1.0)
	dst.Mult(dst, src)
}

// Transform is a minimal TRS node used by drawables; it produces the
// model matrix and its inverse-transpose (normal matrix) consumed by
// the object SSBO (spec.md §4.6).
type Transform struct {
	Position lin.Vec3
	Rotation lin.Quat
	Scale    lin.Vec3
}

// Model returns the 4x4 model matrix for this transform.
func (t *Transform) Model() lin.Mat4x4 {
	var m lin.Mat4x4
	m.Identity()
	var rot lin.Mat4x4
	t.Rotation.Mat4x4(&rot)
	m.Mult(&m, &rot)
	m.Scale(&m, t.Scale[0], t.Scale[1], t.Scale[2])
	m[3][0], m[3][1], m[3][2] = t.Position[0], t.Position[1], t.Position[2]
	return m
}

// NormalModel returns the matrix used to transform normals: the
// inverse-transpose of the upper 3x3 of Model(). Non-uniform scale
// breaks the naive "use the model matrix" shortcut, so the transpose
// of the inverse is computed explicitly.
func (t *Transform) NormalModel() lin.Mat4x4 {
	m := t.Model()
	var inv lin.Mat4x4
	inv.Invert(&m)
	var nm lin.Mat4x4
	nm.Transpose(&inv)
	return nm
}
