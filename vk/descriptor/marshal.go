package descriptor

import (
	"unsafe"

	lin "github.com/xlab/linmath"
)

// The helpers below flatten fixed-layout math/SSBO-row types into the
// raw bytes growableBuffer.write expects. Each type's Go memory layout
// already matches its std430 shader layout (plain float32 arrays, no
// pointers), so a reinterpret-copy is safe.

func appendMat4(dst []byte, m lin.Mat4x4) []byte {
	return appendRaw(dst, unsafe.Pointer(&m), int(unsafe.Sizeof(m)))
}

func appendVec4(dst []byte, v lin.Vec4) []byte {
	return appendRaw(dst, unsafe.Pointer(&v), int(unsafe.Sizeof(v)))
}

func appendMaterial(dst []byte, m Material) []byte {
	return appendRaw(dst, unsafe.Pointer(&m), int(unsafe.Sizeof(m)))
}

func appendDirLight(dst []byte, d DirLight) []byte {
	return appendRaw(dst, unsafe.Pointer(&d), int(unsafe.Sizeof(d)))
}

func appendRaw(dst []byte, p unsafe.Pointer, size int) []byte {
	b := unsafe.Slice((*byte)(p), size)
	return append(dst, b...)
}

func vec4FromArray(a [4]float32) lin.Vec4 {
	return lin.Vec4{a[0], a[1], a[2], a[3]}
}

func uint32SliceToBytes(s []uint32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

func viewUBOBytes(v ViewUBO) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&v)), int(unsafe.Sizeof(v)))
}

// Bytes returns the raw push-constant bytes the scheduler pushes
// immediately before each draw call.
func (p PushConstants) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&p)), int(unsafe.Sizeof(p)))
}
