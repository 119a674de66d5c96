package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	lin "github.com/xlab/linmath"
)

func TestAppendMat4GrowsBySizeofMat4(t *testing.T) {
	assert := assert.New(t)
	var m lin.Mat4x4
	dst := appendMat4(nil, m)
	assert.Len(dst, 64) // 16 float32 entries
}

func TestAppendVec4GrowsBySizeofVec4(t *testing.T) {
	assert := assert.New(t)
	dst := appendVec4(nil, lin.Vec4{1, 2, 3, 4})
	assert.Len(dst, 16)
}

func TestAppendAccumulatesAcrossCalls(t *testing.T) {
	assert := assert.New(t)
	var dst []byte
	dst = appendVec4(dst, lin.Vec4{1, 0, 0, 1})
	dst = appendVec4(dst, lin.Vec4{0, 1, 0, 1})
	assert.Len(dst, 32)
}

func TestVec4FromArray(t *testing.T) {
	assert := assert.New(t)
	v := vec4FromArray([4]float32{1, 0, 1, 1})
	assert.Equal(lin.Vec4{1, 0, 1, 1}, v)
}

func TestUint32SliceToBytes(t *testing.T) {
	assert := assert.New(t)
	assert.Nil(uint32SliceToBytes(nil))
	b := uint32SliceToBytes([]uint32{1, 2})
	assert.Len(b, 8)
}

func TestPushConstantsBytes(t *testing.T) {
	assert := assert.New(t)
	pc := PushConstants{ObjectID: 1, DiffuseID: 2, SpecularID: 3}
	b := pc.Bytes()
	assert.Len(b, 12)
	assert.Equal(byte(1), b[0], "ObjectID is little-endian, first field")
}
