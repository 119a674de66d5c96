package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestSortByPipelineGroupsByFirstSeenOrder(t *testing.T) {
	assert := assert.New(t)

	pipeA := vk.Pipeline(1)
	pipeB := vk.Pipeline(2)

	d := []Drawable{
		{Pipeline: pipeA, VertexCount: 1},
		{Pipeline: pipeB, VertexCount: 2},
		{Pipeline: pipeA, VertexCount: 3},
		{Pipeline: pipeB, VertexCount: 4},
		{Pipeline: pipeA, VertexCount: 5},
	}

	sortByPipeline(d)

	got := make([]vk.Pipeline, len(d))
	for i, dr := range d {
		got[i] = dr.Pipeline
	}
	assert.Equal([]vk.Pipeline{pipeA, pipeA, pipeA, pipeB, pipeB}, got,
		"pipeline A appears first in the input so its group comes first")

	var gotA, gotB []uint32
	for _, dr := range d {
		switch dr.Pipeline {
		case pipeA:
			gotA = append(gotA, dr.VertexCount)
		case pipeB:
			gotB = append(gotB, dr.VertexCount)
		}
	}
	assert.Equal([]uint32{1, 3, 5}, gotA, "within a group, relative order is preserved")
	assert.Equal([]uint32{2, 4}, gotB)
}

func TestSortByPipelineSingleGroupNoOp(t *testing.T) {
	assert := assert.New(t)
	d := []Drawable{{VertexCount: 1}, {VertexCount: 2}}
	sortByPipeline(d)
	assert.Equal(uint32(1), d[0].VertexCount)
	assert.Equal(uint32(2), d[1].VertexCount)
}
