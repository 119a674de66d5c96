package vram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestSharingInfoSingleFamilyIsExclusive(t *testing.T) {
	assert := assert.New(t)
	mode, families := sharingInfo([]uint32{2})
	assert.Equal(vk.SharingModeExclusive, mode)
	assert.Nil(families)
}

func TestSharingInfoEmptyIsExclusive(t *testing.T) {
	assert := assert.New(t)
	mode, families := sharingInfo(nil)
	assert.Equal(vk.SharingModeExclusive, mode)
	assert.Nil(families)
}

func TestSharingInfoDuplicateFamilyCollapsesToExclusive(t *testing.T) {
	assert := assert.New(t)
	mode, _ := sharingInfo([]uint32{1, 1, 1})
	assert.Equal(vk.SharingModeExclusive, mode)
}

func TestSharingInfoMultipleFamiliesIsConcurrent(t *testing.T) {
	assert := assert.New(t)
	mode, families := sharingInfo([]uint32{1, 2})
	assert.Equal(vk.SharingModeConcurrent, mode)
	assert.ElementsMatch([]uint32{1, 2}, families)
}

func TestDedupeUint32(t *testing.T) {
	assert := assert.New(t)
	assert.ElementsMatch([]uint32{1, 2, 3}, dedupeUint32([]uint32{1, 2, 1, 3, 2}))
	assert.Empty(dedupeUint32(nil))
}
