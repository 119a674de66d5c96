package vkerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestNewNilErr(t *testing.T) {
	assert := assert.New(t)
	assert.Nil(New(KindInit, "op", nil))
}

func TestNewWrapsAndUnwraps(t *testing.T) {
	assert := assert.New(t)
	cause := errors.New("boom")
	err := New(KindAssetNotFound, "resource.Load:id", cause)
	assert.Error(err)
	assert.ErrorIs(err, cause)
	assert.Contains(err.Error(), "asset-not-found")
	assert.Contains(err.Error(), "resource.Load:id")
}

func TestResult(t *testing.T) {
	assert := assert.New(t)
	assert.Nil(Result(KindInit, "CreateInstance", vk.Success))

	err := Result(KindDeviceLost, "QueueSubmit", vk.ErrorDeviceLost)
	assert.Error(err)
	var typed *Error
	assert.ErrorAs(err, &typed)
	assert.Equal(KindDeviceLost, typed.Kind)
}

func TestRecoverableAndFatal(t *testing.T) {
	assert := assert.New(t)

	assert.True(KindSwapchainOutOfDate.Recoverable())
	assert.True(KindTransferExhausted.Recoverable())
	assert.False(KindAssetNotFound.Recoverable())

	assert.True(KindInit.Fatal())
	assert.True(KindDeviceLost.Fatal())
	assert.False(KindSwapchainOutOfDate.Fatal())
	assert.False(KindTransferExhausted.Fatal())
}

func TestIsError(t *testing.T) {
	assert := assert.New(t)
	assert.False(IsError(vk.Success))
	assert.True(IsError(vk.ErrorDeviceLost))
}
