package vram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReleaseQueueAdvanceRunsOnlyMaturedReleases(t *testing.T) {
	assert := assert.New(t)
	q := newReleaseQueue()

	var ran []string
	q.Enqueue(3, func() { ran = append(ran, "frame3") })
	q.Enqueue(5, func() { ran = append(ran, "frame5") })

	q.Advance(2)
	assert.Empty(ran)
	assert.False(q.Empty())

	q.Advance(3)
	assert.Equal([]string{"frame3"}, ran)
	assert.False(q.Empty())

	q.Advance(10)
	assert.Equal([]string{"frame3", "frame5"}, ran)
	assert.True(q.Empty())
}

func TestReleaseQueueDrainAllIgnoresSafeFrame(t *testing.T) {
	assert := assert.New(t)
	q := newReleaseQueue()

	var ran []string
	q.Enqueue(1000, func() { ran = append(ran, "a") })
	q.Enqueue(2000, func() { ran = append(ran, "b") })

	q.DrainAll()
	assert.Equal([]string{"a", "b"}, ran)
	assert.True(q.Empty())
}

func TestReleaseQueueEmptyOnNewQueue(t *testing.T) {
	assert := assert.New(t)
	assert.True(newReleaseQueue().Empty())
}
