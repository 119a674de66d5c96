package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadGetStatus(t *testing.T) {
	assert := assert.New(t)
	s := New()

	guid, err := s.Load("tex.brick", "brick.png", func(id, source string) (interface{}, error) {
		return "payload:" + source, nil
	})
	assert.NoError(err)
	assert.NotZero(guid)

	payload, ok := s.Get("tex.brick")
	assert.True(ok)
	assert.Equal("payload:brick.png", payload)

	status, ok := s.Status("tex.brick")
	assert.True(ok)
	assert.Equal(StatusReady, status)
}

func TestLoadDuplicateIDRejected(t *testing.T) {
	assert := assert.New(t)
	s := New()
	_, err := s.Load("dup", "a.png", func(id, source string) (interface{}, error) { return nil, nil })
	assert.NoError(err)

	_, err = s.Load("dup", "b.png", func(id, source string) (interface{}, error) { return nil, nil })
	assert.Error(err)
}

func TestLoadFailureSetsErrorStatus(t *testing.T) {
	assert := assert.New(t)
	s := New()
	wantErr := errors.New("bad file")
	_, err := s.Load("broken", "broken.png", func(id, source string) (interface{}, error) {
		return nil, wantErr
	})
	assert.Error(err)
	assert.ErrorIs(err, wantErr)

	status, ok := s.Status("broken")
	assert.True(ok)
	assert.Equal(StatusError, status)

	_, ok = s.Get("broken")
	assert.False(ok)
}

func TestUnloadReleasesActiveAndStandby(t *testing.T) {
	assert := assert.New(t)
	s := New()
	_, err := s.Load("mesh.a", "a.glb", func(id, source string) (interface{}, error) {
		return "active-payload", nil
	})
	assert.NoError(err)

	e := s.entries["mesh.a"]
	e.mu.Lock()
	e.standby = "standby-payload"
	e.mu.Unlock()

	var released []interface{}
	s.Unload("mesh.a", func(payload interface{}) {
		released = append(released, payload)
	})

	assert.ElementsMatch([]interface{}{"active-payload", "standby-payload"}, released)
	_, ok := s.Get("mesh.a")
	assert.False(ok)
}

func TestNewGUIDMonotonic(t *testing.T) {
	assert := assert.New(t)
	a := newGUID()
	b := newGUID()
	assert.Less(int64(a), int64(b))
}
