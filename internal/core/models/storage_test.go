package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRecyclesWithNewGeneration(t *testing.T) {
	r := NewRegistry()

	a := r.Create()
	b := r.Create()
	require.NotEqual(t, NoEntity, a)
	assert.Equal(t, uint32(0), a.Index())
	assert.Equal(t, uint32(1), b.Index())
	assert.Equal(t, 2, r.Len())

	require.NoError(t, r.Destroy(a))
	assert.False(t, r.Alive(a))

	c := r.Create()
	assert.Equal(t, a.Index(), c.Index())
	assert.Equal(t, a.Generation()+1, c.Generation())
	assert.True(t, r.Alive(c))

	err := r.Destroy(a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStaleEntity))

	err = r.Destroy(EntityID(99))
	assert.True(t, errors.Is(err, ErrEntityNotFound))

	assert.Equal(t, []EntityID{c, b}, r.Entities())
}

func TestStorageIgnoresStaleHandles(t *testing.T) {
	r := NewRegistry()
	s := NewStorage[float32]()

	a := r.Create()
	s.Insert(a, 1.5)
	v, ok := s.Get(a)
	require.True(t, ok)
	assert.Equal(t, float32(1.5), v)

	require.NoError(t, r.Destroy(a))
	b := r.Create()
	require.Equal(t, a.Index(), b.Index())

	assert.False(t, s.Has(b))
	assert.Equal(t, float32(7), s.GetOr(b, 7))

	s.Insert(b, 3)
	assert.False(t, s.Has(a))
	assert.True(t, s.Has(b))
	assert.Equal(t, 1, s.Len())
}

func TestStorageRefAndRemove(t *testing.T) {
	r := NewRegistry()
	s := NewStorage[[3]float32]()
	ids := make([]EntityID, 40)
	for i := range ids {
		ids[i] = r.Create()
		s.Insert(ids[i], [3]float32{float32(i)})
	}

	ref := s.Ref(ids[17])
	require.NotNil(t, ref)
	ref[1] = 4
	v, _ := s.Get(ids[17])
	assert.Equal(t, [3]float32{17, 4, 0}, v)

	assert.True(t, s.Remove(ids[17]))
	assert.False(t, s.Remove(ids[17]))
	assert.Nil(t, s.Ref(ids[17]))
	assert.Equal(t, 39, s.Len())
}
