package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mnemo/internal/errors"
)

func TestManager_CreateGetDelete(t *testing.T) {
	m := NewManager(func(id string) *Session { return New(id, testWords) })

	s := m.Create()
	require.NotNil(t, s)
	assert.Len(t, s.ID(), 26)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	other := m.Create()
	assert.NotEqual(t, s.ID(), other.ID())

	assert.True(t, m.Delete(s.ID()))
	assert.False(t, m.Delete(s.ID()))

	_, err = m.Get(s.ID())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestManager_Sweep(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	now := func() time.Time { return clock }

	m := NewManager(func(id string) *Session {
		s := New(id, testWords)
		s.now = now
		s.lastActive = now()
		return s
	})
	m.now = now

	idle := m.Create()
	events, _ := idle.Subscribe(1)

	clock = clock.Add(30 * time.Minute)
	active := m.Create()

	clock = clock.Add(40 * time.Minute)
	assert.Equal(t, 0, m.Sweep(0))
	assert.Equal(t, 1, m.Sweep(time.Hour))

	_, err := m.Get(idle.ID())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = m.Get(active.ID())
	assert.NoError(t, err)

	_, open := <-events
	assert.False(t, open, "swept session closes its subscribers")
}
