package registry_test

import (
	"strings"
	"testing"
	"time"

	"github.com/remotedeck/remotedeck/pkg/domain/session"
	"github.com/remotedeck/remotedeck/pkg/infra/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry_CreateAllocatesFreshSession(t *testing.T) {
	r := registry.NewMemoryRegistry(15*time.Minute, nil)

	s, err := r.Create()
	require.NoError(t, err)

	assert.Len(t, s.ID, session.DefaultIDLength)
	for _, c := range s.ID {
		assert.True(t, strings.ContainsRune(session.IDAlphabet, c))
	}
	assert.Nil(t, s.DesktopConn)
	assert.Nil(t, s.PhoneConn)
	assert.False(t, s.PhoneConnected)
	assert.Equal(t, 15*time.Minute, s.ExpiresAt.Sub(s.CreatedAt))
	assert.Equal(t, 1, r.Len())
}

func TestMemoryRegistry_GetUnknownID(t *testing.T) {
	r := registry.NewMemoryRegistry(time.Minute, nil)

	_, err := r.Get("ZZZZZZ")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMemoryRegistry_GetReturnsSameInstance(t *testing.T) {
	r := registry.NewMemoryRegistry(time.Minute, nil)

	created, err := r.Create()
	require.NoError(t, err)

	got, err := r.Get(created.ID)
	require.NoError(t, err)
	assert.Same(t, created, got)
}

func TestMemoryRegistry_RemoveIsIdempotent(t *testing.T) {
	r := registry.NewMemoryRegistry(time.Minute, nil)

	s, err := r.Create()
	require.NoError(t, err)

	r.Remove(s.ID)
	assert.NotPanics(t, func() { r.Remove(s.ID) })

	_, err = r.Get(s.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.Equal(t, 0, r.Len())
}

func TestMemoryRegistry_SweepExpiredRemovesOnlyExpired(t *testing.T) {
	r := registry.NewMemoryRegistry(time.Minute, nil)

	expired, err := r.Create()
	require.NoError(t, err)
	soon, err := r.Create()
	require.NoError(t, err)
	later, err := r.Create()
	require.NoError(t, err)

	expired.ExpiresAt = time.Now().Add(-time.Millisecond)
	soon.ExpiresAt = time.Now().Add(time.Millisecond * 500)
	later.ExpiresAt = time.Now().Add(10 * time.Minute)

	removed := r.SweepExpired()

	assert.Equal(t, 1, removed)
	_, err = r.Get(expired.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = r.Get(soon.ID)
	assert.NoError(t, err)
	_, err = r.Get(later.ID)
	assert.NoError(t, err)
}

func TestMemoryRegistry_SweepOnEmptyRegistry(t *testing.T) {
	r := registry.NewMemoryRegistry(time.Minute, nil)
	assert.Equal(t, 0, r.SweepExpired())
}
