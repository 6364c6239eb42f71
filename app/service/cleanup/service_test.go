package cleanup

import (
	"testing"
	"time"

	"github.com/DandyChux/raecer-bot/app/config"
	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurgeRemovesOnlyStaleSessions(t *testing.T) {
	sessions, err := store.New(nil)
	require.NoError(t, err)

	svc := NewService(&config.Config{}, sessions)

	stale := sessions.Create()
	time.Sleep(60 * time.Millisecond)
	fresh := sessions.Create()

	assert.Equal(t, 1, svc.Purge(30*time.Millisecond))

	_, err = sessions.Get(stale.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = sessions.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestPurgeIgnoresStatus(t *testing.T) {
	sessions, err := store.New(nil)
	require.NoError(t, err)

	svc := NewService(&config.Config{}, sessions)

	completed := sessions.Create()
	require.NoError(t, sessions.Complete(completed.ID, &store.PatientData{}, &store.ProCtcaeData{}))

	failed := sessions.Create()
	require.NoError(t, sessions.Fail(failed.ID, "boom"))

	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, 2, svc.Purge(20*time.Millisecond))
	assert.Empty(t, sessions.List())
}

func TestPurgeNothingStale(t *testing.T) {
	sessions, err := store.New(nil)
	require.NoError(t, err)

	svc := NewService(&config.Config{}, sessions)
	sessions.Create()

	assert.Equal(t, 0, svc.Purge(time.Hour))
	assert.Len(t, sessions.List(), 1)
}
