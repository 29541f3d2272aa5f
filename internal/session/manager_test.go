package session_test

import (
	"testing"
	"time"

	"github.com/jarlab/jarlab/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Lifecycle(t *testing.T) {
	m := session.NewManager(session.DefaultDefaults())

	s := m.Create()
	require.NotEmpty(t, s.ID)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	other, created := m.GetOrCreate("unknown")
	assert.True(t, created)
	assert.NotEqual(t, s.ID, other.ID)
	assert.Equal(t, 2, m.Len())

	m.End(s.ID)
	_, ok = m.Get(s.ID)
	assert.False(t, ok)
}

func TestManager_Sweep(t *testing.T) {
	now := testNow
	m := session.NewManager(session.DefaultDefaults())
	m.SetClock(func() time.Time { return now })

	stale := m.Create()
	now = now.Add(45 * time.Minute)
	fresh := m.Create()
	now = now.Add(30 * time.Minute)

	assert.Equal(t, 1, m.Sweep(time.Hour))

	_, ok := m.Get(stale.ID)
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok)
}

func TestManager_InvalidTrialDefault(t *testing.T) {
	d := session.DefaultDefaults()
	d.Trials = 50
	m := session.NewManager(d)

	s := m.Create()
	c, err := s.AddCombination(session.NewKey(ferric, ""), lists())
	require.NoError(t, err)
	assert.Len(t, c.Trials, session.DefaultTrials)
}
