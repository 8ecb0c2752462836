package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type payload struct {
	N int
}

func newStore(ttl time.Duration, max int) (*Store[payload], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New[payload](ttl, max).WithClock(clock.Now), clock
}

func TestStore_GetReturnsSamePointerWithinTTL(t *testing.T) {
	s, clock := newStore(5*time.Minute, 0)
	v := &payload{N: 1}
	s.Set("k", v)

	first, ok := s.Get("k")
	require.True(t, ok)

	clock.Advance(4 * time.Minute)
	second, ok := s.Get("k")
	require.True(t, ok)

	assert.Same(t, v, first)
	assert.Same(t, first, second)
}

func TestStore_ExpiredIsStaleOnly(t *testing.T) {
	s, clock := newStore(time.Minute, 0)
	v := &payload{N: 7}
	s.Set("k", v)
	storedAt := clock.Now()

	clock.Advance(time.Minute)

	_, ok := s.Get("k")
	assert.False(t, ok)

	stale, at, ok := s.GetStale("k")
	require.True(t, ok)
	assert.Same(t, v, stale)
	assert.Equal(t, storedAt, at)

	assert.Equal(t, Stats{Entries: 1, Expired: 1}, s.Stats())
}

func TestStore_Miss(t *testing.T) {
	s, _ := newStore(time.Minute, 0)

	_, ok := s.Get("missing")
	assert.False(t, ok)
	_, _, ok = s.GetStale("missing")
	assert.False(t, ok)
}

func TestStore_EvictsOldest(t *testing.T) {
	s, _ := newStore(time.Minute, 2)
	s.Set("a", &payload{N: 1})
	s.Set("b", &payload{N: 2})
	s.Set("a", &payload{N: 3}) // update in place
	s.Set("c", &payload{N: 4})

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("b")
	assert.False(t, ok)

	a, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, a.N)
}

func TestStore_CleanStale(t *testing.T) {
	s, clock := newStore(time.Minute, 0)
	s.Set("old", &payload{})
	clock.Advance(2 * time.Hour)
	s.Set("new", &payload{})

	removed := s.CleanStale(time.Hour)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
	_, _, ok := s.GetStale("old")
	assert.False(t, ok)
}

func TestStore_DeleteAndClear(t *testing.T) {
	s, _ := newStore(time.Minute, 0)
	s.Set("a", &payload{})
	s.Set("b", &payload{})

	s.Delete("a")
	assert.Equal(t, 1, s.Len())

	s.Clear()
	assert.Zero(t, s.Len())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New[payload](time.Minute, 10)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%5))
			s.Set(key, &payload{N: i})
			s.Get(key)
			s.Stats()
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, s.Len(), 5)
}
