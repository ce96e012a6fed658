package arc

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoki317/arc/lru"
	"github.com/motoki317/arc/trace"
)

// replay drives a cache the way the comparison harness does: look the
// key up, and insert on a miss.
func replay[C interface {
	Get(key string) (int64, bool)
	Set(key string, value int64)
}](c C, tr trace.Trace) {
	for r := tr.Next(); r != nil; r = tr.Next() {
		if _, ok := c.Get(r.Key); !ok {
			c.Set(r.Key, r.Value)
		}
	}
}

// checkInvariants asserts the four-list invariants that must hold after
// every public operation.
func checkInvariants[V any](t *testing.T, c *AdaptiveCache[string, V]) {
	t.Helper()

	seen := make(map[string]int)
	for _, keys := range [][]string{c.t1.Keys(), c.t2.Keys(), c.b1.Keys(), c.b2.Keys()} {
		for _, k := range keys {
			seen[k]++
		}
	}
	if c.filter != nil {
		for _, k := range c.filter.Keys() {
			seen[k]++
		}
	}
	for k, n := range seen {
		assert.Equalf(t, 1, n, "key %q appears in %d lists", k, n)
	}

	assert.LessOrEqual(t, c.t1.Size()+c.t2.Size(), c.maxSize)
	assert.LessOrEqual(t, c.b1.Size(), c.b1.MaxSize())
	assert.LessOrEqual(t, c.b2.Size(), c.b2.MaxSize())
	assert.GreaterOrEqual(t, c.p, int64(0))
	assert.LessOrEqual(t, c.p, c.maxSize)
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()

		c, err := New[string, string](2)
		require.NoError(t, err)
		assert.EqualValues(t, 2, c.MaxSize())
		assert.EqualValues(t, 0, c.FilterSize())
	})

	t.Run("invalid size", func(t *testing.T) {
		t.Parallel()

		_, err := New[string, string](0)
		assert.Error(t, err)
		_, err = New[string, string](-1)
		assert.Error(t, err)
	})

	t.Run("invalid filter size", func(t *testing.T) {
		t.Parallel()

		_, err := New[string, string](2, WithFilterSize[string](-1))
		assert.Error(t, err)
	})

	t.Run("with filter", func(t *testing.T) {
		t.Parallel()

		c, err := New[string, string](2, WithFilterSize[string](4))
		require.NoError(t, err)
		assert.EqualValues(t, 4, c.FilterSize())
	})
}

func TestAdaptiveCache_SmallCache(t *testing.T) {
	t.Parallel()

	c, err := New[string, string](2)
	require.NoError(t, err)
	assert.EqualValues(t, 0, c.Size())

	c.Set("Baby Yoda", "Unknown Name")
	assert.EqualValues(t, 1, c.Size())
	c.Set("Baby Yoda", "Grogu")
	assert.EqualValues(t, 1, c.Size())

	v, ok := c.Get("Baby Yoda")
	require.True(t, ok)
	assert.Equal(t, "Grogu", v)

	c.Set("The Mandalorian", "Din Djarin")
	assert.EqualValues(t, 2, c.Size())
	c.Set("Bounty Hunter", "Boba Fett")
	assert.EqualValues(t, 2, c.Size())

	_, ok = c.Get("The Mandalorian")
	assert.False(t, ok)

	v, ok = c.Delete("Baby Yoda")
	require.True(t, ok)
	assert.Equal(t, "Grogu", v)
	assert.EqualValues(t, 1, c.Size())
	_, ok = c.Get("Baby Yoda")
	assert.False(t, ok)

	checkInvariants(t, c)
}

func TestAdaptiveCache_SmallCacheSized(t *testing.T) {
	t.Parallel()

	c, err := New[string, string](16, WithSizer[string](lru.StringSizer))
	require.NoError(t, err)
	assert.EqualValues(t, 0, c.Size())

	c.Set("K0", "Abcd")
	assert.EqualValues(t, 4, c.Size())
	c.Set("K0", "Abcde")
	assert.EqualValues(t, 5, c.Size())

	// Too large for the whole cache: everything, itself included,
	// drains out.
	c.Set("K0", "012345678901234567")
	assert.EqualValues(t, 0, c.Size())

	c.Set("K0", "0123")
	c.Set("K1", "01234")
	c.Set("K2", "012345")
	v, ok := c.Get("K1")
	require.True(t, ok)
	assert.Equal(t, "01234", v)

	c.Set("K3", "012")
	assert.EqualValues(t, 12, c.Size())

	checkInvariants(t, c)
}

func TestAdaptiveCache_LRUOnly(t *testing.T) {
	t.Parallel()

	c, err := New[string, string](2)
	require.NoError(t, err)

	c.Set("Baby Yoda", "Unknown Name")
	assert.EqualValues(t, 1, c.Size())
	c.Set("The Mandalorian", "Din Djarin")
	assert.EqualValues(t, 2, c.Size())
	c.Set("Bounty Hunter", "Boba Fett")
	assert.EqualValues(t, 2, c.Size())

	_, ok := c.Get("Baby Yoda")
	assert.False(t, ok)
}

func TestAdaptiveCache_Adaptive(t *testing.T) {
	t.Parallel()

	c, err := New[string, string](2)
	require.NoError(t, err)

	c.Set("Baby Yoda", "Unknown Name")
	assert.EqualValues(t, 1, c.Size())

	// Push to the frequent side.
	v, ok := c.Get("Baby Yoda")
	require.True(t, ok)
	assert.Equal(t, "Unknown Name", v)

	c.Set("The Mandalorian", "Din Djarin")
	assert.EqualValues(t, 2, c.Size())
	c.Set("Bounty Hunter", "Boba Fett")
	assert.EqualValues(t, 2, c.Size())

	// A ghost hit adapts p and readmits straight into T2.
	c.Set("The Mandalorian", "Din Djarin")
	assert.EqualValues(t, 2, c.Size())
	_, ok = c.Get("Baby Yoda")
	assert.False(t, ok)

	checkInvariants(t, c)
}

func TestAdaptiveCache_GhostMemory(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](2)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts a to the LRU ghost

	assert.EqualValues(t, 0, c.P())

	// Readmission through the ghost raises p and lands in T2.
	c.Set("a", 4)
	assert.EqualValues(t, 1, c.P())
	assert.EqualValues(t, 1, c.MaxP())
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.EqualValues(t, 4, v)
	assert.EqualValues(t, 1, c.Stats().LFUHits)

	checkInvariants(t, c)
}

func TestAdaptiveCache_SingleKey(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](2)
	require.NoError(t, err)
	replay(c, trace.NewFixed(trace.SameKey(100, "key", 4)))

	assert.EqualValues(t, 99, c.Stats().Hits)
	assert.EqualValues(t, 1, c.Stats().Misses)
}

func TestAdaptiveCache_AllUniqueKey(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](100)
	require.NoError(t, err)
	replay(c, trace.NewFixed(trace.Cycle(100, 100, 2)))

	assert.EqualValues(t, 0, c.Stats().Hits)
	assert.EqualValues(t, 100, c.Stats().Misses)
}

func TestAdaptiveCache_SmallCycle(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](100)
	require.NoError(t, err)
	replay(c, trace.NewFixed(trace.Cycle(100, 20, 8)))

	assert.EqualValues(t, 80, c.Stats().Hits)
	assert.EqualValues(t, 20, c.Stats().Misses)
}

func TestAdaptiveCache_BadCycle(t *testing.T) {
	t.Parallel()

	// Trace goes 0..10, twice, on a cache of 5. Pathological for LRU;
	// ARC claws back a few hits through the ghosts.
	c, err := New[string, int64](5)
	require.NoError(t, err)
	tr := trace.NewFixed(trace.Cycle(20, 10, 4))

	replay(c, tr)
	assert.EqualValues(t, 1, c.Stats().Hits)
	assert.EqualValues(t, 19, c.Stats().Misses)
	assert.EqualValues(t, 14, c.Stats().Evicted)

	tr.Reset()
	replay(c, tr)
	assert.EqualValues(t, 3, c.Stats().Hits)
	assert.EqualValues(t, 37, c.Stats().Misses)
	assert.EqualValues(t, 32, c.Stats().Evicted)

	checkInvariants(t, c)
}

func TestAdaptiveCache_Gaussian(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](100)
	require.NoError(t, err)
	replay(c, trace.NewFixed(trace.Normal(500, 20, 5, 4, 42)))
	assert.Greater(t, c.Stats().Hits, int64(400))
	assert.Less(t, c.Stats().Misses, int64(100))

	c2, err := New[string, int64](100)
	require.NoError(t, err)
	replay(c2, trace.NewFixed(trace.Normal(500, 1000, 100, 4, 42)))
	assert.Greater(t, c2.Stats().Hits, int64(50))
	assert.Less(t, c2.Stats().Misses, int64(450))
}

func TestAdaptiveCache_Poisson(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](100)
	require.NoError(t, err)
	replay(c, trace.NewFixed(trace.Poisson(500, 20, 4, 42)))
	assert.Greater(t, c.Stats().Hits, int64(400))
	assert.Less(t, c.Stats().Misses, int64(100))
}

func TestAdaptiveCache_Zipf(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](100)
	require.NoError(t, err)
	replay(c, trace.NewFixed(trace.Zipfian(2000, 500, 1, 4, 42)))
	assert.Greater(t, c.Stats().Hits, int64(1000))
	assert.Less(t, c.Stats().Misses, int64(1000))
}

func TestAdaptiveCache_Case1(t *testing.T) {
	t.Parallel()

	// Three rounds over a hot set of 20, a full scan of 100, then the
	// hot set again. The interesting sizes are the ones smaller than
	// the scan.
	newTrace := func() *trace.FixedTrace {
		tr := trace.NewFixed(trace.Cycle(100, 20, 4))
		tr.Add(trace.Cycle(100, 20, 4))
		tr.Add(trace.Cycle(100, 20, 4))
		tr.Add(trace.Cycle(100, 100, 4))
		tr.Add(trace.Cycle(100, 20, 4))
		return tr
	}

	for _, tc := range []struct {
		size         int64
		hits, misses int64
	}{
		{100, 400, 100},
		{40, 400, 100},
		{20, 399, 101},
		// At a tenth of the scan the adaptation itself causes
		// collateral damage: p gets bumped just enough to promote the
		// head of the cycle and little else survives.
		{10, 6, 494},
	} {
		tc := tc
		t.Run("size "+strconv.FormatInt(tc.size, 10), func(t *testing.T) {
			t.Parallel()

			c, err := New[string, int64](tc.size)
			require.NoError(t, err)
			replay(c, newTrace())
			assert.EqualValues(t, tc.hits, c.Stats().Hits)
			assert.EqualValues(t, tc.misses, c.Stats().Misses)
			checkInvariants(t, c)
		})
	}
}

func TestAdaptiveCache_CapacityOne(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](1)
	require.NoError(t, err)

	// Each distinct insert evicts the previous resident into the ghost.
	c.Set("a", 1)
	assert.EqualValues(t, 1, c.Size())
	c.Set("b", 2)
	assert.EqualValues(t, 1, c.Size())
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.EqualValues(t, 1, c.Stats().LRUGhostHits)

	// The evicted key is reachable through the adaptation path.
	c.Set("a", 3)
	assert.EqualValues(t, 1, c.P())
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.EqualValues(t, 3, v)

	checkInvariants(t, c)
}

func TestAdaptiveCache_Filter(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](4, WithFilterSize[int64](8))
	require.NoError(t, err)

	// First sighting is swallowed by the filter.
	c.Set("a", 1)
	assert.EqualValues(t, 0, c.Size())
	assert.EqualValues(t, 1, c.Stats().Filtered)
	_, ok := c.Get("a")
	assert.False(t, ok)

	// Second sighting is admitted.
	c.Set("a", 1)
	assert.EqualValues(t, 1, c.Size())
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.EqualValues(t, 1, v)

	checkInvariants(t, c)
}

func TestAdaptiveCache_FilterScanResistance(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](4, WithFilterSize[int64](100))
	require.NoError(t, err)

	// Establish a hot set.
	for i := 0; i < 2; i++ {
		for _, k := range []string{"h1", "h2", "h3", "h4"} {
			c.Set(k, 1)
		}
	}
	assert.EqualValues(t, 4, c.Size())

	// A one-shot scan of 50 cold keys never reaches the resident lists.
	for i := 0; i < 50; i++ {
		c.Set("scan-"+strconv.Itoa(i), 1)
	}
	for _, k := range []string{"h1", "h2", "h3", "h4"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
	assert.EqualValues(t, 54, c.Stats().Filtered)

	checkInvariants(t, c)
}

func TestAdaptiveCache_Update(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](4)
	require.NoError(t, err)

	// Update never admits.
	assert.False(t, c.Update("a", 1))
	assert.EqualValues(t, 0, c.Size())

	c.Set("a", 1)
	require.True(t, c.Update("a", 2))
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.EqualValues(t, 2, v)
	// The T1 entry was promoted by Update.
	assert.EqualValues(t, 1, c.Stats().LFUHits)

	checkInvariants(t, c)
}

func TestAdaptiveCache_UpdateSized(t *testing.T) {
	t.Parallel()

	c, err := New[string, string](8, WithSizer[string](lru.StringSizer))
	require.NoError(t, err)

	c.Set("a", "aa")
	c.Set("b", "bb")
	c.Set("c", "cc")
	assert.EqualValues(t, 6, c.Size())

	// Growing a value over budget evicts someone.
	require.True(t, c.Update("a", "aaaaaa"))
	assert.LessOrEqual(t, c.Size(), int64(8))

	checkInvariants(t, c)
}

func TestAdaptiveCache_Delete(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](2)
	require.NoError(t, err)

	// Fill and churn so the key sits in a ghost list.
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // a demoted to ghost

	// Delete scrubs ghosts too: after it, re-insertion is fresh.
	c.Delete("a")
	_, inGhost := c.b1.Peek("a")
	assert.False(t, inGhost)
	c.Set("a", 1)
	assert.EqualValues(t, 0, c.P(), "fresh insert must not adapt")

	// Deleting a resident returns its value.
	v, ok := c.Delete("a")
	require.True(t, ok)
	assert.EqualValues(t, 1, v)
	_, ok = c.Delete("a")
	assert.False(t, ok)

	checkInvariants(t, c)
}

func TestAdaptiveCache_SetMaxSize(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](10)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		c.Set(strconv.Itoa(i), int64(i))
	}
	assert.EqualValues(t, 10, c.Size())

	// Churn everything out, then readmit through the ghost so p climbs
	// high enough for the shrink to have to clamp it.
	for i := 0; i < 10; i++ {
		c.Set("m"+strconv.Itoa(i), int64(i))
	}
	for _, k := range []string{"0", "2", "4", "6", "8"} {
		c.Set(k, 1)
	}
	assert.Greater(t, c.P(), int64(3))

	c.SetMaxSize(3)
	assert.EqualValues(t, 3, c.MaxSize())
	assert.LessOrEqual(t, c.Size(), int64(3))
	assert.LessOrEqual(t, c.P(), int64(3))

	// Growing is free.
	c.SetMaxSize(20)
	assert.EqualValues(t, 20, c.MaxSize())
	for i := 0; i < 20; i++ {
		c.Set("n"+strconv.Itoa(i), int64(i))
	}
	assert.LessOrEqual(t, c.Size(), int64(20))

	checkInvariants(t, c)
}

func TestAdaptiveCache_ResetAndPurge(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](2, WithFilterSize[int64](2))
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("a", 1)
	_, _ = c.Get("a")
	_, _ = c.Get("miss")

	c.Reset()
	assert.EqualValues(t, 0, c.Size())
	assert.EqualValues(t, 0, c.P())
	// Reset keeps counters.
	assert.EqualValues(t, 1, c.Stats().Hits)

	c.Purge()
	assert.Equal(t, Stats{}, c.Stats())
}

func TestAdaptiveCache_GetMissCounters(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](2)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // a now in the LRU ghost

	_, ok := c.Get("a")
	assert.False(t, ok)
	s := c.Stats()
	assert.EqualValues(t, 1, s.LRUGhostHits)
	assert.EqualValues(t, 0, s.LFUGhostHits)

	// A never-seen key hits no ghost.
	_, _ = c.Get("z")
	s = c.Stats()
	assert.EqualValues(t, 1, s.LRUGhostHits)
	assert.EqualValues(t, 0, s.LFUGhostHits)
	assert.EqualValues(t, 2, s.Misses)
}

func TestAdaptiveCache_StatsAccounting(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](5)
	require.NoError(t, err)
	tr := trace.NewFixed(trace.Cycle(20, 10, 4))
	var gets int64
	for r := tr.Next(); r != nil; r = tr.Next() {
		gets++
		if _, ok := c.Get(r.Key); !ok {
			c.Set(r.Key, r.Value)
		}
	}

	s := c.Stats()
	assert.Equal(t, gets, s.Hits+s.Misses)
	// Every eviction is attributed to exactly one side.
	assert.EqualValues(t, s.Evicted, s.LRUEvicts+s.LFUEvicts)
}

func TestAdaptiveCache_Concurrent(t *testing.T) {
	t.Parallel()

	c, err := New[string, int64](64)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				k := strconv.Itoa((g*31 + i) % 128)
				if _, ok := c.Get(k); !ok {
					c.Set(k, int64(i))
				}
				if i%97 == 0 {
					c.Delete(k)
				}
				if i%193 == 0 {
					c.Update(k, int64(i))
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), int64(64))
	s := c.Stats()
	assert.EqualValues(t, 8*1000, s.Hits+s.Misses)
}
