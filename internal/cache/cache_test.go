package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, opts Options) *FileCache {
	t.Helper()
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// seedEntry writes an entry file directly, bypassing Set, so tests can
// control timestamps and sizes.
func seedEntry(t *testing.T, c *FileCache, key string, age time.Duration, ttl time.Duration, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	ok := c.writeEntry(sanitizeKey(key), Entry{
		Key:       key,
		Timestamp: time.Now().Add(-age).UnixMilli(),
		TTL:       ttl.Milliseconds(),
		Size:      len(data),
		Data:      data,
	})
	require.True(t, ok)
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t, Options{})

	t.Run("set then get returns the payload", func(t *testing.T) {
		require.True(t, c.Set("games-alice", map[string]string{"hello": "world"}, 0))

		raw, ok := c.Get("games-alice", 0)
		require.True(t, ok)

		var got map[string]string
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "world", got["hello"])
	})

	t.Run("missing key is absent", func(t *testing.T) {
		_, ok := c.Get("nope", 0)
		assert.False(t, ok)
	})

	t.Run("set replaces the whole entry", func(t *testing.T) {
		require.True(t, c.Set("k", []int{1, 2, 3}, 0))
		require.True(t, c.Set("k", []int{4}, 0))

		raw, ok := c.Get("k", 0)
		require.True(t, ok)
		assert.JSONEq(t, `[4]`, string(raw))
	})
}

func TestCacheExpiry(t *testing.T) {
	c := newTestCache(t, Options{})

	require.True(t, c.Set("short", "v", 100*time.Millisecond))

	raw, ok := c.Get("short", 0)
	require.True(t, ok)
	assert.JSONEq(t, `"v"`, string(raw))

	time.Sleep(150 * time.Millisecond)

	_, ok = c.Get("short", 0)
	assert.False(t, ok)

	// The expired entry must be gone from disk, not just hidden.
	assert.Equal(t, 0, c.Stats().Count)
}

func TestCacheGetTTLOverride(t *testing.T) {
	c := newTestCache(t, Options{})

	seedEntry(t, c, "old", 10*time.Minute, time.Hour, "v")

	_, ok := c.Get("old", time.Minute)
	assert.False(t, ok, "override TTL shorter than age should expire the entry")
}

func TestCacheExists(t *testing.T) {
	c := newTestCache(t, Options{})

	seedEntry(t, c, "stale", time.Hour, time.Minute, "v")
	seedEntry(t, c, "fresh", 0, time.Hour, "v")

	assert.False(t, c.Exists("stale", 0))
	assert.True(t, c.Exists("fresh", 0))
	assert.False(t, c.Exists("missing", 0))

	// Exists must not delete, even for expired entries.
	assert.Equal(t, 2, c.Stats().Count)
}

func TestCacheDelete(t *testing.T) {
	c := newTestCache(t, Options{})

	require.True(t, c.Set("k", "v", 0))
	assert.True(t, c.Delete("k"))

	_, ok := c.Get("k", 0)
	assert.False(t, ok)

	// Deleting an absent key is not an error.
	assert.True(t, c.Delete("k"))
}

func TestCacheClearAndStats(t *testing.T) {
	c := newTestCache(t, Options{})

	for i := 0; i < 3; i++ {
		require.True(t, c.Set(fmt.Sprintf("k%d", i), i, 0))
	}

	st := c.Stats()
	assert.Equal(t, 3, st.Count)
	assert.Greater(t, st.TotalSizeBytes, int64(0))

	assert.Equal(t, 3, c.Clear())
	assert.Equal(t, 0, c.Stats().Count)
}

func TestCacheKeySanitization(t *testing.T) {
	c := newTestCache(t, Options{})

	// "a/b" and "a:b" both sanitize to "a_b" and therefore share an entry.
	require.True(t, c.Set("a/b", "first", 0))
	require.True(t, c.Set("a:b", "second", 0))

	raw, ok := c.Get("a/b", 0)
	require.True(t, ok)
	assert.JSONEq(t, `"second"`, string(raw))
	assert.Equal(t, 1, c.Stats().Count)
}

func TestCacheConcurrentSetsNeverCorrupt(t *testing.T) {
	c := newTestCache(t, Options{})

	values := make([]string, 20)
	for i := range values {
		values[i] = fmt.Sprintf("value-%02d", i)
	}

	var wg sync.WaitGroup
	for _, v := range values {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			// Racing writers may fail soft; that is fine as long as the
			// surviving entry is complete.
			c.Set("contested", v, 0)
		}(v)
	}
	wg.Wait()

	raw, ok := c.Get("contested", 0)
	require.True(t, ok)

	var got string
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Contains(t, values, got)
}

func TestCacheWriteInProgressReadsAbsent(t *testing.T) {
	c := newTestCache(t, Options{})

	require.True(t, c.Set("busy", "v", 0))

	c.mu.Lock()
	c.writing[sanitizeKey("busy")] = struct{}{}
	c.mu.Unlock()

	_, ok := c.Get("busy", 0)
	assert.False(t, ok, "a key mid-write must read as absent")

	assert.False(t, c.Set("busy", "other", 0), "second writer on the same key must fail soft")

	c.mu.Lock()
	delete(c.writing, sanitizeKey("busy"))
	c.mu.Unlock()

	_, ok = c.Get("busy", 0)
	assert.True(t, ok)
}

func TestCacheSweep(t *testing.T) {
	t.Run("removes corrupt entries", func(t *testing.T) {
		c := newTestCache(t, Options{})

		require.NoError(t, os.WriteFile(filepath.Join(c.dir, "junk.json"), []byte("{not json"), 0o644))
		seedEntry(t, c, "good", 0, time.Hour, "v")

		res := c.Sweep()
		assert.Equal(t, 1, res.Corrupt)
		assert.Equal(t, 1, c.Stats().Count)
	})

	t.Run("removes expired and over-age entries", func(t *testing.T) {
		c := newTestCache(t, Options{MaxEntryAge: 24 * time.Hour})

		seedEntry(t, c, "expired", 2*time.Hour, time.Hour, "v")
		// Own TTL is huge, but the absolute max age wins.
		seedEntry(t, c, "ancient", 48*time.Hour, 1000*time.Hour, "v")
		seedEntry(t, c, "fresh", 0, time.Hour, "v")

		res := c.Sweep()
		assert.Equal(t, 2, res.Expired)

		assert.False(t, c.Exists("expired", 0))
		assert.False(t, c.Exists("ancient", 0))
		assert.True(t, c.Exists("fresh", 0))
	})

	t.Run("evicts oldest first down to the headroom target", func(t *testing.T) {
		payload := make([]byte, 300)
		for i := range payload {
			payload[i] = 'x'
		}

		c := newTestCache(t, Options{MaxTotalBytes: 900})

		// Five entries of ~400 bytes each, oldest to newest.
		for i := 0; i < 5; i++ {
			seedEntry(t, c, fmt.Sprintf("entry-%d", i), time.Duration(5-i)*time.Minute, time.Hour, string(payload))
		}
		require.Greater(t, c.Stats().TotalSizeBytes, int64(900))

		res := c.Sweep()
		assert.Greater(t, res.Evicted, 0)
		assert.LessOrEqual(t, c.Stats().TotalSizeBytes, int64(900)*90/100)

		// The newest entry survives, the oldest goes first.
		assert.True(t, c.Exists("entry-4", 0))
		assert.False(t, c.Exists("entry-0", 0))
	})

	t.Run("cleans stale temp files", func(t *testing.T) {
		c := newTestCache(t, Options{})

		tmp := filepath.Join(c.dir, "half-written.json.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0o644))

		c.Sweep()

		_, err := os.Stat(tmp)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestCacheEvictionScheduledAfterSet(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = 'x'
	}

	c := newTestCache(t, Options{MaxTotalBytes: 1000})

	for i := 0; i < 5; i++ {
		require.True(t, c.Set(fmt.Sprintf("big-%d", i), string(payload), 0))
	}

	// The pass runs on the background worker; wait for it to land.
	assert.Eventually(t, func() bool {
		return c.Stats().TotalSizeBytes <= int64(1000)*90/100
	}, 2*time.Second, 10*time.Millisecond)
}
