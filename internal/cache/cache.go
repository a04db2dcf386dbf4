// Package cache implements a file-backed JSON cache with TTL and size-based
// eviction.
//
// Each entry is one JSON file under the cache directory, named after the
// sanitized key. Writes go through a temp file and an atomic rename, guarded
// by an in-process per-key write state; readers treat a key that is mid-write
// as absent rather than blocking. The write exclusion is a single-process
// guarantee only; two processes sharing the directory can still race, which
// is tolerated because rename is atomic and stale temp files are cleaned by
// the next sweep.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Defaults applied by New when the corresponding Options field is zero.
const (
	DefaultMaxTotalBytes = 64 << 20
	DefaultTTL           = 24 * time.Hour
	DefaultMaxEntryAge   = 7 * 24 * time.Hour
)

// evictThresholdPct: a successful Set schedules an eviction pass once total
// size crosses this share of the max. evictTargetPct: the sweep deletes
// oldest-first until total size is back under this share, leaving headroom so
// consecutive writes don't thrash the sweeper.
const (
	evictThresholdPct = 80
	evictTargetPct    = 90
)

// Options configures a FileCache. Zero values fall back to defaults.
type Options struct {
	Dir           string
	MaxTotalBytes int64
	TTL           time.Duration // default per-entry TTL
	MaxEntryAge   time.Duration // absolute cap, regardless of per-entry TTL
}

// Entry is the on-disk envelope around a cached payload. Timestamp and TTL
// are milliseconds, Size is the payload size in bytes. The payload is
// immutable once written; updates replace the whole entry.
type Entry struct {
	Key       string          `json:"key"`
	Timestamp int64           `json:"timestamp"`
	TTL       int64           `json:"ttl"`
	Size      int             `json:"size"`
	Data      json.RawMessage `json:"data"`
}

// Stats summarizes the cache directory.
type Stats struct {
	Count          int   `json:"count"`
	TotalSizeBytes int64 `json:"totalSizeBytes"`
}

// SweepResult counts what a sweep pass removed.
type SweepResult struct {
	Corrupt int
	Expired int
	Evicted int
}

// FileCache is a TTL/size-bounded cache over a directory, safe for concurrent
// use within a single process. All operations fail soft: callers check the
// returned bool, they never receive an error.
type FileCache struct {
	dir      string
	maxBytes int64
	ttl      time.Duration
	maxAge   time.Duration

	mu      sync.Mutex
	writing map[string]struct{}
	closed  bool

	evictCh chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates the cache directory if needed and starts the eviction worker.
func New(opts Options) (*FileCache, error) {
	if opts.MaxTotalBytes <= 0 {
		opts.MaxTotalBytes = DefaultMaxTotalBytes
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntryAge <= 0 {
		opts.MaxEntryAge = DefaultMaxEntryAge
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	c := &FileCache{
		dir:      opts.Dir,
		maxBytes: opts.MaxTotalBytes,
		ttl:      opts.TTL,
		maxAge:   opts.MaxEntryAge,
		writing:  make(map[string]struct{}),
		evictCh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	c.wg.Add(1)
	go c.evictLoop()

	return c, nil
}

// Close stops the eviction worker and rejects further writes. Safe to call
// more than once.
func (c *FileCache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()
}

// Set serializes v and writes it under key with the given TTL (ttl <= 0 means
// the cache default). The entry becomes visible atomically; on any failure
// the temp file is removed and false is returned.
//
// A Set racing another Set on the same key fails soft: per key there is at
// most one writer at a time.
func (c *FileCache) Set(key string, v any, ttl time.Duration) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		return false
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	k := sanitizeKey(key)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if _, busy := c.writing[k]; busy {
		c.mu.Unlock()
		return false
	}
	c.writing[k] = struct{}{}
	c.mu.Unlock()

	ok := c.writeEntry(k, Entry{
		Key:       key,
		Timestamp: time.Now().UnixMilli(),
		TTL:       ttl.Milliseconds(),
		Size:      len(payload),
		Data:      payload,
	})

	c.mu.Lock()
	delete(c.writing, k)
	c.mu.Unlock()

	if ok {
		c.maybeScheduleEviction()
	}
	return ok
}

func (c *FileCache) writeEntry(sanitized string, e Entry) bool {
	b, err := json.Marshal(e)
	if err != nil {
		return false
	}

	final := c.entryPath(sanitized)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		_ = os.Remove(tmp)
		return false
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return false
	}
	return true
}

// Get returns the cached payload for key, or absent. A key currently being
// written reads as absent so callers retry later instead of seeing a partial
// entry. An expired or unparsable entry is deleted and reads as absent.
//
// ttl > 0 overrides the TTL stored with the entry when checking expiry.
func (c *FileCache) Get(key string, ttl time.Duration) (json.RawMessage, bool) {
	k := sanitizeKey(key)

	c.mu.Lock()
	_, busy := c.writing[k]
	c.mu.Unlock()
	if busy {
		return nil, false
	}

	path := c.entryPath(k)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		_ = os.Remove(path)
		return nil, false
	}

	if c.expired(e, ttl, time.Now()) {
		_ = os.Remove(path)
		return nil, false
	}
	return e.Data, true
}

// Exists reports whether a live (non-expired) entry is present for key,
// without the deletion side effect Get has on expired entries.
func (c *FileCache) Exists(key string, ttl time.Duration) bool {
	k := sanitizeKey(key)

	c.mu.Lock()
	_, busy := c.writing[k]
	c.mu.Unlock()
	if busy {
		return false
	}

	raw, err := os.ReadFile(c.entryPath(k))
	if err != nil {
		return false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return false
	}
	return !c.expired(e, ttl, time.Now())
}

// Delete removes the entry for key. Idempotent: an absent entry is not an
// error.
func (c *FileCache) Delete(key string) bool {
	err := os.Remove(c.entryPath(sanitizeKey(key)))
	return err == nil || os.IsNotExist(err)
}

// Clear removes every entry unconditionally and returns how many were
// removed. Leftover temp files are cleaned as a side effect.
func (c *FileCache) Clear() int {
	names, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}

	removed := 0
	for _, d := range names {
		if d.IsDir() {
			continue
		}
		name := d.Name()
		if strings.HasSuffix(name, ".tmp") {
			_ = os.Remove(filepath.Join(c.dir, name))
			continue
		}
		if strings.HasSuffix(name, entryExt) {
			if os.Remove(filepath.Join(c.dir, name)) == nil {
				removed++
			}
		}
	}
	return removed
}

// Stats walks the cache directory and reports entry count and total size.
func (c *FileCache) Stats() Stats {
	names, err := os.ReadDir(c.dir)
	if err != nil {
		return Stats{}
	}

	var st Stats
	for _, d := range names {
		if d.IsDir() || !strings.HasSuffix(d.Name(), entryExt) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		st.Count++
		st.TotalSizeBytes += info.Size()
	}
	return st
}

// Sweep performs one full maintenance pass:
//
//  1. entries that fail to parse are deleted (corrupt),
//  2. entries older than their own TTL or the absolute max age are deleted
//     (expired),
//  3. if total size still exceeds the max, oldest entries are deleted until
//     it drops under the eviction target (evicted).
//
// Stale temp files from interrupted writes are removed as well.
func (c *FileCache) Sweep() SweepResult {
	var res SweepResult

	names, err := os.ReadDir(c.dir)
	if err != nil {
		return res
	}

	type survivor struct {
		path      string
		timestamp int64
		size      int64
	}

	now := time.Now()
	var survivors []survivor
	var total int64

	for _, d := range names {
		if d.IsDir() {
			continue
		}
		name := d.Name()
		path := filepath.Join(c.dir, name)

		if strings.HasSuffix(name, ".tmp") {
			_ = os.Remove(path)
			continue
		}
		if !strings.HasSuffix(name, entryExt) {
			continue
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			_ = os.Remove(path)
			res.Corrupt++
			continue
		}
		if c.expired(e, 0, now) {
			_ = os.Remove(path)
			res.Expired++
			continue
		}

		survivors = append(survivors, survivor{path: path, timestamp: e.Timestamp, size: int64(len(raw))})
		total += int64(len(raw))
	}

	if total <= c.maxBytes {
		return res
	}

	// Oldest first, down to the headroom target.
	sort.Slice(survivors, func(i, j int) bool {
		return survivors[i].timestamp < survivors[j].timestamp
	})
	target := c.maxBytes * evictTargetPct / 100
	for _, s := range survivors {
		if total <= target {
			break
		}
		if os.Remove(s.path) == nil {
			total -= s.size
			res.Evicted++
		}
	}
	return res
}

// expired applies the TTL override (when > 0), the entry's own TTL, and the
// absolute max age.
func (c *FileCache) expired(e Entry, override time.Duration, now time.Time) bool {
	age := now.Sub(time.UnixMilli(e.Timestamp))

	effective := override
	if effective <= 0 {
		effective = time.Duration(e.TTL) * time.Millisecond
	}
	if effective > 0 && age > effective {
		return true
	}
	return c.maxAge > 0 && age > c.maxAge
}

// maybeScheduleEviction enqueues a fire-and-forget eviction pass once total
// size crosses the threshold. The channel has capacity one, so a pass that is
// already pending absorbs further requests.
func (c *FileCache) maybeScheduleEviction() {
	st := c.Stats()
	if st.TotalSizeBytes <= c.maxBytes*evictThresholdPct/100 {
		return
	}
	select {
	case c.evictCh <- struct{}{}:
	default:
	}
}

func (c *FileCache) evictLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.evictCh:
			c.Sweep()
		}
	}
}

const entryExt = ".json"

func (c *FileCache) entryPath(sanitized string) string {
	return filepath.Join(c.dir, sanitized+entryExt)
}

// sanitizeKey maps a key to a filename-safe form: every character outside
// [A-Za-z0-9_-] becomes '_'. Two keys that sanitize to the same string share
// an entry; that collision is an accepted limitation of the key space.
func sanitizeKey(key string) string {
	out := []byte(key)
	for i := 0; i < len(out); i++ {
		b := out[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '_', b == '-':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
