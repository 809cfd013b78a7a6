package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	logx "attendbot/pkg/logx"
)

const DefaultLeaveTTL = time.Hour

// LeaveCache is an in-memory view of the leave store.
//
// Reads refresh synchronously once the TTL has passed. Add and Remove write
// through to the store immediately and reset the cache timestamp.
type LeaveCache struct {
	store LeaveStore
	ttl   time.Duration
	now   func() time.Time
	log   logx.Logger

	sf singleflight.Group
	// wmu serializes read-modify-write cycles against the store.
	wmu sync.Mutex

	mu       sync.Mutex
	leaves   []Leave
	loadedAt time.Time
	loaded   bool
}

func NewLeaveCache(store LeaveStore, ttl time.Duration, log logx.Logger) *LeaveCache {
	if ttl <= 0 {
		ttl = DefaultLeaveTTL
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LeaveCache{store: store, ttl: ttl, now: time.Now, log: log}
}

// Find returns the first leave covering d.
//
// A store read failure is logged and treated as "no leaves known" for this
// call; the next call retries the read.
func (c *LeaveCache) Find(ctx context.Context, d Date) (Leave, bool) {
	leaves, err := c.current(ctx)
	if err != nil {
		c.log.Warn("leave list unavailable; assuming no leave", logx.String("date", d.String()), logx.Err(err))
		return Leave{}, false
	}
	for _, l := range leaves {
		if l.Contains(d) {
			return l, true
		}
	}
	return Leave{}, false
}

// List returns the cached leave list sorted by start date.
func (c *LeaveCache) List(ctx context.Context) ([]Leave, error) {
	leaves, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	out := append([]Leave(nil), leaves...)
	sortLeaves(out)
	return out, nil
}

// Add appends l to the store. Overlapping ranges are allowed.
func (c *LeaveCache) Add(ctx context.Context, l Leave) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if c.store == nil {
		return fmt.Errorf("leave store not configured")
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()

	leaves, err := c.store.LoadLeaves(ctx)
	if err != nil {
		return fmt.Errorf("load leaves: %w", err)
	}
	leaves = append(leaves, l)
	if err := c.store.SaveLeaves(ctx, leaves); err != nil {
		return fmt.Errorf("save leaves: %w", err)
	}
	c.set(leaves)
	c.log.Info("leave added", logx.String("leave", l.String()), logx.Int("total", len(leaves)))
	return nil
}

// Remove deletes every leave with exactly this start and end date.
func (c *LeaveCache) Remove(ctx context.Context, start, end Date) (bool, error) {
	if c.store == nil {
		return false, fmt.Errorf("leave store not configured")
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()

	leaves, err := c.store.LoadLeaves(ctx)
	if err != nil {
		return false, fmt.Errorf("load leaves: %w", err)
	}
	kept := leaves[:0:0]
	for _, l := range leaves {
		if l.Start == start && l.End == end {
			continue
		}
		kept = append(kept, l)
	}
	if len(kept) == len(leaves) {
		return false, nil
	}
	if err := c.store.SaveLeaves(ctx, kept); err != nil {
		return false, fmt.Errorf("save leaves: %w", err)
	}
	c.set(kept)
	c.log.Info("leave removed", logx.String("start", start.String()), logx.String("end", end.String()), logx.Int("total", len(kept)))
	return true, nil
}

// Invalidate forces the next read to go to the store. The file watcher calls
// it when the leave file is edited by hand.
func (c *LeaveCache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}

func (c *LeaveCache) current(ctx context.Context) ([]Leave, error) {
	c.mu.Lock()
	if c.loaded && c.now().Sub(c.loadedAt) < c.ttl {
		leaves := c.leaves
		c.mu.Unlock()
		return leaves, nil
	}
	c.mu.Unlock()

	if c.store == nil {
		return nil, nil
	}
	v, err, _ := c.sf.Do("leaves", func() (any, error) {
		leaves, err := c.store.LoadLeaves(ctx)
		if err != nil {
			return nil, err
		}
		c.set(leaves)
		c.log.Debug("leaves loaded", logx.Int("count", len(leaves)))
		return leaves, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Leave), nil
}

func (c *LeaveCache) set(leaves []Leave) {
	c.mu.Lock()
	c.leaves = leaves
	c.loadedAt = c.now()
	c.loaded = true
	c.mu.Unlock()
}

func sortLeaves(ls []Leave) {
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].Start != ls[j].Start {
			return ls[i].Start.Before(ls[j].Start)
		}
		return ls[i].End.Before(ls[j].End)
	})
}
