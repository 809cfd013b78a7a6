package calendar

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	logx "attendbot/pkg/logx"
)

const DefaultHolidayTTL = 24 * time.Hour

// HolidayCache holds one calendar year of public holidays.
//
// A query for a year other than the cached one, or after the TTL, refreshes
// synchronously. Concurrent refreshes for the same year are coalesced. When a
// refresh fails the previous entries stay in place and the error is returned
// to the caller.
type HolidayCache struct {
	provider Provider
	ttl      time.Duration
	now      func() time.Time
	log      logx.Logger

	sf singleflight.Group

	mu        sync.Mutex
	year      int
	byDate    map[Date]string
	fetchedAt time.Time
}

func NewHolidayCache(p Provider, ttl time.Duration, log logx.Logger) *HolidayCache {
	if ttl <= 0 {
		ttl = DefaultHolidayTTL
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &HolidayCache{provider: p, ttl: ttl, now: time.Now, log: log}
}

// Lookup reports whether d is a public holiday and returns its label.
func (c *HolidayCache) Lookup(ctx context.Context, d Date) (string, bool, error) {
	if label, ok, fresh := c.cached(d); fresh {
		return label, ok, nil
	}

	// Answer from the fetched year itself: by now the shared cache may hold
	// another year or have aged out.
	v, err, shared := c.sf.Do(strconv.Itoa(d.Year), func() (any, error) {
		return c.refresh(ctx, d.Year)
	})
	if err != nil {
		return "", false, err
	}
	if shared {
		c.log.Debug("holiday refresh shared", logx.Int("year", d.Year))
	}
	label, ok := v.(map[Date]string)[d]
	return label, ok, nil
}

func (c *HolidayCache) cached(d Date) (label string, ok bool, fresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byDate == nil || c.year != d.Year || c.now().Sub(c.fetchedAt) >= c.ttl {
		return "", false, false
	}
	label, ok = c.byDate[d]
	return label, ok, true
}

// refresh fetches year and installs it. The returned map is never mutated.
func (c *HolidayCache) refresh(ctx context.Context, year int) (map[Date]string, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("holiday provider not configured")
	}
	start := time.Now()
	hs, err := c.provider.FetchEvents(ctx, NewDate(year, time.January, 1), NewDate(year, time.December, 31))
	if err != nil {
		c.mu.Lock()
		kept := len(c.byDate)
		c.mu.Unlock()
		c.log.Warn("holiday fetch failed; keeping previous cache", logx.Int("year", year), logx.Int("kept", kept), logx.Err(err))
		return nil, fmt.Errorf("fetch holidays %d: %w", year, err)
	}

	m := make(map[Date]string, len(hs))
	for _, h := range hs {
		if h.Date.Year != year {
			continue
		}
		if prev, ok := m[h.Date]; ok && prev != "" {
			m[h.Date] = prev + " / " + h.Label
			continue
		}
		m[h.Date] = h.Label
	}

	c.mu.Lock()
	c.year = year
	c.byDate = m
	c.fetchedAt = c.now()
	c.mu.Unlock()

	c.log.Info("holidays refreshed", logx.Int("year", year), logx.Int("count", len(m)), logx.Duration("took", time.Since(start)))
	return m, nil
}

// Invalidate forces the next Lookup to refresh.
func (c *HolidayCache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// Stats returns the cached year, entry count and fetch time.
func (c *HolidayCache) Stats() (year, count int, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.year, len(c.byDate), c.fetchedAt
}
