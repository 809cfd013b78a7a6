package calendar

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "attendbot/pkg/logx"
)

func TestHolidayCacheRefreshesAfterTTL(t *testing.T) {
	clock := &fakeNow{t: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	p := &fakeProvider{holidays: []Holiday{{Date: mustDate("2025-01-01"), Label: "New Year"}}}
	c := NewHolidayCache(p, time.Hour, logx.Nop())
	c.now = clock.Now
	ctx := context.Background()

	label, ok, err := c.Lookup(ctx, mustDate("2025-01-01"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "New Year", label)

	_, _, err = c.Lookup(ctx, mustDate("2025-05-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.callCount())

	clock.Advance(time.Hour)
	_, _, err = c.Lookup(ctx, mustDate("2025-01-02"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.callCount())
}

func TestHolidayLookupAnswersFromFetchedYear(t *testing.T) {
	p := &fakeProvider{holidays: []Holiday{{Date: mustDate("2025-12-25"), Label: "Christmas"}}}
	c := NewHolidayCache(p, time.Hour, logx.Nop())
	// Every clock read is two hours later, so the cache is already stale
	// when the lookup that triggered the refresh reads its answer.
	var mu sync.Mutex
	now := time.Date(2025, 12, 25, 7, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(2 * time.Hour)
		return now
	}

	label, ok, err := c.Lookup(context.Background(), mustDate("2025-12-25"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Christmas", label)

	_, ok, err = c.Lookup(context.Background(), mustDate("2025-12-26"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHolidayCacheKeepsEntriesOnFailure(t *testing.T) {
	clock := &fakeNow{t: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	p := &fakeProvider{holidays: []Holiday{{Date: mustDate("2025-01-01"), Label: "New Year"}}}
	c := NewHolidayCache(p, time.Hour, logx.Nop())
	c.now = clock.Now
	ctx := context.Background()

	_, _, err := c.Lookup(ctx, mustDate("2025-01-01"))
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	p.setErr(errBoom)
	_, _, err = c.Lookup(ctx, mustDate("2025-01-01"))
	require.ErrorIs(t, err, errBoom)

	year, count, _ := c.Stats()
	assert.Equal(t, 2025, year)
	assert.Equal(t, 1, count)

	p.setErr(nil)
	label, ok, err := c.Lookup(ctx, mustDate("2025-01-01"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "New Year", label)
}

func TestHolidayCacheYearSwitch(t *testing.T) {
	p := &fakeProvider{holidays: []Holiday{
		{Date: mustDate("2024-12-25"), Label: "Christmas"},
		{Date: mustDate("2025-01-01"), Label: "New Year"},
	}}
	c := NewHolidayCache(p, time.Hour, logx.Nop())
	ctx := context.Background()

	_, ok, err := c.Lookup(ctx, mustDate("2024-12-25"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = c.Lookup(ctx, mustDate("2025-01-01"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, p.callCount())
}

func TestHolidayCacheMergesSameDayLabels(t *testing.T) {
	p := &fakeProvider{holidays: []Holiday{
		{Date: mustDate("2025-03-31"), Label: "Eid al-Fitr"},
		{Date: mustDate("2025-03-31"), Label: "Bank Holiday"},
	}}
	c := NewHolidayCache(p, time.Hour, logx.Nop())

	label, ok, err := c.Lookup(context.Background(), mustDate("2025-03-31"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Eid al-Fitr / Bank Holiday", label)
}

func TestHolidayCacheConcurrentLookups(t *testing.T) {
	p := &fakeProvider{holidays: []Holiday{{Date: mustDate("2025-01-01"), Label: "New Year"}}}
	c := NewHolidayCache(p, time.Hour, logx.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := c.Lookup(context.Background(), mustDate("2025-01-01"))
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, p.callCount(), 16)
	assert.GreaterOrEqual(t, p.callCount(), 1)
}

func TestHolidayCacheNoProvider(t *testing.T) {
	c := NewHolidayCache(nil, time.Hour, logx.Nop())
	_, _, err := c.Lookup(context.Background(), mustDate("2025-01-01"))
	assert.Error(t, err)
}
