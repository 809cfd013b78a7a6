package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-01-15 ")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, time.January, 15), d)
	assert.Equal(t, "2025-01-15", d.String())

	_, err = ParseDate("15/01/2025")
	assert.Error(t, err)
}

func TestDateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	// 2025-01-14 20:00 UTC is already the 15th at UTC+7.
	ts := time.Date(2025, time.January, 14, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-14", DateOf(ts).String())
	assert.Equal(t, "2025-01-15", DateOf(ts.In(loc)).String())
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.December, 31)
	assert.Equal(t, "2025-01-01", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", NewDate(2024, time.February, 30).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-1)))
	assert.Equal(t, 0, d.Compare(NewDate(2024, time.December, 31)))
}

func TestIsWeekend(t *testing.T) {
	assert.True(t, mustDate("2025-01-18").IsWeekend())  // Saturday
	assert.True(t, mustDate("2025-01-19").IsWeekend())  // Sunday
	assert.False(t, mustDate("2025-01-20").IsWeekend()) // Monday
}

func TestLeaveJSON(t *testing.T) {
	raw := `{"startDate":"2025-01-15","endDate":"2025-01-16","type":"annual","reason":"trip"}`
	var l Leave
	require.NoError(t, json.Unmarshal([]byte(raw), &l))
	assert.Equal(t, mustDate("2025-01-15"), l.Start)
	assert.Equal(t, mustDate("2025-01-16"), l.End)
	require.NoError(t, l.Validate())

	out, err := json.Marshal(l)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestLeaveValidate(t *testing.T) {
	err := Leave{Start: mustDate("2025-01-16"), End: mustDate("2025-01-15")}.Validate()
	assert.ErrorIs(t, err, ErrInvalidLeave)

	err = Leave{Start: mustDate("2025-01-16")}.Validate()
	assert.ErrorIs(t, err, ErrInvalidLeave)

	assert.NoError(t, Leave{Start: mustDate("2025-01-16"), End: mustDate("2025-01-16")}.Validate())
}

func TestLeaveContainsIsInclusive(t *testing.T) {
	l := Leave{Start: mustDate("2025-01-15"), End: mustDate("2025-01-16")}
	assert.False(t, l.Contains(mustDate("2025-01-14")))
	assert.True(t, l.Contains(mustDate("2025-01-15")))
	assert.True(t, l.Contains(mustDate("2025-01-16")))
	assert.False(t, l.Contains(mustDate("2025-01-17")))
	assert.Equal(t, "2025-01-15..2025-01-16", l.String())
}
