package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, key string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(Layout, key, time.Local)
	require.NoError(t, err)
	return d.Add(9 * time.Hour)
}

func TestDayKey_SameCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	morning := time.Date(2024, 3, 10, 0, 5, 0, 0, loc)
	night := time.Date(2024, 3, 10, 23, 59, 59, 0, loc)

	assert.Equal(t, "2024-03-10", DayKey(morning))
	assert.Equal(t, DayKey(morning), DayKey(night))
}

func TestToday_UsesLocation(t *testing.T) {
	now := time.Date(2024, 3, 10, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-11", Today(now, time.FixedZone("UTC+3", 3*3600)))
	assert.Equal(t, "2024-03-10", Today(now, time.UTC))
}

func TestParseDayKey(t *testing.T) {
	_, err := ParseDayKey("2024-02-30")
	assert.Error(t, err)
	_, err = ParseDayKey("24-01-01")
	assert.Error(t, err)
	_, err = ParseDayKey("0001-01-01")
	assert.Error(t, err)

	d, err := ParseDayKey("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, 29, d.Day())
	assert.True(t, ValidDayKey("2024-01-01"))
	assert.False(t, ValidDayKey(""))
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		from, to string
		want     int
	}{
		{"2024-01-01", "2024-01-01", 0},
		{"2024-01-01", "2024-01-02", 1},
		{"2024-01-01", "2024-01-03", 2},
		{"2024-01-03", "2024-01-01", -2},
		{"2024-02-28", "2024-03-01", 2},
		{"2023-12-31", "2024-01-01", 1},
	}
	for _, tc := range cases {
		got, err := DaysBetween(tc.from, tc.to)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s -> %s", tc.from, tc.to)
	}

	_, err := DaysBetween("bad", "2024-01-01")
	assert.Error(t, err)
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2024-03-01", -1)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got)
}

func TestStreakLength(t *testing.T) {
	set := Set([]string{"2024-01-01", "2024-01-02", "2024-01-03"})

	assert.Equal(t, 3, StreakLength(set, day(t, "2024-01-03")))
	assert.Equal(t, 3, StreakLength(set, day(t, "2024-01-04")), "anchors at yesterday")
	assert.Equal(t, 0, StreakLength(set, day(t, "2024-01-05")), "two-day gap")
	assert.Equal(t, 2, StreakLength(set, day(t, "2024-01-02")))
}

func TestStreakLength_PrefersTodayAndStopsAtGap(t *testing.T) {
	set := Set([]string{"2024-01-01", "2024-01-03", "2024-01-04"})
	assert.Equal(t, 2, StreakLength(set, day(t, "2024-01-04")))
	assert.Equal(t, 0, StreakLength(nil, day(t, "2024-01-04")))
}

func TestStreakLength_Idempotent(t *testing.T) {
	set := Set([]string{"2024-05-30", "2024-05-31", "2024-06-01"})
	ref := day(t, "2024-06-01")
	first := StreakLength(set, ref)
	second := StreakLength(set, ref)
	assert.Equal(t, 3, first)
	assert.Equal(t, first, second)
	assert.Len(t, set, 3)
}

func TestMaxStreakPicksLongest(t *testing.T) {
	ref := time.Date(2024, 1, 3, 20, 0, 0, 0, time.UTC)
	got := MaxStreak([][]string{
		{"2024-01-03"},
		{"2024-01-01", "2024-01-02"},
		{"2023-12-30", "2023-12-31", "2024-01-01"},
	}, ref)
	assert.Equal(t, 2, got)
	assert.Equal(t, 0, MaxStreak(nil, ref))
}
