package dates

import (
	"fmt"
	"time"
)

// Layout is the calendar-day key format (YYYY-MM-DD).
const Layout = "2006-01-02"

const (
	minYear = 1970
	maxYear = 9999
)

// DayKey returns the calendar day of t in t's own location.
func DayKey(t time.Time) string {
	return t.Format(Layout)
}

// Today returns the day key for now in loc. A nil loc means time.Local.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return DayKey(now.In(loc))
}

// ParseDayKey parses a day key into midnight UTC of that calendar day.
// UTC is used so day arithmetic never crosses a DST transition.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.Parse(Layout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", key, err)
	}
	if t.Year() < minYear || t.Year() > maxYear {
		return time.Time{}, fmt.Errorf("day key %q out of range", key)
	}
	return t, nil
}

// ValidDayKey reports whether key is a well-formed, in-range day key.
func ValidDayKey(key string) bool {
	_, err := ParseDayKey(key)
	return err == nil
}

// DaysBetween returns the number of whole calendar days from one key to
// another. It is negative when to is earlier than from.
func DaysBetween(from, to string) (int, error) {
	a, err := ParseDayKey(from)
	if err != nil {
		return 0, err
	}
	b, err := ParseDayKey(to)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// AddDays shifts a day key by n calendar days.
func AddDays(key string, n int) (string, error) {
	t, err := ParseDayKey(key)
	if err != nil {
		return "", err
	}
	return DayKey(t.AddDate(0, 0, n)), nil
}

// StreakLength counts consecutive completed days ending at the reference
// day, or at the day before it when the reference day itself is missing.
// The walk uses calendar arithmetic in the reference's location.
func StreakLength(completed map[string]struct{}, reference time.Time) int {
	if len(completed) == 0 {
		return 0
	}

	cur := time.Date(reference.Year(), reference.Month(), reference.Day(), 12, 0, 0, 0, reference.Location())
	if _, ok := completed[DayKey(cur)]; !ok {
		cur = cur.AddDate(0, 0, -1)
		if _, ok := completed[DayKey(cur)]; !ok {
			return 0
		}
	}

	streak := 0
	for {
		if _, ok := completed[DayKey(cur)]; !ok {
			return streak
		}
		streak++
		cur = cur.AddDate(0, 0, -1)
	}
}

// Set builds a lookup set from day keys.
func Set(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// MaxStreak is the largest StreakLength over several completed-day lists.
func MaxStreak(lists [][]string, reference time.Time) int {
	best := 0
	for _, keys := range lists {
		if n := StreakLength(Set(keys), reference); n > best {
			best = n
		}
	}
	return best
}
