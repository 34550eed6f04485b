package engine

import (
	"habitforge/internal/dates"
	"habitforge/internal/model"
)

type LoginResult struct {
	Progress *model.UserProgress
	DayKey   string
	// AlreadyProcessed means today's check had run before; at most the
	// profile was refreshed.
	AlreadyProcessed bool
	FirstLogin       bool
	ElapsedDays      int
	HeartLost        bool
	FreezeConsumed   bool
	PenaltyApplied   bool
	ProfileUpdated   bool
	// Changed reports whether the record needs to be written.
	Changed bool
}

// ProcessDailyLogin runs the once-per-day vitality check for todayKey.
// Calling it again on the same day changes nothing except filling profile
// fields that are still missing. profile may be nil.
func ProcessDailyLogin(user *model.UserProgress, todayKey string, profile *model.Profile, rules Rules) (*LoginResult, []Event, error) {
	rules = rules.withDefaults()
	if !dates.ValidDayKey(todayKey) {
		return nil, nil, invalidf("day key %q is not a calendar day", todayKey)
	}

	u := user.Clone()
	res := &LoginResult{Progress: u, DayKey: todayKey}

	if u.LastLoginDayKey != nil && *u.LastLoginDayKey == todayKey {
		res.AlreadyProcessed = true
		if !u.Profile.Complete() {
			res.ProfileUpdated = refreshProfile(&u.Profile, profile)
		}
		res.Changed = res.ProfileUpdated
		return res, nil, nil
	}

	var events []Event
	if u.LastLoginDayKey == nil {
		res.FirstLogin = true
	} else if elapsed, err := dates.DaysBetween(*u.LastLoginDayKey, todayKey); err == nil {
		// A stored key that no longer parses, or a clock running backwards,
		// is treated as no missed days.
		res.ElapsedDays = elapsed
	}

	if res.ElapsedDays > 1 {
		missed := res.ElapsedDays - 1
		if u.ConsumeItem(rules.StreakFreezeItem) {
			res.FreezeConsumed = true
			events = append(events, &StreakFreezeConsumed{
				EventMeta:  EventMeta{UserID: u.UserID},
				Item:       rules.StreakFreezeItem,
				Remaining:  countItem(u.Inventory, rules.StreakFreezeItem),
				MissedDays: missed,
			})
		} else {
			before := u.Hearts
			u.Hearts = max(0, u.Hearts-1)
			res.HeartLost = true
			events = append(events, &HeartLost{
				EventMeta:    EventMeta{UserID: u.UserID},
				HeartsBefore: before,
				HeartsAfter:  u.Hearts,
				MissedDays:   missed,
				LevelAfter:   u.Level,
			})
		}
	}

	if u.Hearts <= 0 {
		u.Level = max(model.DefaultLevel, u.Level-1)
		u.Hearts = rules.MaxHearts
		res.PenaltyApplied = true
		for _, e := range events {
			if hl, ok := e.(*HeartLost); ok {
				hl.Penalty = true
				hl.LevelAfter = u.Level
			}
		}
	}

	u.LastLoginDayKey = &todayKey
	res.ProfileUpdated = refreshProfile(&u.Profile, profile)
	res.Changed = true
	return res, events, nil
}

// refreshProfile copies non-empty fields from src and reports whether
// anything changed.
func refreshProfile(dst *model.Profile, src *model.Profile) bool {
	if src == nil {
		return false
	}
	changed := false
	set := func(field *string, v string) {
		if v != "" && *field != v {
			*field = v
			changed = true
		}
	}
	set(&dst.DisplayName, src.DisplayName)
	set(&dst.Email, src.Email)
	set(&dst.PhotoURL, src.PhotoURL)
	return changed
}

func countItem(inv []string, item string) int {
	n := 0
	for _, v := range inv {
		if v == item {
			n++
		}
	}
	return n
}
