package engine

import (
	"habitforge/internal/dates"
	"habitforge/internal/model"
)

type ToggleResult struct {
	Progress *model.UserProgress
	Habit    *model.Habit
	DayKey   string
	// WasCompleted is the day's state before the toggle; true means this
	// toggle un-marked it.
	WasCompleted bool
	Delta        int
	LevelBefore  int
	LevelsGained int
	LeveledUp    bool
	// GoalReached is set when this completion brought a finite habit to its
	// target. Deciding to archive or continue is left to the caller.
	GoalReached bool
}

// ApplyToggle flips dayKey in the habit's completed set and moves the
// user's score and XP by one completion's worth. Days before the habit was
// created are rejected. Inputs are not modified.
func ApplyToggle(user *model.UserProgress, habit *model.Habit, dayKey string, rules Rules) (*ToggleResult, []Event, error) {
	rules = rules.withDefaults()
	if !dates.ValidDayKey(dayKey) {
		return nil, nil, invalidf("day key %q is not a calendar day", dayKey)
	}
	if habit.UserID != user.UserID {
		return nil, nil, invalidf("habit %s does not belong to user %s", habit.ID, user.UserID)
	}
	if !habit.IsActive() {
		return nil, nil, invalidf("habit %s is %s", habit.ID, habit.Status)
	}
	if habit.CreatedOnDayKey != nil && dayKey < *habit.CreatedOnDayKey {
		return nil, nil, invalidf("day %s is before habit %s was created (%s)", dayKey, habit.ID, *habit.CreatedOnDayKey)
	}

	u := user.Clone()
	h := habit.Clone()
	res := &ToggleResult{
		Progress:     u,
		Habit:        h,
		DayKey:       dayKey,
		WasCompleted: h.HasDay(dayKey),
		LevelBefore:  u.Level,
	}

	if res.WasCompleted {
		h.RemoveDay(dayKey)
		res.Delta = -rules.XPPerCompletion
	} else {
		h.AddDay(dayKey)
		res.Delta = rules.XPPerCompletion
	}

	res.LevelsGained = AddXP(u, res.Delta, rules.PointsPerLevel)
	res.LeveledUp = res.LevelsGained > 0 && !res.WasCompleted
	res.GoalReached = !h.IsIndefinite && !res.WasCompleted && len(h.CompletedDates) == h.TargetDays

	events := []Event{&HabitProgressed{
		EventMeta:    EventMeta{UserID: u.UserID},
		HabitID:      h.ID,
		HabitName:    h.Name,
		DayKey:       dayKey,
		WasCompleted: res.WasCompleted,
		IsFinalDay:   res.GoalReached,
	}}
	if res.LeveledUp {
		events = append(events, &LevelUp{
			EventMeta: EventMeta{UserID: u.UserID},
			From:      res.LevelBefore,
			To:        u.Level,
		})
	}
	return res, events, nil
}
