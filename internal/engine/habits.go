package engine

import (
	"context"
	"strings"

	"habitforge/internal/dates"
	"habitforge/internal/model"
	"habitforge/internal/storage"
)

const DefaultTargetDays = 21

type CreateHabitInput struct {
	Name         string
	TargetDays   int
	IsIndefinite bool
}

func (s *Service) CreateHabit(ctx context.Context, userID string, in CreateHabitInput) (*model.Habit, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}
	target := in.TargetDays
	switch {
	case target < 0:
		return nil, invalidf("target days must be positive, got %d", target)
	case target == 0:
		target = DefaultTargetDays
	}

	today := s.Today()
	var out *model.Habit
	err = s.run(ctx, "create_habit", func(tx storage.Tx) error {
		if _, err := storage.GetOrCreateProgress(ctx, tx, userID); err != nil {
			return err
		}
		h := &model.Habit{
			UserID:          userID,
			Name:            name,
			TargetDays:      target,
			IsIndefinite:    in.IsIndefinite,
			Status:          model.HabitActive,
			CreatedOnDayKey: &today,
			CompletedDates:  []string{},
		}
		if err := tx.InsertHabit(ctx, h); err != nil {
			return err
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("habit created", "user_id", userID, "habit_id", out.ID, "target_days", out.TargetDays)
	return out, nil
}

// ArchiveHabit marks a habit completed, the caller's answer to a reached
// goal. Archived habits no longer count toward badge aggregates.
func (s *Service) ArchiveHabit(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	var out *model.Habit
	err = s.run(ctx, "archive_habit", func(tx storage.Tx) error {
		h, err := tx.GetHabit(ctx, userID, habitID)
		if err != nil {
			return mapNotFound(err, "habit", habitID)
		}
		if !h.IsActive() {
			return invalidf("habit %s is already %s", habitID, h.Status)
		}
		h.Status = model.HabitCompleted
		if err := tx.PutHabit(ctx, h); err != nil {
			return err
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HabitView is a habit with its derived streak figures.
type HabitView struct {
	model.Habit
	Streak    int
	DoneToday bool
	// Remaining is the number of completions left to reach the target; it
	// is zero for open-ended habits.
	Remaining int
}

// ListHabits returns the user's habits in creation order. With activeOnly
// archived habits are skipped.
func (s *Service) ListHabits(ctx context.Context, userID string, activeOnly bool) ([]HabitView, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	var habits []model.Habit
	err = s.run(ctx, "list_habits", func(tx storage.Tx) error {
		var err error
		habits, err = tx.ListHabits(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := dates.DayKey(now)
	out := make([]HabitView, 0, len(habits))
	for _, h := range habits {
		if activeOnly && !h.IsActive() {
			continue
		}
		v := HabitView{
			Habit:     h,
			Streak:    dates.StreakLength(dates.Set(h.CompletedDates), now),
			DoneToday: h.HasDay(today),
		}
		if !h.IsIndefinite && len(h.CompletedDates) < h.TargetDays {
			v.Remaining = h.TargetDays - len(h.CompletedDates)
		}
		out = append(out, v)
	}
	return out, nil
}

// FindHabit resolves a habit by id, or by a case-insensitive name or id
// prefix when that is unambiguous.
func (s *Service) FindHabit(ctx context.Context, userID, ref string) (*model.Habit, error) {
	views, err := s.ListHabits(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	var matches []model.Habit
	for _, v := range views {
		if v.ID == ref {
			h := v.Habit
			return &h, nil
		}
		if strings.EqualFold(v.Name, ref) || (len(ref) >= 4 && strings.HasPrefix(v.ID, ref)) {
			matches = append(matches, v.Habit)
		}
	}
	switch len(matches) {
	case 0:
		return nil, NotFoundError{Kind: "habit", ID: ref}
	case 1:
		return &matches[0], nil
	default:
		return nil, invalidf("%d habits match %q, use the id", len(matches), ref)
	}
}

type DayState string

const (
	DayNone      DayState = "none"
	DayCompleted DayState = "completed"
	DayMissed    DayState = "missed"
	DayPending   DayState = "pending"
)

// DayStateOf classifies dayKey for a habit's calendar. Days before the
// habit existed, or past a finite habit's target window, are DayNone.
func DayStateOf(h *model.Habit, dayKey, todayKey string) DayState {
	if h.CreatedOnDayKey == nil || dayKey < *h.CreatedOnDayKey {
		if h.HasDay(dayKey) {
			return DayCompleted
		}
		return DayNone
	}
	if !h.IsIndefinite {
		offset, err := dates.DaysBetween(*h.CreatedOnDayKey, dayKey)
		if err != nil || offset >= h.TargetDays {
			return DayNone
		}
	}
	switch {
	case h.HasDay(dayKey):
		return DayCompleted
	case dayKey < todayKey:
		return DayMissed
	default:
		return DayPending
	}
}
