package notify

import (
	"context"
	"fmt"

	"habitforge/internal/engine"
	"habitforge/internal/storage"
)

// Activity types written to the feed.
const (
	ActivityHabitProgress        = "habit_progress"
	ActivityHabitGoalReached     = "habit_goal_reached"
	ActivityLevelUp              = "level_up"
	ActivityBadgeEarned          = "badge_earned"
	ActivityHeartLost            = "heart_lost"
	ActivityStreakFreezeConsumed = "streak_freeze_consumed"
)

// Feed records events in the activities table.
type Feed struct {
	repo *storage.ActivityRepo
}

func NewFeed(repo *storage.ActivityRepo) *Feed {
	return &Feed{repo: repo}
}

func (f *Feed) Notify(ctx context.Context, e engine.Event) error {
	typ, title, ok := describe(e)
	if !ok {
		return nil
	}
	payload, err := Encode(e)
	if err != nil {
		return err
	}
	m := e.Meta()
	return f.repo.Insert(ctx, &storage.Activity{
		ID:        m.ID,
		UserID:    m.UserID,
		Type:      typ,
		Title:     title,
		Payload:   string(payload),
		CreatedAt: m.At,
	})
}

// describe maps an event to its feed entry. Un-marking a day is not shown.
func describe(e engine.Event) (typ, title string, ok bool) {
	switch ev := e.(type) {
	case *engine.HabitProgressed:
		if ev.WasCompleted {
			return "", "", false
		}
		if ev.IsFinalDay {
			return ActivityHabitGoalReached, fmt.Sprintf("Reached the goal for %s", ev.HabitName), true
		}
		return ActivityHabitProgress, fmt.Sprintf("Completed %s", ev.HabitName), true
	case *engine.LevelUp:
		return ActivityLevelUp, fmt.Sprintf("Reached level %d", ev.To), true
	case *engine.BadgeEarned:
		return ActivityBadgeEarned, fmt.Sprintf("Earned %s", ev.Name), true
	case *engine.HeartLost:
		if ev.Penalty {
			return ActivityHeartLost, fmt.Sprintf("Ran out of hearts, back to level %d", ev.LevelAfter), true
		}
		return ActivityHeartLost, fmt.Sprintf("Lost a heart (%d left)", ev.HeartsAfter), true
	case *engine.StreakFreezeConsumed:
		return ActivityStreakFreezeConsumed, "Streak freeze used", true
	default:
		return "", "", false
	}
}
