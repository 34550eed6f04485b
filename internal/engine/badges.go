package engine

import (
	"time"

	"habitforge/internal/dates"
	"habitforge/internal/model"
)

// Aggregates is the snapshot badge conditions are tested against.
type Aggregates struct {
	TotalCompleted int
	MaxStreak      int
	Level          int
}

// ComputeAggregates sums completed days and finds the longest current
// streak across active habits only.
func ComputeAggregates(habits []model.Habit, level int, reference time.Time) Aggregates {
	agg := Aggregates{Level: level}
	for i := range habits {
		h := &habits[i]
		if !h.IsActive() {
			continue
		}
		agg.TotalCompleted += len(h.CompletedDates)
		if n := dates.StreakLength(dates.Set(h.CompletedDates), reference); n > agg.MaxStreak {
			agg.MaxStreak = n
		}
	}
	return agg
}

// EvaluateBadges returns the catalog entries not yet earned whose condition
// holds for agg, in catalog order.
func EvaluateBadges(agg Aggregates, catalog []model.BadgeDefinition, earned []string) []model.BadgeDefinition {
	have := make(map[string]struct{}, len(earned))
	for _, id := range earned {
		have[id] = struct{}{}
	}

	var out []model.BadgeDefinition
	for _, def := range catalog {
		if _, ok := have[def.ID]; ok {
			continue
		}
		if conditionMet(def.Condition, agg) {
			out = append(out, def)
			// A catalog listing the same id twice awards it once.
			have[def.ID] = struct{}{}
		}
	}
	return out
}

func conditionMet(c model.BadgeCondition, agg Aggregates) bool {
	switch c := c.(type) {
	case model.TotalHabits:
		return agg.TotalCompleted >= c.N
	case model.StreakDays:
		return agg.MaxStreak >= c.N
	case model.LevelReached:
		return agg.Level >= c.N
	default:
		return false
	}
}

type AwardResult struct {
	Progress     *model.UserProgress
	Aggregates   Aggregates
	Earned       []model.BadgeDefinition
	XPAwarded    int
	LevelsGained int
}

// AwardBadges records every newly qualifying badge and grants the sum of
// their rewards through the level carry. Inputs are not modified; when
// nothing qualifies the returned progress equals the input.
func AwardBadges(user *model.UserProgress, habits []model.Habit, catalog []model.BadgeDefinition, reference time.Time, rules Rules) (*AwardResult, []Event) {
	rules = rules.withDefaults()
	u := user.Clone()
	res := &AwardResult{
		Progress:   u,
		Aggregates: ComputeAggregates(habits, u.Level, reference),
	}
	res.Earned = EvaluateBadges(res.Aggregates, catalog, u.EarnedBadges)
	if len(res.Earned) == 0 {
		return res, nil
	}

	levelBefore := u.Level
	events := make([]Event, 0, len(res.Earned)+1)
	for i, def := range res.Earned {
		u.EarnedBadges = append(u.EarnedBadges, def.ID)
		res.XPAwarded += def.XPReward
		events = append(events, &BadgeEarned{
			EventMeta:  EventMeta{UserID: u.UserID},
			BadgeID:    def.ID,
			Name:       def.Name,
			Icon:       def.Icon,
			XPReward:   def.XPReward,
			Foreground: i == 0,
		})
	}
	res.LevelsGained = AddXP(u, res.XPAwarded, rules.PointsPerLevel)
	if res.LevelsGained > 0 {
		events = append(events, &LevelUp{
			EventMeta: EventMeta{UserID: u.UserID},
			From:      levelBefore,
			To:        u.Level,
		})
	}
	return res, events
}
