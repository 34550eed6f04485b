package model

import (
	"fmt"
	"strings"
)

// BadgeCondition is a closed set of unlock rules. Only the types in this
// package implement it.
type BadgeCondition interface {
	Kind() ConditionKind
	Threshold() int
	isBadgeCondition()
}

type ConditionKind string

const (
	ConditionTotalHabits  ConditionKind = "total_habits"
	ConditionStreakDays   ConditionKind = "streak_days"
	ConditionLevelReached ConditionKind = "level_reached"
)

// TotalHabits unlocks once the sum of completed days across active habits reaches N.
type TotalHabits struct{ N int }

// StreakDays unlocks once any habit's current streak reaches N.
type StreakDays struct{ N int }

// LevelReached unlocks once the user's level reaches N.
type LevelReached struct{ N int }

func (TotalHabits) Kind() ConditionKind  { return ConditionTotalHabits }
func (StreakDays) Kind() ConditionKind   { return ConditionStreakDays }
func (LevelReached) Kind() ConditionKind { return ConditionLevelReached }

func (c TotalHabits) Threshold() int  { return c.N }
func (c StreakDays) Threshold() int   { return c.N }
func (c LevelReached) Threshold() int { return c.N }

func (TotalHabits) isBadgeCondition()  {}
func (StreakDays) isBadgeCondition()   {}
func (LevelReached) isBadgeCondition() {}

// ParseCondition maps a stored condition type string to its variant.
// Unknown types are rejected rather than ignored.
func ParseCondition(kind string, value int) (BadgeCondition, error) {
	if value < 0 {
		return nil, fmt.Errorf("badge condition value must be >= 0, got %d", value)
	}
	switch ConditionKind(strings.TrimSpace(strings.ToLower(kind))) {
	case ConditionTotalHabits:
		return TotalHabits{N: value}, nil
	case ConditionStreakDays:
		return StreakDays{N: value}, nil
	case ConditionLevelReached:
		return LevelReached{N: value}, nil
	default:
		return nil, fmt.Errorf("unknown badge condition type: %q", kind)
	}
}

// BadgeDefinition is a read-only catalog entry.
type BadgeDefinition struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Condition   BadgeCondition
	XPReward    int
}
