package engine

import "time"

type EventType string

const (
	EventHabitProgressed      EventType = "habit_progressed"
	EventLevelUp              EventType = "level_up"
	EventBadgeEarned          EventType = "badge_earned"
	EventHeartLost            EventType = "heart_lost"
	EventStreakFreezeConsumed EventType = "streak_freeze_consumed"
)

// Event is a domain fact handed to notifiers after its transaction commits.
// The set of implementations is closed.
type Event interface {
	Type() EventType
	Meta() EventMeta
	setMeta(EventMeta)
}

// EventMeta is stamped by the service when the event is published.
type EventMeta struct {
	ID     string    `json:"id"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

func (m *EventMeta) Meta() EventMeta     { return *m }
func (m *EventMeta) setMeta(v EventMeta) { *m = v }

type HabitProgressed struct {
	EventMeta
	HabitID      string `json:"habit_id"`
	HabitName    string `json:"habit_name"`
	DayKey       string `json:"day_key"`
	WasCompleted bool   `json:"was_completed"`
	IsFinalDay   bool   `json:"is_final_day"`
}

type LevelUp struct {
	EventMeta
	From int `json:"from"`
	To   int `json:"to"`
}

type BadgeEarned struct {
	EventMeta
	BadgeID  string `json:"badge_id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	XPReward int    `json:"xp_reward"`
	// Foreground marks the first badge of a batch, the one to show the user.
	Foreground bool `json:"foreground"`
}

type HeartLost struct {
	EventMeta
	HeartsBefore int `json:"hearts_before"`
	HeartsAfter  int `json:"hearts_after"`
	MissedDays   int `json:"missed_days"`
	// Penalty is set when the loss emptied the hearts and cost a level.
	Penalty    bool `json:"penalty"`
	LevelAfter int  `json:"level_after"`
}

type StreakFreezeConsumed struct {
	EventMeta
	Item       string `json:"item"`
	Remaining  int    `json:"remaining"`
	MissedDays int    `json:"missed_days"`
}

func (*HabitProgressed) Type() EventType      { return EventHabitProgressed }
func (*LevelUp) Type() EventType              { return EventLevelUp }
func (*BadgeEarned) Type() EventType          { return EventBadgeEarned }
func (*HeartLost) Type() EventType            { return EventHeartLost }
func (*StreakFreezeConsumed) Type() EventType { return EventStreakFreezeConsumed }
