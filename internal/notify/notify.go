// Package notify delivers committed progression events to the activity
// feed, the log and the redis event channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"habitforge/internal/engine"
	"habitforge/internal/platform/logger"
)

// Envelope is the wire form of an event.
type Envelope struct {
	Type engine.EventType `json:"type"`
	Data json.RawMessage  `json:"data"`
}

func Encode(e engine.Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type(), err)
	}
	raw, err := json.Marshal(Envelope{Type: e.Type(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return raw, nil
}

// Decode restores an event from its wire form.
func Decode(raw []byte) (engine.Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	var e engine.Event
	switch env.Type {
	case engine.EventHabitProgressed:
		e = &engine.HabitProgressed{}
	case engine.EventLevelUp:
		e = &engine.LevelUp{}
	case engine.EventBadgeEarned:
		e = &engine.BadgeEarned{}
	case engine.EventHeartLost:
		e = &engine.HeartLost{}
	case engine.EventStreakFreezeConsumed:
		e = &engine.StreakFreezeConsumed{}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err := json.Unmarshal(env.Data, e); err != nil {
		return nil, fmt.Errorf("unmarshal %s event: %w", env.Type, err)
	}
	return e, nil
}

// Log writes each event as a structured log line.
type Log struct {
	log *logger.Logger
}

func NewLog(log *logger.Logger) *Log {
	return &Log{log: log.With("component", "notify")}
}

func (n *Log) Notify(ctx context.Context, e engine.Event) error {
	m := e.Meta()
	n.log.Info("event", "type", string(e.Type()), "event_id", m.ID, "user_id", m.UserID)
	return nil
}

// Multi fans an event out to every notifier. A failing notifier is logged
// and does not stop the others; Multi itself never fails.
type Multi struct {
	log       *logger.Logger
	notifiers []engine.Notifier
}

func NewMulti(log *logger.Logger, notifiers ...engine.Notifier) *Multi {
	return &Multi{log: log, notifiers: notifiers}
}

func (m *Multi) Add(n engine.Notifier) { m.notifiers = append(m.notifiers, n) }

func (m *Multi) Notify(ctx context.Context, e engine.Event) error {
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, e); err != nil {
			m.log.Warn("notifier failed", "type", string(e.Type()), "notifier", fmt.Sprintf("%T", n), "error", err)
		}
	}
	return nil
}
