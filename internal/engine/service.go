package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"habitforge/internal/dates"
	"habitforge/internal/model"
	"habitforge/internal/platform/clock"
	"habitforge/internal/platform/logger"
	"habitforge/internal/storage"
)

// Catalog supplies the current badge definitions in evaluation order.
type Catalog interface {
	Badges(ctx context.Context) ([]model.BadgeDefinition, error)
}

// Notifier receives events after their transaction has committed. Errors
// are logged by the service and never undo the commit.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

type noCatalog struct{}

func (noCatalog) Badges(context.Context) ([]model.BadgeDefinition, error) { return nil, nil }

type noNotifier struct{}

func (noNotifier) Notify(context.Context, Event) error { return nil }

type Service struct {
	store    storage.Store
	catalog  Catalog
	notifier Notifier
	clock    clock.Clock
	log      *logger.Logger
	rules    Rules
	retry    storage.RetryPolicy
	loc      *time.Location
	tracer   trace.Tracer
}

type Option func(*Service)

func WithCatalog(c Catalog) Option                 { return func(s *Service) { s.catalog = c } }
func WithNotifier(n Notifier) Option               { return func(s *Service) { s.notifier = n } }
func WithClock(c clock.Clock) Option               { return func(s *Service) { s.clock = c } }
func WithLogger(l *logger.Logger) Option           { return func(s *Service) { s.log = l } }
func WithRules(r Rules) Option                     { return func(s *Service) { s.rules = r.withDefaults() } }
func WithRetryPolicy(p storage.RetryPolicy) Option { return func(s *Service) { s.retry = p } }

// WithLocation sets the zone whose calendar defines day keys.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		catalog:  noCatalog{},
		notifier: noNotifier{},
		clock:    clock.Real{},
		log:      logger.Nop(),
		rules:    DefaultRules(),
		retry:    storage.DefaultRetryPolicy(),
		loc:      time.Local,
		tracer:   otel.Tracer("habitforge/engine"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Rules() Rules { return s.rules }

func (s *Service) now() time.Time { return s.clock.Now().In(s.loc) }

// Today returns the current day key in the service's zone.
func (s *Service) Today() string { return dates.DayKey(s.now()) }

func normalizeName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", InvalidStateError{Reason: "habit name is required"}
	}
	return n, nil
}

func normalizeUser(userID string) (string, error) {
	u := strings.TrimSpace(userID)
	if u == "" {
		return "", InvalidStateError{Reason: "user id is required"}
	}
	return u, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// run executes fn as one retried unit of work and converts exhausted
// retries into a ConflictError.
func (s *Service) run(ctx context.Context, op string, fn func(tx storage.Tx) error) error {
	attempts, err := storage.RunInTx(ctx, s.store, s.retry, fn)
	if attempts > 1 {
		s.log.Debug("transaction retried", "op", op, "attempts", attempts)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrConflict) {
		s.log.Warn("transaction conflict", "op", op, "attempts", attempts, "error", err)
		return &ConflictError{Op: op, Attempts: attempts, Err: err}
	}
	return err
}

// publish stamps and delivers committed events. Delivery failures are
// logged only.
func (s *Service) publish(ctx context.Context, events []Event) {
	at := s.clock.Now().UTC()
	for _, e := range events {
		m := e.Meta()
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.At.IsZero() {
			m.At = at
		}
		e.setMeta(m)
		if err := s.notifier.Notify(ctx, e); err != nil {
			s.log.Warn("notify failed", "event", string(e.Type()), "event_id", m.ID, "error", err)
		}
	}
}

func mapNotFound(err error, kind, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NotFoundError{Kind: kind, ID: id}
	}
	return err
}

// Progress returns the user's record, creating it with defaults on first
// access.
func (s *Service) Progress(ctx context.Context, userID string) (*model.UserProgress, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	var out *model.UserProgress
	err = s.run(ctx, "progress", func(tx storage.Tx) error {
		p, err := storage.GetOrCreateProgress(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleOutcome is the committed toggle plus the badge pass that followed.
type ToggleOutcome struct {
	Toggle *ToggleResult
	Award  *AwardResult
}

// ToggleHabit flips dayKey (today when empty) for one habit, then runs a
// badge award pass. The toggle and the award commit separately; if the
// award pass fails the committed toggle is still returned with the error.
func (s *Service) ToggleHabit(ctx context.Context, userID, habitID, dayKey string) (out *ToggleOutcome, err error) {
	ctx, span := s.startSpan(ctx, "engine.ToggleHabit",
		attribute.String("habit.id", habitID), attribute.String("day.key", dayKey))
	defer func() { endSpan(span, err) }()

	if userID, err = normalizeUser(userID); err != nil {
		return nil, err
	}
	today := s.Today()
	if dayKey == "" {
		dayKey = today
	}
	if !dates.ValidDayKey(dayKey) {
		return nil, invalidf("day key %q is not a calendar day", dayKey)
	}
	if dayKey > today {
		return nil, invalidf("day %s is in the future (today is %s)", dayKey, today)
	}

	var (
		res    *ToggleResult
		events []Event
	)
	err = s.run(ctx, "toggle", func(tx storage.Tx) error {
		p, err := storage.GetOrCreateProgress(ctx, tx, userID)
		if err != nil {
			return err
		}
		h, err := tx.GetHabit(ctx, userID, habitID)
		if err != nil {
			return mapNotFound(err, "habit", habitID)
		}
		r, evs, err := ApplyToggle(p, h, dayKey, s.rules)
		if err != nil {
			return err
		}
		if err := tx.PutHabit(ctx, r.Habit); err != nil {
			return err
		}
		if err := tx.PutProgress(ctx, r.Progress); err != nil {
			return err
		}
		res, events = r, evs
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("habit toggled", "user_id", userID, "habit_id", habitID, "day", dayKey,
		"was_completed", res.WasCompleted, "level", res.Progress.Level, "score", res.Progress.Score)
	s.publish(ctx, events)

	out = &ToggleOutcome{Toggle: res}
	award, err := s.AwardBadges(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("award badges after toggle: %w", err)
	}
	out.Award = award
	return out, nil
}

// AwardBadges recomputes aggregates and records every newly qualifying
// badge together with its XP in one commit. On conflict the whole
// recompute runs again on fresh data.
func (s *Service) AwardBadges(ctx context.Context, userID string) (out *AwardResult, err error) {
	ctx, span := s.startSpan(ctx, "engine.AwardBadges")
	defer func() { endSpan(span, err) }()

	if userID, err = normalizeUser(userID); err != nil {
		return nil, err
	}
	catalog, err := s.catalog.Badges(ctx)
	if err != nil {
		return nil, fmt.Errorf("load badge catalog: %w", err)
	}

	var events []Event
	err = s.run(ctx, "award", func(tx storage.Tx) error {
		p, err := storage.GetOrCreateProgress(ctx, tx, userID)
		if err != nil {
			return err
		}
		habits, err := tx.ListHabits(ctx, userID)
		if err != nil {
			return err
		}
		r, evs := AwardBadges(p, habits, catalog, s.now(), s.rules)
		out, events = r, evs
		if len(r.Earned) == 0 {
			return nil
		}
		return tx.PutProgress(ctx, r.Progress)
	})
	if err != nil {
		return nil, err
	}

	if len(out.Earned) > 0 {
		s.log.Info("badges awarded", "user_id", userID, "count", len(out.Earned), "xp", out.XPAwarded)
	}
	s.publish(ctx, events)
	return out, nil
}

// DailyLogin runs the once-per-day vitality check for today. profile, when
// given, refreshes the stored display metadata.
func (s *Service) DailyLogin(ctx context.Context, userID string, profile *model.Profile) (out *LoginResult, err error) {
	ctx, span := s.startSpan(ctx, "engine.DailyLogin")
	defer func() { endSpan(span, err) }()

	if userID, err = normalizeUser(userID); err != nil {
		return nil, err
	}
	today := s.Today()

	var events []Event
	err = s.run(ctx, "daily_login", func(tx storage.Tx) error {
		p, err := storage.GetOrCreateProgress(ctx, tx, userID)
		if err != nil {
			return err
		}
		r, evs, err := ProcessDailyLogin(p, today, profile, s.rules)
		if err != nil {
			return err
		}
		out, events = r, evs
		if !r.Changed {
			return nil
		}
		return tx.PutProgress(ctx, r.Progress)
	})
	if err != nil {
		return nil, err
	}

	switch {
	case out.PenaltyApplied:
		s.log.Warn("hearts exhausted, level lost", "user_id", userID, "level", out.Progress.Level)
	case out.HeartLost:
		s.log.Info("heart lost", "user_id", userID, "hearts", out.Progress.Hearts, "elapsed_days", out.ElapsedDays)
	case out.FreezeConsumed:
		s.log.Info("streak freeze consumed", "user_id", userID, "elapsed_days", out.ElapsedDays)
	}
	s.publish(ctx, events)
	return out, nil
}
