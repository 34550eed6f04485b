package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"habitforge/internal/model"
	"habitforge/internal/platform/clock"
	"habitforge/internal/storage"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu      sync.Mutex
	events  []Event
	onEvent func(Event)
}

func (r *recorder) Notify(ctx context.Context, e Event) error {
	if r.onEvent != nil {
		r.onEvent(e)
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

type brokenNotifier struct{}

func (brokenNotifier) Notify(context.Context, Event) error { return errors.New("feed offline") }

type staticCatalog []model.BadgeDefinition

func (c staticCatalog) Badges(context.Context) ([]model.BadgeDefinition, error) { return c, nil }

func testPolicy() storage.RetryPolicy {
	return storage.RetryPolicy{MaxAttempts: 8, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func baseOptions(clk clock.Clock) []Option {
	return []Option{WithClock(clk), WithLocation(time.UTC), WithRetryPolicy(testPolicy())}
}

// newTestService runs against a throwaway SQLite file.
func newTestService(t *testing.T, opts ...Option) (*Service, *clock.Fake) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clk := clock.NewFake(testNow)
	return NewService(store, append(baseOptions(clk), opts...)...), clk
}

func newMemService(t *testing.T, opts ...Option) (*Service, *storage.MemoryStore, *clock.Fake) {
	t.Helper()
	store := storage.NewMemoryStore()
	clk := clock.NewFake(testNow)
	return NewService(store, append(baseOptions(clk), opts...)...), store, clk
}

func seedHabit(t *testing.T, svc *Service, userID string, h *model.Habit) *model.Habit {
	t.Helper()
	ctx := context.Background()
	h.UserID = userID
	_, err := storage.RunInTx(ctx, svc.store, testPolicy(), func(tx storage.Tx) error {
		if _, err := storage.GetOrCreateProgress(ctx, tx, userID); err != nil {
			return err
		}
		return tx.InsertHabit(ctx, h)
	})
	require.NoError(t, err)
	return h
}

func pastDays(n int) []string {
	out := make([]string, 0, n)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out = append(out, start.AddDate(0, 0, i).Format("2006-01-02"))
	}
	return out
}

func TestToggleHabitRoundTrip(t *testing.T) {
	rec := &recorder{}
	svc, _ := newTestService(t, WithNotifier(rec))
	ctx := context.Background()

	h, err := svc.CreateHabit(ctx, "u1", CreateHabitInput{Name: "  Read  "})
	require.NoError(t, err)
	assert.Equal(t, "Read", h.Name)
	assert.Equal(t, DefaultTargetDays, h.TargetDays)
	require.NotNil(t, h.CreatedOnDayKey)
	assert.Equal(t, "2024-03-01", *h.CreatedOnDayKey)

	out, err := svc.ToggleHabit(ctx, "u1", h.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", out.Toggle.DayKey)
	assert.Equal(t, 10, out.Toggle.Progress.Score)
	require.NotNil(t, out.Award)

	out, err = svc.ToggleHabit(ctx, "u1", h.ID, "2024-03-01")
	require.NoError(t, err)
	assert.True(t, out.Toggle.WasCompleted)

	p, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Score)
	assert.Equal(t, 0, p.TotalXP)

	views, err := svc.ListHabits(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Empty(t, views[0].CompletedDates)

	progressed := rec.ofType(EventHabitProgressed)
	require.Len(t, progressed, 2)
	assert.NotEmpty(t, progressed[0].Meta().ID)
	assert.Equal(t, "u1", progressed[0].Meta().UserID)
	assert.Equal(t, testNow, progressed[0].Meta().At)
}

func TestToggleHabitRejectsFutureAndUnknown(t *testing.T) {
	svc, _, _ := newMemService(t)
	ctx := context.Background()
	h := seedHabit(t, svc, "u1", &model.Habit{Name: "Run", TargetDays: 5})

	_, err := svc.ToggleHabit(ctx, "u1", h.ID, "2024-03-02")
	var inv InvalidStateError
	assert.ErrorAs(t, err, &inv)

	_, err = svc.ToggleHabit(ctx, "u1", h.ID, "03/01/2024")
	assert.ErrorAs(t, err, &inv)

	_, err = svc.ToggleHabit(ctx, "u1", "missing", "")
	var nf NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = svc.ToggleHabit(ctx, "u2", h.ID, "")
	assert.ErrorAs(t, err, &nf)
}

func TestToggleHabitBeforeCreationLeavesNoTrace(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	h, err := svc.CreateHabit(ctx, "u1", CreateHabitInput{Name: "Read"})
	require.NoError(t, err)

	_, err = svc.ToggleHabit(ctx, "u1", h.ID, "1970-01-01")
	var inv InvalidStateError
	require.ErrorAs(t, err, &inv)

	p, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalXP)
	assert.Empty(t, p.EarnedBadges)
	views, err := svc.ListHabits(ctx, "u1", false)
	require.NoError(t, err)
	assert.Empty(t, views[0].CompletedDates)
}

func TestToggleHabitArchivedIsInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	h, err := svc.CreateHabit(ctx, "u1", CreateHabitInput{Name: "Stretch", TargetDays: 1})
	require.NoError(t, err)

	out, err := svc.ToggleHabit(ctx, "u1", h.ID, "")
	require.NoError(t, err)
	assert.True(t, out.Toggle.GoalReached)

	_, err = svc.ArchiveHabit(ctx, "u1", h.ID)
	require.NoError(t, err)

	_, err = svc.ToggleHabit(ctx, "u1", h.ID, "2024-02-29")
	var inv InvalidStateError
	assert.ErrorAs(t, err, &inv)

	_, err = svc.ArchiveHabit(ctx, "u1", h.ID)
	assert.ErrorAs(t, err, &inv)

	active, err := svc.ListHabits(ctx, "u1", true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	svc, store, _ := newMemService(t)
	ctx := context.Background()
	h := seedHabit(t, svc, "u1", &model.Habit{Name: "Read", TargetDays: 21})

	var sawCommitted atomic.Bool
	rec := &recorder{onEvent: func(e Event) {
		if _, ok := e.(*HabitProgressed); !ok {
			return
		}
		_, err := storage.RunInTx(ctx, store, testPolicy(), func(tx storage.Tx) error {
			got, err := tx.GetHabit(ctx, "u1", h.ID)
			if err != nil {
				return err
			}
			sawCommitted.Store(got.HasDay("2024-03-01"))
			return nil
		})
		require.NoError(t, err)
	}}
	svc.notifier = rec

	_, err := svc.ToggleHabit(ctx, "u1", h.ID, "")
	require.NoError(t, err)
	assert.True(t, sawCommitted.Load())
}

func TestNotifierFailureDoesNotFailToggle(t *testing.T) {
	svc, _, _ := newMemService(t, WithNotifier(brokenNotifier{}))
	ctx := context.Background()
	h := seedHabit(t, svc, "u1", &model.Habit{Name: "Read", TargetDays: 21})

	out, err := svc.ToggleHabit(ctx, "u1", h.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 10, out.Toggle.Progress.TotalXP)
}

func TestToggleConflictExhaustionLeavesNoPartialState(t *testing.T) {
	svc, store, _ := newMemService(t)
	ctx := context.Background()
	h := seedHabit(t, svc, "u1", &model.Habit{Name: "Read", TargetDays: 21})

	nested := false
	store.BeforeCommit = func() {
		if nested {
			return
		}
		nested = true
		defer func() { nested = false }()
		_, err := storage.RunInTx(ctx, store, testPolicy(), func(tx storage.Tx) error {
			p, err := tx.GetProgress(ctx, "u1")
			if err != nil {
				return err
			}
			p.Hearts = 3
			return tx.PutProgress(ctx, p)
		})
		require.NoError(t, err)
	}

	_, err := svc.ToggleHabit(ctx, "u1", h.ID, "")
	require.Error(t, err)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "toggle", ce.Op)
	assert.Equal(t, testPolicy().MaxAttempts, ce.Attempts)
	assert.ErrorIs(t, err, storage.ErrConflict)

	store.BeforeCommit = nil
	views, err := svc.ListHabits(ctx, "u1", false)
	require.NoError(t, err)
	assert.Empty(t, views[0].CompletedDates)
	p, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalXP)
}

func TestConcurrentTogglesOnDifferentHabits(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			var svc *Service
			if backend == "memory" {
				svc, _, _ = newMemService(t)
			} else {
				svc, _ = newTestService(t)
			}
			ctx := context.Background()

			const n = 4
			habits := make([]*model.Habit, n)
			for i := range habits {
				habits[i] = seedHabit(t, svc, "u1", &model.Habit{Name: fmt.Sprintf("h%d", i), TargetDays: 21})
			}

			var g errgroup.Group
			for _, h := range habits {
				g.Go(func() error {
					_, err := svc.ToggleHabit(ctx, "u1", h.ID, "")
					return err
				})
			}
			require.NoError(t, g.Wait())

			p, err := svc.Progress(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, n*10, p.TotalXP)
			assert.Equal(t, n*10, p.Score)

			views, err := svc.ListHabits(ctx, "u1", false)
			require.NoError(t, err)
			for _, v := range views {
				assert.True(t, v.DoneToday, v.Name)
			}
		})
	}
}

func TestBadgeAwardAtomicUnderConcurrentReads(t *testing.T) {
	catalog := staticCatalog{{ID: "fifty", Name: "Fifty", Condition: model.TotalHabits{N: 50}, XPReward: 50}}
	rec := &recorder{}
	svc, store, _ := newMemService(t, WithCatalog(catalog), WithNotifier(rec))
	ctx := context.Background()
	h := seedHabit(t, svc, "u1", &model.Habit{Name: "Read", TargetDays: 100, CompletedDates: pastDays(49)})

	done := make(chan struct{})
	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for {
				select {
				case <-done:
					return nil
				default:
				}
				var snap *model.UserProgress
				_, err := storage.RunInTx(ctx, store, testPolicy(), func(tx storage.Tx) error {
					p, err := tx.GetProgress(ctx, "u1")
					snap = p
					return err
				})
				if err != nil {
					return err
				}
				has := snap.HasBadge("fifty")
				if has != (snap.TotalXP == 60) {
					return fmt.Errorf("torn award: badge=%v totalXP=%d", has, snap.TotalXP)
				}
			}
		})
	}

	out, err := svc.ToggleHabit(ctx, "u1", h.ID, "")
	close(done)
	require.NoError(t, err)
	require.NoError(t, g.Wait())

	require.NotNil(t, out.Award)
	require.Len(t, out.Award.Earned, 1)
	assert.Equal(t, 50, out.Award.Aggregates.TotalCompleted)

	p, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fifty"}, p.EarnedBadges)
	assert.Equal(t, 60, p.Score)
	assert.Equal(t, 60, p.TotalXP)

	badges := rec.ofType(EventBadgeEarned)
	require.Len(t, badges, 1)
	assert.True(t, badges[0].(*BadgeEarned).Foreground)

	// A second pass finds nothing new.
	again, err := svc.AwardBadges(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, again.Earned)
}

func TestDailyLoginAcrossDays(t *testing.T) {
	rec := &recorder{}
	svc, clk := newTestService(t, WithNotifier(rec))
	ctx := context.Background()

	first, err := svc.DailyLogin(ctx, "u1", &model.Profile{DisplayName: "Ada"})
	require.NoError(t, err)
	assert.True(t, first.FirstLogin)

	again, err := svc.DailyLogin(ctx, "u1", nil)
	require.NoError(t, err)
	assert.True(t, again.AlreadyProcessed)
	assert.Equal(t, first.Progress.Version, again.Progress.Version)

	_, err = svc.GrantItem(ctx, "u1", "streak_freeze_1")
	require.NoError(t, err)

	clk.AdvanceDays(3)
	res, err := svc.DailyLogin(ctx, "u1", nil)
	require.NoError(t, err)
	assert.True(t, res.FreezeConsumed)
	assert.Equal(t, 3, res.Progress.Hearts)
	assert.Empty(t, res.Progress.Inventory)

	clk.AdvanceDays(2)
	res, err = svc.DailyLogin(ctx, "u1", nil)
	require.NoError(t, err)
	assert.True(t, res.HeartLost)
	assert.Equal(t, 2, res.Progress.Hearts)
	assert.Equal(t, "2024-03-06", *res.Progress.LastLoginDayKey)

	assert.Len(t, rec.ofType(EventStreakFreezeConsumed), 1)
	assert.Len(t, rec.ofType(EventHeartLost), 1)
}

func TestLeaderboardAndAdminOps(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	for i, user := range []string{"a", "b", "c"} {
		clk.Set(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC))
		h, err := svc.CreateHabit(ctx, user, CreateHabitInput{Name: "Read", IsIndefinite: true})
		require.NoError(t, err)
		clk.Set(testNow)
		for d := 0; d <= i; d++ {
			_, err := svc.ToggleHabit(ctx, user, h.ID, fmt.Sprintf("2024-02-%02d", d+1))
			require.NoError(t, err)
		}
	}

	board, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "c", board[0].UserID)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 30, board[0].TotalXP)
	assert.Equal(t, 3, board[2].Rank)

	reset, err := svc.ResetProgress(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 0, reset.TotalXP)

	_, _, err = svc.NormalizeProgress(ctx, "nobody")
	var nf NotFoundError
	assert.ErrorAs(t, err, &nf)

	p, gained, err := svc.NormalizeProgress(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, gained)
	assert.Equal(t, 10, p.Score)
}

func TestFindHabitByName(t *testing.T) {
	svc, _, _ := newMemService(t)
	ctx := context.Background()
	read := seedHabit(t, svc, "u1", &model.Habit{Name: "Read", TargetDays: 21})
	seedHabit(t, svc, "u1", &model.Habit{Name: "Run", TargetDays: 21})

	got, err := svc.FindHabit(ctx, "u1", "read")
	require.NoError(t, err)
	assert.Equal(t, read.ID, got.ID)

	got, err = svc.FindHabit(ctx, "u1", read.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read", got.Name)

	_, err = svc.FindHabit(ctx, "u1", "swim")
	var nf NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDayStateOf(t *testing.T) {
	created := "2024-01-10"
	h := &model.Habit{TargetDays: 3, CreatedOnDayKey: &created, CompletedDates: []string{"2024-01-10"}}

	assert.Equal(t, DayNone, DayStateOf(h, "2024-01-09", "2024-01-12"))
	assert.Equal(t, DayCompleted, DayStateOf(h, "2024-01-10", "2024-01-12"))
	assert.Equal(t, DayMissed, DayStateOf(h, "2024-01-11", "2024-01-12"))
	assert.Equal(t, DayPending, DayStateOf(h, "2024-01-12", "2024-01-12"))
	assert.Equal(t, DayNone, DayStateOf(h, "2024-01-13", "2024-01-12"))

	h.IsIndefinite = true
	assert.Equal(t, DayPending, DayStateOf(h, "2024-01-13", "2024-01-12"))
}
