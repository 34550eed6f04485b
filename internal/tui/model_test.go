package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"habitforge/internal/engine"
	"habitforge/internal/platform/clock"
	"habitforge/internal/storage"
)

func newBoard(t *testing.T) (boardModel, *engine.Service) {
	t.Helper()
	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := engine.NewService(storage.NewMemoryStore(), engine.WithClock(clk), engine.WithLocation(time.UTC))
	return newBoardModel(context.Background(), svc, "u1"), svc
}

// step applies msg and then runs any returned command once, feeding its
// message back in.
func step(t *testing.T, m boardModel, msg tea.Msg) boardModel {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(boardModel)
	if cmd != nil {
		if follow := cmd(); follow != nil {
			next, _ = m.Update(follow)
			m = next.(boardModel)
		}
	}
	return m
}

func TestBoardToggleToday(t *testing.T) {
	m, svc := newBoard(t)
	ctx := context.Background()
	if _, err := svc.CreateHabit(ctx, "u1", engine.CreateHabitInput{Name: "Read"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	m = step(t, m, m.Init()())
	if m.loading || len(m.habits) != 1 {
		t.Fatalf("expected one loaded habit, got %d (loading=%v)", len(m.habits), m.loading)
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m = next.(boardModel)
	if cmd == nil {
		t.Fatalf("expected toggle command")
	}
	m = step(t, m, cmd())
	if !strings.Contains(m.lastLog, "+10 XP") {
		t.Fatalf("unexpected log %q", m.lastLog)
	}

	p, err := svc.Progress(ctx, "u1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Score != 10 {
		t.Fatalf("score=%d, want 10", p.Score)
	}
	if !strings.Contains(m.View(), "Read") {
		t.Fatalf("view missing habit row")
	}
}

func TestBoardArchiveNeedsFinishedGoal(t *testing.T) {
	m, svc := newBoard(t)
	ctx := context.Background()
	if _, err := svc.CreateHabit(ctx, "u1", engine.CreateHabitInput{Name: "Run", TargetDays: 3}); err != nil {
		t.Fatalf("create: %v", err)
	}
	m = step(t, m, m.Init()())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m = next.(boardModel)
	if cmd != nil {
		t.Fatalf("archive should be refused before the goal")
	}
	if !strings.Contains(m.lastLog, "needs 3 days") {
		t.Fatalf("unexpected log %q", m.lastLog)
	}
}

func TestBoardSelectionStaysInRange(t *testing.T) {
	m, _ := newBoard(t)
	m = step(t, m, m.Init()())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(boardModel)
	if m.selected != 0 {
		t.Fatalf("selected=%d on empty board", m.selected)
	}
	if _, ok := m.current(); ok {
		t.Fatalf("expected no current habit")
	}
}

func TestBoardLoadRunsDailyCheckIn(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := engine.NewService(storage.NewMemoryStore(), engine.WithClock(clk), engine.WithLocation(time.UTC))
	m := newBoardModel(context.Background(), svc, "u1")

	m = step(t, m, m.Init()())
	if m.progress == nil || m.progress.Hearts != 3 {
		t.Fatalf("expected full hearts after first load, got %+v", m.progress)
	}

	clk.AdvanceDays(3)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if m.progress.Hearts != 2 {
		t.Fatalf("hearts=%d after skipped days, want 2", m.progress.Hearts)
	}
	if !strings.Contains(m.lastLog, "Lost a heart") {
		t.Fatalf("unexpected log %q", m.lastLog)
	}

	// A second refresh the same day costs nothing more.
	m = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if m.progress.Hearts != 2 {
		t.Fatalf("hearts=%d after same-day refresh, want 2", m.progress.Hearts)
	}
}
