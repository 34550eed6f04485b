package engine

import (
	"testing"

	"habitforge/internal/model"
)

func TestAddXPCarry(t *testing.T) {
	p := model.NewUserProgress("u1")
	p.Score = 95
	p.TotalXP = 95

	if got := AddXP(p, 10, 100); got != 1 {
		t.Fatalf("AddXP gained=%d, want 1", got)
	}
	if p.Level != 2 || p.Score != 5 || p.TotalXP != 105 {
		t.Fatalf("after carry level=%d score=%d total=%d, want 2/5/105", p.Level, p.Score, p.TotalXP)
	}

	if got := AddXP(p, 250, 100); got != 2 {
		t.Fatalf("AddXP(250) gained=%d, want 2", got)
	}
	if p.Level != 4 || p.Score != 55 {
		t.Fatalf("multi carry level=%d score=%d, want 4/55", p.Level, p.Score)
	}
}

func TestAddXPFloorsAtZero(t *testing.T) {
	p := model.NewUserProgress("u1")
	p.Level = 3
	p.Score = 5
	p.TotalXP = 5

	if got := AddXP(p, -10, 100); got != 0 {
		t.Fatalf("AddXP(-10) gained=%d, want 0", got)
	}
	if p.Score != 0 || p.TotalXP != 0 || p.Level != 3 {
		t.Fatalf("floor got level=%d score=%d total=%d, want 3/0/0", p.Level, p.Score, p.TotalXP)
	}
}

func TestNormalizeProgressCarriesStoredScore(t *testing.T) {
	p := model.NewUserProgress("u1")
	p.Level = 2
	p.Score = 340
	p.TotalXP = 440

	next, gained := NormalizeProgress(p, 100)
	if gained != 3 {
		t.Fatalf("gained=%d, want 3", gained)
	}
	if next.Level != 5 || next.Score != 40 || next.TotalXP != 440 {
		t.Fatalf("normalized level=%d score=%d total=%d, want 5/40/440", next.Level, next.Score, next.TotalXP)
	}
	if p.Score != 340 {
		t.Fatalf("input mutated: score=%d", p.Score)
	}
}

func TestNormalizeProgressBackfillsMissingTotal(t *testing.T) {
	p := model.NewUserProgress("u1")
	p.Level = 4
	p.Score = 30

	next, _ := NormalizeProgress(p, 100)
	if next.TotalXP != 330 {
		t.Fatalf("TotalXP=%d, want 330", next.TotalXP)
	}
}
