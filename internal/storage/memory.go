package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"habitforge/internal/model"
)

// MemoryStore is an in-process store with optimistic transactions: reads
// record the version they saw, writes are buffered, and Commit applies them
// only if every record read or written is still at that version.
type MemoryStore struct {
	mu       sync.Mutex
	progress map[string]*model.UserProgress
	habits   map[string]*model.Habit

	// BeforeCommit, when set, runs at the start of every Commit before the
	// read set is validated. Tests use it to interleave competing writers.
	BeforeCommit func()
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		progress: map[string]*model.UserProgress{},
		habits:   map[string]*model.Habit{},
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memTx{
		s:            s,
		readProgress: map[string]int64{},
		readHabits:   map[string]int64{},
		putProgress:  map[string]*model.UserProgress{},
		putHabits:    map[string]*model.Habit{},
		newProgress:  map[string]bool{},
		newHabits:    map[string]bool{},
	}, nil
}

func (s *MemoryStore) TopByXP(ctx context.Context, limit int) ([]model.UserProgress, error) {
	s.mu.Lock()
	out := make([]model.UserProgress, 0, len(s.progress))
	for _, p := range s.progress {
		out = append(out, *p.Clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalXP != out[j].TotalXP {
			return out[i].TotalXP > out[j].TotalXP
		}
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].UserID < out[j].UserID
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memTx struct {
	s    *MemoryStore
	done bool

	readProgress map[string]int64
	readHabits   map[string]int64
	putProgress  map[string]*model.UserProgress
	putHabits    map[string]*model.Habit
	newProgress  map[string]bool
	newHabits    map[string]bool
}

func (t *memTx) GetProgress(ctx context.Context, userID string) (*model.UserProgress, error) {
	if p, ok := t.putProgress[userID]; ok {
		return p.Clone(), nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	p, ok := t.s.progress[userID]
	if !ok {
		return nil, ErrNotFound
	}
	t.readProgress[userID] = p.Version
	return p.Clone(), nil
}

func (t *memTx) InsertProgress(ctx context.Context, p *model.UserProgress) error {
	p.Version = 1
	p.UpdatedAt = time.Now().UTC()
	t.putProgress[p.UserID] = p.Clone()
	t.newProgress[p.UserID] = true
	return nil
}

func (t *memTx) PutProgress(ctx context.Context, p *model.UserProgress) error {
	if prev, ok := t.putProgress[p.UserID]; ok && prev.Version != p.Version {
		return fmt.Errorf("progress %s version %d: %w", p.UserID, p.Version, ErrConflict)
	}
	if _, ok := t.putProgress[p.UserID]; !ok {
		if _, read := t.readProgress[p.UserID]; !read {
			t.readProgress[p.UserID] = p.Version
		}
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	t.putProgress[p.UserID] = p.Clone()
	return nil
}

func (t *memTx) GetHabit(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	if h, ok := t.putHabits[habitID]; ok && h.UserID == userID {
		return h.Clone(), nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	h, ok := t.s.habits[habitID]
	if !ok || h.UserID != userID {
		return nil, ErrNotFound
	}
	t.readHabits[habitID] = h.Version
	return h.Clone(), nil
}

func (t *memTx) ListHabits(ctx context.Context, userID string) ([]model.Habit, error) {
	t.s.mu.Lock()
	var out []model.Habit
	for id, h := range t.s.habits {
		if h.UserID != userID {
			continue
		}
		if pending, ok := t.putHabits[id]; ok {
			out = append(out, *pending.Clone())
			continue
		}
		t.readHabits[id] = h.Version
		out = append(out, *h.Clone())
	}
	t.s.mu.Unlock()

	for id, h := range t.putHabits {
		if t.newHabits[id] && h.UserID == userID {
			out = append(out, *h.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) InsertHabit(ctx context.Context, h *model.Habit) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Status == "" {
		h.Status = model.HabitActive
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	if h.CompletedDates == nil {
		h.CompletedDates = []string{}
	}
	h.Version = 1
	t.putHabits[h.ID] = h.Clone()
	t.newHabits[h.ID] = true
	return nil
}

func (t *memTx) PutHabit(ctx context.Context, h *model.Habit) error {
	if prev, ok := t.putHabits[h.ID]; ok && prev.Version != h.Version {
		return fmt.Errorf("habit %s version %d: %w", h.ID, h.Version, ErrConflict)
	}
	if _, ok := t.putHabits[h.ID]; !ok {
		if _, read := t.readHabits[h.ID]; !read {
			t.readHabits[h.ID] = h.Version
		}
	}
	h.Version++
	t.putHabits[h.ID] = h.Clone()
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return fmt.Errorf("commit tx: already finished")
	}
	t.done = true

	if t.s.BeforeCommit != nil {
		t.s.BeforeCommit()
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id, v := range t.readProgress {
		cur, ok := t.s.progress[id]
		if !ok || cur.Version != v {
			return fmt.Errorf("progress %s changed: %w", id, ErrConflict)
		}
	}
	for id, v := range t.readHabits {
		cur, ok := t.s.habits[id]
		if !ok || cur.Version != v {
			return fmt.Errorf("habit %s changed: %w", id, ErrConflict)
		}
	}
	for id := range t.newProgress {
		if _, exists := t.s.progress[id]; exists {
			return fmt.Errorf("progress %s already exists: %w", id, ErrConflict)
		}
	}
	for id := range t.newHabits {
		if _, exists := t.s.habits[id]; exists {
			return fmt.Errorf("habit %s already exists: %w", id, ErrConflict)
		}
	}

	for id, p := range t.putProgress {
		t.s.progress[id] = p.Clone()
	}
	for id, h := range t.putHabits {
		t.s.habits[id] = h.Clone()
	}
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}
