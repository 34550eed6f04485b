// Package catalog supplies badge definitions to the progression engine.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"habitforge/internal/model"
	"habitforge/internal/storage"
)

// Entry is the on-disk and in-database shape of a badge. A nil XPReward
// takes the source's default reward.
type Entry struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	Icon           string `yaml:"icon"`
	ConditionType  string `yaml:"condition_type"`
	ConditionValue int    `yaml:"condition_value"`
	XPReward       *int   `yaml:"xp_reward,omitempty"`
}

type file struct {
	Badges []Entry `yaml:"badges"`
}

// Build converts entries to definitions in order. Unknown condition types
// and duplicate ids are errors.
func Build(entries []Entry, defaultXP int) ([]model.BadgeDefinition, error) {
	seen := make(map[string]bool, len(entries))
	out := make([]model.BadgeDefinition, 0, len(entries))
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return nil, fmt.Errorf("badge with empty id")
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate badge id %q", id)
		}
		seen[id] = true

		cond, err := model.ParseCondition(e.ConditionType, e.ConditionValue)
		if err != nil {
			return nil, fmt.Errorf("badge %s: %w", id, err)
		}
		xp := defaultXP
		if e.XPReward != nil {
			if *e.XPReward < 0 {
				return nil, fmt.Errorf("badge %s: xp_reward must be >= 0", id)
			}
			xp = *e.XPReward
		}
		name := e.Name
		if name == "" {
			name = id
		}
		out = append(out, model.BadgeDefinition{
			ID:          id,
			Name:        name,
			Description: e.Description,
			Icon:        e.Icon,
			Condition:   cond,
			XPReward:    xp,
		})
	}
	return out, nil
}

// Static serves a fixed list.
type Static struct {
	defs []model.BadgeDefinition
}

func NewStatic(defs []model.BadgeDefinition) *Static {
	return &Static{defs: defs}
}

func (s *Static) Badges(ctx context.Context) ([]model.BadgeDefinition, error) {
	out := make([]model.BadgeDefinition, len(s.defs))
	copy(out, s.defs)
	return out, nil
}

// Default is the built-in catalog used when nothing else is configured.
func Default(defaultXP int) *Static {
	hundred := 100
	defs, err := Build([]Entry{
		{ID: "first_step", Name: "First Step", Description: "Complete a habit for the first time", Icon: "seedling", ConditionType: "total_habits", ConditionValue: 1},
		{ID: "week_warrior", Name: "Week Warrior", Description: "Keep a 7 day streak", Icon: "flame", ConditionType: "streak_days", ConditionValue: 7},
		{ID: "fifty_done", Name: "Half Century", Description: "Log 50 completions", Icon: "medal", ConditionType: "total_habits", ConditionValue: 50},
		{ID: "level_five", Name: "Rising Star", Description: "Reach level 5", Icon: "star", ConditionType: "level_reached", ConditionValue: 5},
		{ID: "month_master", Name: "Month Master", Description: "Keep a 30 day streak", Icon: "crown", ConditionType: "streak_days", ConditionValue: 30, XPReward: &hundred},
	}, defaultXP)
	if err != nil {
		panic(err)
	}
	return NewStatic(defs)
}

// FileSource reads a YAML catalog on every call so edits apply without a
// restart.
type FileSource struct {
	Path      string
	DefaultXP int
}

func (f *FileSource) Badges(ctx context.Context) ([]model.BadgeDefinition, error) {
	entries, err := ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return Build(entries, f.DefaultXP)
}

// ReadFile parses the entries of a YAML catalog.
func ReadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read badge catalog: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse badge catalog %s: %w", path, err)
	}
	return f.Badges, nil
}

// SQLSource reads the catalog from the badge_definitions table. An empty
// table falls through to Fallback when one is set.
type SQLSource struct {
	Repo      *storage.BadgeRepo
	DefaultXP int
	Fallback  interface {
		Badges(ctx context.Context) ([]model.BadgeDefinition, error)
	}
}

func (s *SQLSource) Badges(ctx context.Context) ([]model.BadgeDefinition, error) {
	records, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 && s.Fallback != nil {
		return s.Fallback.Badges(ctx)
	}
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, Entry{
			ID:             r.ID,
			Name:           r.Name,
			Description:    r.Description,
			Icon:           r.Icon,
			ConditionType:  r.ConditionType,
			ConditionValue: r.ConditionValue,
			XPReward:       r.XPReward,
		})
	}
	return Build(entries, s.DefaultXP)
}

// Import validates a YAML catalog and replaces the stored one with it.
func Import(ctx context.Context, repo *storage.BadgeRepo, path string) (int, error) {
	entries, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	if _, err := Build(entries, 0); err != nil {
		return 0, err
	}
	records := make([]storage.BadgeRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, storage.BadgeRecord{
			ID:             strings.TrimSpace(e.ID),
			Name:           e.Name,
			Description:    e.Description,
			Icon:           e.Icon,
			ConditionType:  e.ConditionType,
			ConditionValue: e.ConditionValue,
			XPReward:       e.XPReward,
		})
	}
	if err := repo.ReplaceAll(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
