package engine

import (
	"context"
	"fmt"
	"strings"

	"habitforge/internal/model"
	"habitforge/internal/storage"
)

type LeaderboardEntry struct {
	Rank        int
	UserID      string
	DisplayName string
	Level       int
	TotalXP     int
	Badges      int
}

// Leaderboard ranks users by total XP, ties broken by level then id.
// limit <= 0 uses the configured size.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.rules.LeaderboardSize
	}
	top, err := s.store.TopByXP(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(top))
	for i, p := range top {
		name := p.Profile.DisplayName
		if name == "" {
			name = p.UserID
		}
		out = append(out, LeaderboardEntry{
			Rank:        i + 1,
			UserID:      p.UserID,
			DisplayName: name,
			Level:       p.Level,
			TotalXP:     p.TotalXP,
			Badges:      len(p.EarnedBadges),
		})
	}
	return out, nil
}

// GrantItem adds one instance of item to the user's inventory. It is the
// only path that adds inventory.
func (s *Service) GrantItem(ctx context.Context, userID, item string) (*model.UserProgress, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, invalidf("item id is required")
	}
	var out *model.UserProgress
	err = s.run(ctx, "grant_item", func(tx storage.Tx) error {
		p, err := storage.GetOrCreateProgress(ctx, tx, userID)
		if err != nil {
			return err
		}
		p.Inventory = append(p.Inventory, item)
		if err := tx.PutProgress(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("item granted", "user_id", userID, "item", item)
	return out, nil
}

// NormalizeProgress carries any stored score at or past the level boundary
// into level. It returns the levels carried.
func (s *Service) NormalizeProgress(ctx context.Context, userID string) (*model.UserProgress, int, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, 0, err
	}
	var (
		out    *model.UserProgress
		gained int
	)
	err = s.run(ctx, "normalize", func(tx storage.Tx) error {
		p, err := tx.GetProgress(ctx, userID)
		if err != nil {
			return mapNotFound(err, "user", userID)
		}
		next, n := NormalizeProgress(p, s.rules.PointsPerLevel)
		out, gained = next, n
		if n == 0 && next.TotalXP == p.TotalXP {
			return nil
		}
		return tx.PutProgress(ctx, next)
	})
	if err != nil {
		return nil, 0, err
	}
	if gained > 0 {
		s.log.Info("progress normalized", "user_id", userID, "levels", gained)
	}
	return out, gained, nil
}

// ResetProgress puts level, score and total XP back to their starting
// values. Hearts, inventory and badges are kept.
func (s *Service) ResetProgress(ctx context.Context, userID string) (*model.UserProgress, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	var out *model.UserProgress
	err = s.run(ctx, "reset", func(tx storage.Tx) error {
		p, err := tx.GetProgress(ctx, userID)
		if err != nil {
			return mapNotFound(err, "user", userID)
		}
		p.Level = model.DefaultLevel
		p.Score = 0
		p.TotalXP = 0
		if err := tx.PutProgress(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Warn("progress reset", "user_id", userID)
	return out, nil
}

// BadgeStatus pairs a badge with whether the user holds it.
type BadgeStatus struct {
	model.BadgeDefinition
	Earned bool
}

// BadgeBoard lists the catalog in evaluation order with the user's earned
// flags. Held badges that have since left the catalog are appended by id.
func (s *Service) BadgeBoard(ctx context.Context, userID string) ([]BadgeStatus, error) {
	p, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog.Badges(ctx)
	if err != nil {
		return nil, fmt.Errorf("load badge catalog: %w", err)
	}
	out := make([]BadgeStatus, 0, len(catalog))
	known := make(map[string]bool, len(catalog))
	for _, b := range catalog {
		known[b.ID] = true
		out = append(out, BadgeStatus{BadgeDefinition: b, Earned: p.HasBadge(b.ID)})
	}
	for _, id := range p.EarnedBadges {
		if !known[id] {
			out = append(out, BadgeStatus{BadgeDefinition: model.BadgeDefinition{ID: id, Name: id}, Earned: true})
		}
	}
	return out, nil
}
