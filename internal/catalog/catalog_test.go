package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitforge/internal/model"
	"habitforge/internal/storage"
)

const sampleYAML = `
badges:
  - id: first
    name: First
    condition_type: total_habits
    condition_value: 1
  - id: streak3
    condition_type: STREAK_DAYS
    condition_value: 3
    xp_reward: 0
  - id: lvl2
    condition_type: level_reached
    condition_value: 2
    xp_reward: 75
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "badges.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileSourceDefaultsRewardAndKeepsOrder(t *testing.T) {
	src := &FileSource{Path: writeCatalog(t, sampleYAML), DefaultXP: 50}
	defs, err := src.Badges(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, "first", defs[0].ID)
	assert.Equal(t, 50, defs[0].XPReward)
	assert.Equal(t, model.StreakDays{N: 3}, defs[1].Condition)
	assert.Equal(t, 0, defs[1].XPReward)
	assert.Equal(t, "streak3", defs[1].Name)
	assert.Equal(t, 75, defs[2].XPReward)
}

func TestBuildRejectsUnknownAndDuplicate(t *testing.T) {
	_, err := Build([]Entry{{ID: "x", ConditionType: "habits_archived", ConditionValue: 1}}, 50)
	assert.Error(t, err)

	_, err = Build([]Entry{
		{ID: "x", ConditionType: "total_habits", ConditionValue: 1},
		{ID: "x", ConditionType: "level_reached", ConditionValue: 1},
	}, 50)
	assert.Error(t, err)
}

func TestSQLSourceImportAndFallback(t *testing.T) {
	ctx := context.Background()
	s, err := storage.OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	repo := storage.NewBadgeRepo(s.DB())
	src := &SQLSource{Repo: repo, DefaultXP: 50, Fallback: Default(50)}

	defs, err := src.Badges(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first_step", defs[0].ID)

	n, err := Import(ctx, repo, writeCatalog(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	defs, err = src.Badges(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, []string{"first", "streak3", "lvl2"}, []string{defs[0].ID, defs[1].ID, defs[2].ID})
	assert.Equal(t, 50, defs[0].XPReward)
	assert.Equal(t, 75, defs[2].XPReward)
}
