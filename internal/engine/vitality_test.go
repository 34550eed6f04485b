package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitforge/internal/model"
)

func userLastSeen(day string) *model.UserProgress {
	u := model.NewUserProgress("u1")
	u.LastLoginDayKey = &day
	return u
}

func TestDailyLoginHeartBoundary(t *testing.T) {
	cases := []struct {
		name       string
		today      string
		inventory  []string
		wantHearts int
		wantInv    int
		wantLost   bool
		wantFreeze bool
	}{
		{name: "next day", today: "2024-01-02", wantHearts: 3},
		{name: "one day skipped", today: "2024-01-03", wantHearts: 2, wantLost: true},
		{name: "freeze held", today: "2024-01-03", inventory: []string{"streak_freeze_1", "streak_freeze_1"}, wantHearts: 3, wantInv: 1, wantFreeze: true},
		{name: "other item does not help", today: "2024-01-05", inventory: []string{"potion"}, wantHearts: 2, wantInv: 1, wantLost: true},
		{name: "clock behind", today: "2023-12-30", wantHearts: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := userLastSeen("2024-01-01")
			u.Inventory = tc.inventory

			res, events, err := ProcessDailyLogin(u, tc.today, nil, DefaultRules())
			require.NoError(t, err)
			assert.Equal(t, tc.wantHearts, res.Progress.Hearts)
			assert.Len(t, res.Progress.Inventory, tc.wantInv)
			assert.Equal(t, tc.wantLost, res.HeartLost)
			assert.Equal(t, tc.wantFreeze, res.FreezeConsumed)
			assert.Equal(t, tc.today, *res.Progress.LastLoginDayKey)
			assert.True(t, res.Changed)
			if tc.wantLost || tc.wantFreeze {
				assert.Len(t, events, 1)
			} else {
				assert.Empty(t, events)
			}
		})
	}
}

func TestDailyLoginFatalPenalty(t *testing.T) {
	u := userLastSeen("2024-01-01")
	u.Hearts = 1
	u.Level = 4
	u.Score = 30

	res, events, err := ProcessDailyLogin(u, "2024-01-04", nil, DefaultRules())
	require.NoError(t, err)
	assert.True(t, res.PenaltyApplied)
	assert.Equal(t, 3, res.Progress.Level)
	assert.Equal(t, 3, res.Progress.Hearts)
	assert.Equal(t, 30, res.Progress.Score)
	require.Len(t, events, 1)
	hl := events[0].(*HeartLost)
	assert.True(t, hl.Penalty)
	assert.Equal(t, 0, hl.HeartsAfter)
	assert.Equal(t, 3, hl.LevelAfter)
	assert.Equal(t, 2, hl.MissedDays)
}

func TestDailyLoginPenaltyNeverBelowLevelOne(t *testing.T) {
	u := userLastSeen("2024-01-01")
	u.Hearts = 1

	res, _, err := ProcessDailyLogin(u, "2024-01-10", nil, DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Progress.Level)
	assert.Equal(t, 3, res.Progress.Hearts)
}

func TestDailyLoginIdempotentPerDay(t *testing.T) {
	u := userLastSeen("2024-01-01")
	profile := &model.Profile{DisplayName: "Ada", Email: "ada@example.com", PhotoURL: "https://img/ada"}

	first, _, err := ProcessDailyLogin(u, "2024-01-05", profile, DefaultRules())
	require.NoError(t, err)
	require.Equal(t, 2, first.Progress.Hearts)

	second, events, err := ProcessDailyLogin(first.Progress, "2024-01-05", profile, DefaultRules())
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.False(t, second.Changed)
	assert.Empty(t, events)
	assert.Equal(t, first.Progress, second.Progress)
}

func TestDailyLoginRefreshesMissingProfileSameDay(t *testing.T) {
	u := userLastSeen("2024-01-05")
	u.Hearts = 2
	u.Profile.DisplayName = "Ada"

	res, events, err := ProcessDailyLogin(u, "2024-01-05", &model.Profile{Email: "ada@example.com"}, DefaultRules())
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.True(t, res.ProfileUpdated)
	assert.True(t, res.Changed)
	assert.Empty(t, events)
	assert.Equal(t, "ada@example.com", res.Progress.Profile.Email)
	assert.Equal(t, "Ada", res.Progress.Profile.DisplayName)
	assert.Equal(t, 2, res.Progress.Hearts)
}

func TestDailyLoginFirstLogin(t *testing.T) {
	u := model.NewUserProgress("u1")

	res, events, err := ProcessDailyLogin(u, "2024-01-05", nil, DefaultRules())
	require.NoError(t, err)
	assert.True(t, res.FirstLogin)
	assert.Equal(t, 3, res.Progress.Hearts)
	assert.Empty(t, events)
	require.NotNil(t, res.Progress.LastLoginDayKey)
	assert.Equal(t, "2024-01-05", *res.Progress.LastLoginDayKey)
	assert.Nil(t, u.LastLoginDayKey)
}
