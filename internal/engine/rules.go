package engine

// Rules are the tunable progression constants.
type Rules struct {
	XPPerCompletion  int
	PointsPerLevel   int
	MaxHearts        int
	StreakFreezeItem string
	DefaultBadgeXP   int
	LeaderboardSize  int
}

func DefaultRules() Rules {
	return Rules{
		XPPerCompletion:  10,
		PointsPerLevel:   100,
		MaxHearts:        3,
		StreakFreezeItem: "streak_freeze_1",
		DefaultBadgeXP:   50,
		LeaderboardSize:  50,
	}
}

// withDefaults fills unset fields so a zero Rules behaves like DefaultRules.
func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if r.XPPerCompletion <= 0 {
		r.XPPerCompletion = d.XPPerCompletion
	}
	if r.PointsPerLevel <= 0 {
		r.PointsPerLevel = d.PointsPerLevel
	}
	if r.MaxHearts <= 0 {
		r.MaxHearts = d.MaxHearts
	}
	if r.StreakFreezeItem == "" {
		r.StreakFreezeItem = d.StreakFreezeItem
	}
	if r.DefaultBadgeXP < 0 {
		r.DefaultBadgeXP = 0
	}
	if r.LeaderboardSize <= 0 {
		r.LeaderboardSize = d.LeaderboardSize
	}
	return r
}
