package engine

import "habitforge/internal/model"

// AddXP applies delta to score and total XP, each floored at zero, then
// carries whole levels out of score one at a time. It returns the number of
// levels gained.
func AddXP(p *model.UserProgress, delta, pointsPerLevel int) int {
	if pointsPerLevel <= 0 {
		pointsPerLevel = DefaultRules().PointsPerLevel
	}

	p.Score += delta
	if p.Score < 0 {
		p.Score = 0
	}
	p.TotalXP += delta
	if p.TotalXP < 0 {
		p.TotalXP = 0
	}

	gained := 0
	for p.Score >= pointsPerLevel {
		p.Level++
		p.Score -= pointsPerLevel
		gained++
	}
	if p.Level < model.DefaultLevel {
		p.Level = model.DefaultLevel
	}
	return gained
}

// NormalizeProgress repairs a record whose stored score was pushed past the
// level boundary out of band. Total XP is only backfilled when it was never
// recorded; an existing total is left alone.
func NormalizeProgress(p *model.UserProgress, pointsPerLevel int) (*model.UserProgress, int) {
	next := p.Clone()
	gained := AddXP(next, 0, pointsPerLevel)
	if next.TotalXP == 0 {
		next.TotalXP = DerivedTotalXP(next.Level, next.Score, pointsPerLevel)
	}
	return next, gained
}

// DerivedTotalXP is the lifetime total implied by level and score alone,
// for records that predate total XP tracking.
func DerivedTotalXP(level, score, pointsPerLevel int) int {
	if level < model.DefaultLevel {
		level = model.DefaultLevel
	}
	return (level-1)*pointsPerLevel + score
}
