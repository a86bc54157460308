// Package progression implements the XP, level and streak rules that turn
// ledger activity into game state.
package progression

import (
	"time"

	"financequest/internal/core"
)

// Fixed XP awards for ledger events. Transaction XP is amount-based and
// computed by core.XPForAmount instead.
const (
	GoalCreatedXP      = 10
	GoalContributionXP = 5
	GoalCompletedXP    = 50
	AchievementXP      = 25
	LevelUpBonusXP     = 50

	// StreakDayXP is multiplied by the current streak length when a
	// consecutive-day session is started.
	StreakDayXP = 5
)

// AddXP credits amount to the profile and resolves any level-ups. The
// threshold grows by half after every level. A session that crosses one or
// more levels earns a single flat bonus credited after the loop; the bonus
// itself never triggers another level-up, so XP can sit at or above MaxXP
// until the next award.
func AddXP(p *core.Profile, amount int) bool {
	if amount <= 0 {
		return false
	}
	p.XP += amount
	leveled := false
	for p.XP >= p.MaxXP {
		p.XP -= p.MaxXP
		p.Level++
		p.MaxXP = p.MaxXP * 3 / 2
		leveled = true
	}
	if leveled {
		p.XP += LevelUpBonusXP
	}
	return leveled
}

// StartSession updates the login streak for a session starting at now.
// The gap is whole 24-hour periods of raw elapsed time since the last login,
// not a calendar-date difference: one full day extends the streak and awards
// StreakDayXP per streak day, more than one resets it to 1, and anything
// under 24 hours changes nothing but the login timestamp.
func StartSession(p *core.Profile, now time.Time) {
	defer func() { p.LastLogin = now }()

	if p.LastLogin.IsZero() {
		p.Streak = 1
		return
	}
	days := int(now.Sub(p.LastLogin).Hours() / 24)
	switch {
	case days == 1:
		p.Streak++
		AddXP(p, p.Streak*StreakDayXP)
	case days > 1:
		p.Streak = 1
	}
}
