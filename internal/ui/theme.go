package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// habitforge theme (CLI + TUI).

const (
	IconHabit   = "🌱"
	IconSparkle = "✨"
	IconPlus    = "➕"
	IconDone    = "✅"
	IconTrophy  = "🏆"
	IconBolt    = "⚡"
	IconHeart   = "❤️"
	IconBroken  = "🖤"
	IconFreeze  = "🧊"
	IconFire    = "🔥"
	IconWarn    = "⚠️"
	IconError   = "🧨"
	IconUndo    = "↩️"
	IconFlag    = "🏁"
	IconBadge   = "🎖️"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)

	Panel       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	SelectedRow = lipgloss.NewStyle().Bold(true).Foreground(cGold).Background(cPrimary)

	BadgeLevelUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// Hearts renders current out of max as filled and empty hearts.
func Hearts(current, max int) string {
	if current < 0 {
		current = 0
	}
	if current > max {
		current = max
	}
	return Bad.Render(strings.Repeat("♥", current)) + Muted.Render(strings.Repeat("♡", max-current))
}

// Streak renders a streak count, highlighted once it passes a week.
func Streak(days int) string {
	switch {
	case days == 0:
		return Muted.Render("no streak")
	case days >= 7:
		return Gold.Render(fmt.Sprintf("%s %dd", IconFire, days))
	default:
		return Warn.Render(fmt.Sprintf("%dd", days))
	}
}

func StatusText(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active":
		return H2.Render("active")
	case "completed":
		return Good.Render("completed")
	default:
		return Muted.Render(status)
	}
}

// DayCell renders one calendar cell for the board and list views.
func DayCell(state string) string {
	switch state {
	case "completed":
		return Good.Render("■")
	case "missed":
		return Bad.Render("□")
	case "pending":
		return Warn.Render("·")
	default:
		return Muted.Render(" ")
	}
}

// ProgressBar renders value/total as a fixed-width bar.
func ProgressBar(value int, total int, width int) string {
	if total <= 0 {
		total = 1
	}
	if width <= 3 {
		width = 3
	}
	if value < 0 {
		value = 0
	}
	if value > total {
		value = total
	}
	filled := int(float64(value) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
