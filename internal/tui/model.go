package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"habitforge/internal/dates"
	"habitforge/internal/engine"
	"habitforge/internal/model"
	"habitforge/internal/ui"
)

// calendarDays is how many trailing days each habit row shows.
const calendarDays = 7

type boardModel struct {
	ctx    context.Context
	svc    *engine.Service
	userID string

	width  int
	height int

	progress *model.UserProgress
	habits   []engine.HabitView
	badges   []engine.BadgeStatus
	today    string

	selected int

	lastLog string
	loading bool
	err     error
}

type loadedMsg struct {
	login    *engine.LoginResult
	progress *model.UserProgress
	habits   []engine.HabitView
	badges   []engine.BadgeStatus
	today    string
	err      error
}

type toggledMsg struct {
	name string
	out  *engine.ToggleOutcome
	err  error
}

type archivedMsg struct {
	name string
	err  error
}

func newBoardModel(ctx context.Context, svc *engine.Service, userID string) boardModel {
	return boardModel{
		ctx:     ctx,
		svc:     svc,
		userID:  userID,
		loading: true,
		lastLog: "Loaded.",
	}
}

func (m boardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m boardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		// Opening or refreshing the board is a session start; the check-in
		// is a no-op after the first run of the day.
		login, err := m.svc.DailyLogin(m.ctx, m.userID, nil)
		if err != nil {
			return loadedMsg{err: err}
		}
		p, err := m.svc.Progress(m.ctx, m.userID)
		if err != nil {
			return loadedMsg{err: err}
		}
		habits, err := m.svc.ListHabits(m.ctx, m.userID, true)
		if err != nil {
			return loadedMsg{err: err}
		}
		badges, err := m.svc.BadgeBoard(m.ctx, m.userID)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{login: login, progress: p, habits: habits, badges: badges, today: m.svc.Today()}
	}
}

func (m boardModel) toggleCmd(h engine.HabitView) tea.Cmd {
	return func() tea.Msg {
		out, err := m.svc.ToggleHabit(m.ctx, m.userID, h.ID, "")
		return toggledMsg{name: h.Name, out: out, err: err}
	}
}

func (m boardModel) archiveCmd(h engine.HabitView) tea.Cmd {
	return func() tea.Msg {
		_, err := m.svc.ArchiveHabit(m.ctx, m.userID, h.ID)
		return archivedMsg{name: h.Name, err: err}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			m.lastLog = "Load failed: " + msg.err.Error()
			return m, nil
		}
		m.progress = msg.progress
		m.habits = msg.habits
		m.badges = msg.badges
		m.today = msg.today
		m.clampSelection()
		if note := describeLogin(msg.login); note != "" {
			m.lastLog = note
		} else if m.lastLog == "Loaded." || strings.HasPrefix(m.lastLog, "Refresh") {
			m.lastLog = fmt.Sprintf("Refreshed at %s.", time.Now().Format("15:04:05"))
		}
		return m, nil
	case toggledMsg:
		if msg.out == nil {
			m.lastLog = "Toggle failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = describeToggle(msg.name, msg.out)
		if msg.err != nil {
			m.lastLog += " (badge check failed: " + msg.err.Error() + ")"
		}
		return m, m.loadCmd()
	case archivedMsg:
		if msg.err != nil {
			m.lastLog = "Archive failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = fmt.Sprintf("%s Archived %s.", ui.IconFlag, msg.name)
		return m, m.loadCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			m.lastLog = "Refreshing…"
			return m, m.loadCmd()
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.selected < len(m.habits)-1 {
				m.selected++
			}
			return m, nil
		case " ", "enter", "c":
			h, ok := m.current()
			if !ok {
				return m, nil
			}
			m.lastLog = fmt.Sprintf("Toggling %s…", h.Name)
			return m, m.toggleCmd(h)
		case "a":
			h, ok := m.current()
			if !ok {
				return m, nil
			}
			if !h.IsIndefinite && h.Remaining > 0 {
				m.lastLog = fmt.Sprintf("%s still needs %d days.", h.Name, h.Remaining)
				return m, nil
			}
			return m, m.archiveCmd(h)
		}
	}
	return m, nil
}

func (m *boardModel) clampSelection() {
	if m.selected >= len(m.habits) {
		m.selected = len(m.habits) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m boardModel) current() (engine.HabitView, bool) {
	if m.selected < 0 || m.selected >= len(m.habits) {
		return engine.HabitView{}, false
	}
	return m.habits[m.selected], true
}

// describeLogin reports what today's check-in cost, or "" when it cost
// nothing.
func describeLogin(res *engine.LoginResult) string {
	switch {
	case res == nil || res.AlreadyProcessed:
		return ""
	case res.PenaltyApplied:
		return fmt.Sprintf("%s Out of hearts: level dropped to %d, hearts refilled.", ui.IconBroken, res.Progress.Level)
	case res.HeartLost:
		return fmt.Sprintf("%s Lost a heart after %d days away (%d left).", ui.IconBroken, res.ElapsedDays, res.Progress.Hearts)
	case res.FreezeConsumed:
		return fmt.Sprintf("%s Streak freeze used after %d days away.", ui.IconFreeze, res.ElapsedDays)
	default:
		return ""
	}
}

func describeToggle(name string, out *engine.ToggleOutcome) string {
	t := out.Toggle
	if t.WasCompleted {
		return fmt.Sprintf("%s Unmarked %s (%d XP)", ui.IconUndo, name, t.Delta)
	}
	line := fmt.Sprintf("%s %s +%d XP", ui.IconDone, name, t.Delta)
	if t.LeveledUp {
		line += fmt.Sprintf(" | %s %d → %d", ui.BadgeLevelUp, t.LevelBefore, t.Progress.Level)
	}
	if t.GoalReached {
		line += fmt.Sprintf(" | %s goal reached, press a to archive", ui.IconFlag)
	}
	if out.Award != nil {
		for _, b := range out.Award.Earned {
			line += fmt.Sprintf(" | %s %s", ui.IconTrophy, b.Name)
		}
	}
	return line
}

func (m boardModel) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit.\n"
	}

	header := m.renderHeader()
	sidebar := m.renderSidebar()
	main := m.renderMain()
	footer := "\n" + m.lastLog

	leftW := 26
	if m.width > 0 {
		maxLeft := m.width / 2
		if maxLeft < leftW {
			leftW = maxLeft
		}
		if leftW < 18 {
			leftW = 18
		}
	}

	linesLeft := strings.Split(sidebar, "\n")
	linesRight := strings.Split(main, "\n")
	rows := max(len(linesLeft), len(linesRight))

	var body strings.Builder
	for i := 0; i < rows; i++ {
		l, r := "", ""
		if i < len(linesLeft) {
			l = linesLeft[i]
		}
		if i < len(linesRight) {
			r = linesRight[i]
		}
		body.WriteString(padRight(l, leftW))
		body.WriteString("  ")
		body.WriteString(r)
		body.WriteString("\n")
	}

	return header + "\n" + body.String() + footer
}

func (m boardModel) renderHeader() string {
	if m.progress == nil {
		return "habitforge: loading…"
	}
	ppl := m.svc.Rules().PointsPerLevel
	p := m.progress
	return fmt.Sprintf("habitforge | %s | Level %d %s %d/%d | XP %d | %s",
		displayName(p), p.Level, ui.ProgressBar(p.Score, ppl, 20), p.Score, ppl, p.TotalXP,
		ui.Hearts(p.Hearts, m.svc.Rules().MaxHearts))
}

func displayName(p *model.UserProgress) string {
	if p.Profile.DisplayName != "" {
		return p.Profile.DisplayName
	}
	return p.UserID
}

func (m boardModel) renderSidebar() string {
	lines := []string{"Badges"}
	earned := 0
	for _, b := range m.badges {
		if !b.Earned {
			continue
		}
		earned++
		icon := b.Icon
		if icon == "" {
			icon = ui.IconBadge
		}
		lines = append(lines, fmt.Sprintf("%s %s", icon, b.Name))
	}
	if earned == 0 {
		lines = append(lines, "(none yet)")
	}
	lines = append(lines, fmt.Sprintf("%d/%d earned", earned, len(m.badges)))
	if m.progress != nil && len(m.progress.Inventory) > 0 {
		lines = append(lines, "", "Inventory")
		for _, item := range m.progress.Inventory {
			lines = append(lines, "- "+item)
		}
	}
	lines = append(lines,
		"",
		"Keys",
		"- ↑/↓ or j/k: move",
		"- space: toggle today",
		"- a: archive finished",
		"- r: refresh",
		"- q: quit",
	)
	return strings.Join(lines, "\n")
}

func (m boardModel) renderMain() string {
	if m.loading {
		return "Loading…"
	}
	out := []string{"Habits  " + m.calendarHeader()}
	if len(m.habits) == 0 {
		out = append(out, "(no active habits, add one with hf habit add)")
		return strings.Join(out, "\n")
	}
	for i, h := range m.habits {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		goal := "∞"
		if !h.IsIndefinite {
			goal = fmt.Sprintf("%d/%d", len(h.CompletedDates), h.TargetDays)
		}
		out = append(out, fmt.Sprintf("%s%s %s %s %s", cursor, m.calendarRow(&h.Habit), padRight(h.Name, 20), goal, ui.Streak(h.Streak)))
	}
	return strings.Join(out, "\n")
}

// window returns the trailing calendar day keys ending today.
func (m boardModel) window() []string {
	end, err := dates.ParseDayKey(m.today)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, calendarDays)
	for i := calendarDays - 1; i >= 0; i-- {
		keys = append(keys, dates.DayKey(end.AddDate(0, 0, -i)))
	}
	return keys
}

func (m boardModel) calendarHeader() string {
	var b strings.Builder
	for _, k := range m.window() {
		b.WriteString(k[len(k)-1:])
	}
	return b.String()
}

func (m boardModel) calendarRow(h *model.Habit) string {
	var b strings.Builder
	for _, k := range m.window() {
		b.WriteString(ui.DayCell(string(engine.DayStateOf(h, k, m.today))))
	}
	return b.String()
}

func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
