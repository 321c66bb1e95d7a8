// Package tui provides the Bubble Tea study timer.
package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/model"
	statsPkg "github.com/verte-zerg/studylog/internal/stats"
)

// Recorder stores finished sessions and answers the footer's questions.
type Recorder interface {
	AddInterval(in model.IntervalInput) (model.Interval, error)
	IntervalsOn(day string) []model.Interval
	Streak() model.StreakState
}

// Config holds the timer settings.
type Config struct {
	Subject     string
	Note        string
	DailyTarget float64
	Clock       calendar.Clock
}

type phase int

const (
	phaseSubject phase = iota
	phaseRunning
)

type tickMsg time.Time

// Model implements the Bubble Tea timer UI.
type Model struct {
	config   Config
	recorder Recorder
	clock    calendar.Clock

	width  int
	height int

	phase     phase
	subject   textinput.Model
	startedAt time.Time
	now       time.Time

	lastSaved  []model.Interval
	errMsg     string
	todayHours float64
	streak     int
}

var (
	clockStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	subjectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	savedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a timer model. A preset subject starts the clock at once.
func NewModel(cfg Config, rec Recorder) *Model {
	if cfg.Clock == nil {
		cfg.Clock = calendar.System
	}
	input := textinput.New()
	input.Prompt = "Subject: "
	input.Placeholder = "민법"
	input.CharLimit = 64
	input.SetValue(cfg.Subject)
	m := &Model{
		config:   cfg,
		recorder: rec,
		clock:    cfg.Clock,
		subject:  input,
	}
	m.loadFooterStats()
	if strings.TrimSpace(cfg.Subject) != "" {
		m.start()
	} else {
		m.subject.Focus()
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.phase == phaseRunning {
		return tick()
	}
	return textinput.Blink
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.phase != phaseRunning {
			return m, nil
		}
		m.now = m.clock.Now()
		return m, tick()
	case tea.KeyMsg:
		if m.phase == phaseSubject {
			return m.updateSubject(msg)
		}
		return m.updateRunning(msg)
	}
	return m, nil
}

func (m *Model) updateSubject(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		if strings.TrimSpace(m.subject.Value()) == "" {
			m.errMsg = "subject is required"
			return m, nil
		}
		m.start()
		return m, tick()
	}
	var cmd tea.Cmd
	m.subject, cmd = m.subject.Update(msg)
	return m, cmd
}

func (m *Model) updateRunning(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.stop()
		return m, tea.Quit
	case tea.KeyEsc:
		m.phase = phaseSubject
		m.errMsg = "session discarded"
		return m, m.subject.Focus()
	case tea.KeyEnter:
		m.stop()
		return m, m.subject.Focus()
	}
	switch msg.String() {
	case "s":
		m.stop()
		return m, m.subject.Focus()
	case "q":
		m.stop()
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var lines []string
	switch m.phase {
	case phaseRunning:
		lines = append(lines,
			subjectStyle.Render(strings.TrimSpace(m.subject.Value())),
			clockStyle.Render(formatElapsed(m.elapsed())),
			hintStyle.Render(fmt.Sprintf("since %s  enter/s: save  esc: discard  q: save and quit", m.startedAt.Format("15:04"))),
		)
	default:
		lines = append(lines, m.subject.View(), hintStyle.Render("enter: start  esc: quit"))
	}
	for _, iv := range m.lastSaved {
		lines = append(lines, savedStyle.Render(fmt.Sprintf("Saved %s %s %s-%s (%.2fh)", iv.Date, iv.Subject, iv.StartTime, iv.EndTime, iv.DurationHours)))
	}
	if m.errMsg != "" {
		lines = append(lines, errorStyle.Render(m.errMsg))
	}
	content := strings.Join(lines, "\n")
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, m.renderFooter())
	return body + "\n" + footerLine
}

func (m *Model) start() {
	m.phase = phaseRunning
	m.errMsg = ""
	m.startedAt = m.clock.Now()
	m.now = m.startedAt
	m.subject.Blur()
}

func (m *Model) elapsed() time.Duration {
	if m.now.Before(m.startedAt) {
		return 0
	}
	return m.now.Sub(m.startedAt)
}

// stop records the running session as completed intervals.
func (m *Model) stop() {
	m.phase = phaseSubject
	end := m.clock.Now()
	inputs := SessionIntervals(m.subject.Value(), m.config.Note, m.startedAt, end)
	if len(inputs) == 0 {
		m.errMsg = "session shorter than a minute, not saved"
		return
	}
	m.errMsg = ""
	m.lastSaved = m.lastSaved[:0]
	for _, in := range inputs {
		iv, err := m.recorder.AddInterval(in)
		if err != nil {
			m.errMsg = fmt.Sprintf("failed to save session: %v", err)
			logErrf("failed to save session: %v\n", err)
			break
		}
		m.lastSaved = append(m.lastSaved, iv)
	}
	m.loadFooterStats()
}

func (m *Model) loadFooterStats() {
	today := calendar.Today(m.clock)
	m.todayHours = statsPkg.SessionFor(m.recorder.IntervalsOn(today), today).TotalCompletedHours
	m.streak = statsPkg.ActiveStreak(m.recorder.Streak(), today)
}

func (m *Model) renderFooter() string {
	today := fmt.Sprintf("Today %.1fh", m.todayHours)
	if m.config.DailyTarget > 0 {
		today = fmt.Sprintf("Today %.1fh / %.1fh", m.todayHours, m.config.DailyTarget)
	}
	segments := []string{today, fmt.Sprintf("Streak %d days", m.streak)}
	if m.phase == phaseRunning {
		segments = append(segments, fmt.Sprintf("Session %.2fh", m.elapsed().Hours()))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	mnt := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, mnt, s)
}

// SessionIntervals turns a timed session into completed interval inputs, one
// per calendar day it touches. Times are truncated to the minute; segments
// shorter than a minute are dropped. A segment running past midnight ends at
// 23:59 and carries its exact duration.
func SessionIntervals(subject, note string, start, end time.Time) []model.IntervalInput {
	subject = strings.TrimSpace(subject)
	start = start.Truncate(time.Minute)
	end = end.Truncate(time.Minute)
	if subject == "" || !end.After(start) {
		return nil
	}
	var out []model.IntervalInput
	for segStart := start; segStart.Before(end); {
		y, mo, d := segStart.Date()
		nextDay := time.Date(y, mo, d+1, 0, 0, 0, 0, segStart.Location())
		segEnd := end
		crossesMidnight := !end.Before(nextDay)
		if crossesMidnight {
			segEnd = nextDay
		}
		in := model.IntervalInput{
			Date:      calendar.Format(segStart),
			Subject:   subject,
			StartTime: segStart.Format("15:04"),
			EndTime:   segEnd.Format("15:04"),
			Completed: true,
			Note:      note,
		}
		if crossesMidnight {
			in.EndTime = "23:59"
			in.DurationHours = segEnd.Sub(segStart).Hours()
		}
		if in.StartTime < in.EndTime {
			out = append(out, in)
		}
		segStart = nextDay
	}
	return out
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
