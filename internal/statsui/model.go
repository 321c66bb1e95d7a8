// Package statsui provides the Bubble Tea study dashboard.
package statsui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/studylog/internal/calendar"
	"github.com/verte-zerg/studylog/internal/report"
	"github.com/verte-zerg/studylog/internal/repository"
	"github.com/verte-zerg/studylog/internal/stats"
)

const (
	tabOverview = iota
	tabSubjects
	tabWeak
	tabReport
)

const (
	defaultChartDays = 14
	chartDaysStep    = 7
	maxChartDays     = 92
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source is the read side of the study repository.
type Source interface {
	Snapshot() repository.Document
	Plan() []string
	Today() string
}

// Config selects the benchmark and policies the dashboard analyses with.
type Config struct {
	Benchmarks map[string]report.Benchmark
	Profile    string
	Policy     stats.WeakPolicy
	Weights    stats.Weights
	ChartDays  int
}

// Model implements the Bubble Tea dashboard. It never mutates the source.
type Model struct {
	src Source
	cfg Config

	report report.Report
	daily  []stats.DayHours
	errMsg string

	tabs         []string
	activeTab    int
	viewports    []viewport.Model
	subjectTable table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a dashboard model.
func NewModel(src Source, cfg Config) *Model {
	if cfg.ChartDays <= 0 {
		cfg.ChartDays = defaultChartDays
	}
	cfg.ChartDays = min(cfg.ChartDays, maxChartDays)
	m := &Model{
		src:  src,
		cfg:  cfg,
		tabs: []string{"Overview", "Subjects", "Weak", "Report"},
	}
	m.initInputs()
	m.subjectTable = buildSubjectTable(nil, nil, 0, 1)
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.ChartDays = min(maxChartDays, m.cfg.ChartDays+chartDaysStep)
			m.refreshReport()
			return m, nil
		case "-":
			m.cfg.ChartDays = max(chartDaysStep, m.cfg.ChartDays-chartDaysStep)
			m.refreshReport()
			return m, nil
		case "r":
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabSubjects {
				m.subjectTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabSubjects {
				m.subjectTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabSubjects {
				var cmd tea.Cmd
				m.subjectTable, cmd = m.subjectTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Profile: "),
		newFilterInput("Chart days: "),
	}
	m.setInputsFromConfig()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	m.filterInputs[0].SetValue(m.cfg.Profile)
	m.filterInputs[1].SetValue(strconv.Itoa(m.cfg.ChartDays))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(1, lipgloss.Height(activeNavStyle.Render("X")))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.subjectTable.SetWidth(m.width)
	m.subjectTable.SetHeight(max(1, vpHeight-1))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := (m.activeTab + delta + count) % count
	m.activeTab = next
	if m.activeTab == tabSubjects {
		m.subjectTable.Focus()
	} else {
		m.subjectTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	settings := padLines(m.renderSettingsSummary(), m.width)
	return tabs + "\n" + settings
}

func (m *Model) renderSettingsSummary() string {
	summary := fmt.Sprintf("Settings: profile=%s  chart=%dd  today=%s", m.cfg.Profile, m.cfg.ChartDays, m.report.Date)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Chart: -/=  Reload: r  Settings: /  Quit: q")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabSubjects {
		if len(m.report.Subjects) == 0 {
			return fitLines("No subjects found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.subjectTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

// refreshReport re-reads the source and derives every figure again.
func (m *Model) refreshReport() {
	b, err := report.Lookup(m.cfg.Benchmarks, m.cfg.Profile)
	if err != nil {
		m.fail(err)
		return
	}
	doc := m.src.Snapshot()
	today := m.src.Today()
	r, err := report.Build(report.Data{
		Intervals: doc.Intervals,
		Scores:    doc.ScoreRecords,
		Trackers:  doc.RotationTrackers,
		Streak:    doc.Streak,
		Plan:      m.src.Plan(),
	}, today, report.Options{Benchmark: b, Policy: m.cfg.Policy, Weights: m.cfg.Weights})
	if err != nil {
		m.fail(err)
		return
	}
	daily, err := stats.DailyHours(doc.Intervals, calendar.AddDays(today, -(m.cfg.ChartDays-1)), today)
	if err != nil {
		m.fail(err)
		return
	}
	m.errMsg = ""
	m.report = r
	m.daily = daily
	cols, rows := buildSubjectTableData(r.Subjects, r.Patterns)
	m.subjectTable.SetColumns(cols)
	m.subjectTable.SetRows(rows)
	m.renderTabContents()
}

func (m *Model) fail(err error) {
	m.errMsg = err.Error()
	for i := range m.viewports {
		m.viewports[i].SetContent("Failed to load study data.")
	}
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 || m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, m.daily, width))
	m.viewports[tabWeak].SetContent(renderWeak(m.report))
	m.viewports[tabReport].SetContent(renderText(func(buf *bytes.Buffer) error {
		return report.Render(buf, m.report)
	}))
}

func renderOverview(r report.Report, daily []stats.DayHours, width int) string {
	cards := renderSummaryCards(r, width)
	var buf bytes.Buffer
	title := fmt.Sprintf("Daily hours (last %d days)", len(daily))
	if err := stats.RenderDailyBars(&buf, title, daily, width, true); err != nil {
		return fmt.Sprintf("Failed to render chart: %v", err)
	}
	if err := report.RenderMilestone(&buf, r.Milestone); err != nil {
		return fmt.Sprintf("Failed to render milestone: %v", err)
	}
	return strings.TrimRight(cards+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(r report.Report, width int) string {
	today := r.Today.Session
	week := r.Week.Summary
	cards := []string{
		metricCard("Today", fmt.Sprintf("%.1fh / %.1fh", today.TotalCompletedHours, r.Today.Benchmark.Target)),
		metricCard("This week", fmt.Sprintf("%.1fh", week.TotalCompletedHours)),
		metricCard("Streak", fmt.Sprintf("%d days", r.ActiveStreak)),
		metricCard("Efficiency", fmt.Sprintf("%d (%s)", r.Efficiency.Overall, r.Grade)),
		metricCard("Total", fmt.Sprintf("%.1fh", r.Milestone.Current)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderWeak(r report.Report) string {
	return renderText(func(buf *bytes.Buffer) error {
		if err := stats.RenderWeakSubjects(buf, r.Weak); err != nil {
			return err
		}
		if len(r.Weak) == 0 {
			return nil
		}
		if err := report.RenderPlans(buf, r.Weak, r.Plans); err != nil {
			return err
		}
		_, err := fmt.Fprintln(buf, report.WeakSummary(r.Weak))
		return err
	})
}

func renderText(render func(*bytes.Buffer) error) string {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Sprintf("Failed to render: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func subjectColumns() []table.Column {
	return []table.Column{
		{Title: "Subject", Width: 22},
		{Title: "Done", Width: 8},
		{Title: "Target", Width: 8},
		{Title: "Progress", Width: 9},
		{Title: "Avg Score", Width: 10},
		{Title: "Trend", Width: 10},
		{Title: "Rotations", Width: 10},
		{Title: "Pace", Width: 10},
	}
}

func buildSubjectTable(subjects []stats.SubjectProgress, patterns []report.Pattern, width, height int) table.Model {
	cols, rows := buildSubjectTableData(subjects, patterns)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(subjectTableStyles())
	return t
}

func buildSubjectTableData(subjects []stats.SubjectProgress, patterns []report.Pattern) ([]table.Column, []table.Row) {
	pace := make(map[string]report.Pace, len(patterns))
	for _, p := range patterns {
		pace[p.Subject] = p.Pace
	}
	rows := make([]table.Row, 0, len(subjects))
	for _, s := range subjects {
		score := "-"
		if s.ScoreCount > 0 {
			score = fmt.Sprintf("%.1f%%", s.AverageScore)
		}
		rotations := "-"
		if s.RotationTotal > 0 {
			rotations = fmt.Sprintf("%d/%d", s.RotationsCompleted, s.RotationTotal)
		}
		rows = append(rows, table.Row{
			s.Name,
			fmt.Sprintf("%.1fh", s.ActualHours),
			fmt.Sprintf("%.0fh", s.TargetHours),
			fmt.Sprintf("%.1f%%", s.ProgressPercent),
			score,
			string(s.Trend),
			rotations,
			string(pace[s.Name]),
		})
	}
	return subjectColumns(), rows
}

func subjectTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	profile := strings.TrimSpace(m.filterInputs[0].Value())
	if _, err := report.Lookup(m.cfg.Benchmarks, profile); err != nil {
		return err
	}
	daysInput := strings.TrimSpace(m.filterInputs[1].Value())
	days, err := strconv.Atoi(daysInput)
	if err != nil || days < 1 || days > maxChartDays {
		return fmt.Errorf("invalid chart days (use 1-%d)", maxChartDays)
	}
	m.cfg.Profile = profile
	m.cfg.ChartDays = days
	return nil
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
