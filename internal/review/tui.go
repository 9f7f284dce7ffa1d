// Package review is an interactive terminal browser over persisted jobs and
// the alert matches recorded for them.
package review

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aguntuk/jobora/internal/model"
)

// Lines per item in the list views (title + subtitle + blank separator).
const itemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemTitleStyle = lipgloss.NewStyle().
			Bold(true)

	itemSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	fraudStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// MatchLister provides the recorded matches for one job.
type MatchLister interface {
	ListMatchesForJob(ctx context.Context, jobID string) ([]model.AlertMatch, error)
}

// matchesLoadedMsg is sent when an async match lookup completes.
type matchesLoadedMsg struct {
	jobID   string
	matches []model.AlertMatch
	err     error
}

type reviewModel struct {
	jobs    []model.JobRecord
	matches []model.AlertMatch // matches of the selected job
	lister  MatchLister

	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=jobs, 1=matches
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view            viewState
	detailViewport  viewport.Model
	showDescription bool
	matchError      string
}

func (m reviewModel) Init() tea.Cmd {
	if len(m.jobs) > 0 {
		return m.loadMatchesCmd(m.jobs[0].ID)
	}
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case matchesLoadedMsg:
		// Ignore stale answers from a previous cursor position.
		if len(m.jobs) == 0 || m.jobs[m.leftCursor].ID != msg.jobID {
			return m, nil
		}
		if msg.err != nil {
			m.matchError = fmt.Sprintf("failed to load matches: %v", msg.err)
			m.matches = nil
		} else {
			m.matchError = ""
			m.matches = msg.matches
		}
		m.rightCursor = 0
		m.recalcContent()
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		return m.moveCursor(-1)
	case "down", "j":
		return m.moveCursor(1)
	case "enter":
		return m.openDetailView()
	case "o":
		if len(m.jobs) > 0 {
			openURL(m.jobs[m.leftCursor].SourceURL)
		}
		return m, nil
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if len(m.jobs) > 0 {
			openURL(m.jobs[m.leftCursor].SourceURL)
		}
		return m, nil
	case "r":
		m.showDescription = !m.showDescription
		m.detailViewport.SetContent(m.renderDetail())
		m.detailViewport.SetYOffset(0)
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m reviewModel) moveCursor(delta int) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.activePane == 0 {
		prev := m.leftCursor
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.jobs)-1, 0))
		if m.leftCursor != prev {
			cmd = m.loadMatchesCmd(m.jobs[m.leftCursor].ID)
		}
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.matches)-1, 0))
	}
	m.recalcContent()
	m.ensureCursorVisible()
	return m, cmd
}

func (m reviewModel) loadMatchesCmd(jobID string) tea.Cmd {
	lister := m.lister
	return func() tea.Msg {
		matches, err := lister.ListMatchesForJob(context.Background(), jobID)
		return matchesLoadedMsg{jobID: jobID, matches: matches, err: err}
	}
}

func (m *reviewModel) ensureCursorVisible() {
	var vp *viewport.Model
	var cursor int
	if m.activePane == 0 {
		vp = &m.leftViewport
		cursor = m.leftCursor
	} else {
		vp = &m.rightViewport
		cursor = m.rightCursor
	}

	cursorTop := cursor * itemHeight
	cursorBottom := cursorTop + itemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	if len(m.jobs) == 0 {
		return m, nil
	}
	m.view = viewDetail
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.leftViewport.SetContent(renderJobItems(m.jobs, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderMatchItems(m.matches, m.matchError, m.rightCursor, m.activePane == 1))
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" Jobs (%d)", len(m.jobs))
	rightHeader := fmt.Sprintf(" Matches (%d)", len(m.matches))

	var leftHeaderRendered, rightHeaderRendered string
	var leftBorder, rightBorder lipgloss.Style

	if m.activePane == 0 {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		rightHeaderRendered = inactiveHeaderStyle.Render(rightHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
		rightBorder = inactiveBorderStyle.Width(paneWidth)
	} else {
		leftHeaderRendered = inactiveHeaderStyle.Render(leftHeader)
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		leftBorder = inactiveBorderStyle.Width(paneWidth)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Render(m.leftViewport.View()),
		" ",
		rightBorder.Render(m.rightViewport.View()),
	)

	statusText := fmt.Sprintf(" %d jobs    ←/→/Tab switch  ↑/↓ cursor  Enter detail  o open  q quit",
		len(m.jobs))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Job Details")
	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " o open URL  r description  esc/backspace back  ↑/↓ scroll  q quit"
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	j := m.jobs[m.leftCursor]
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Title", j.Title)
	addField("Company", j.Company)
	addField("Location", j.Location)
	addField("Category", j.Category)
	addField("Job Type", string(j.JobType))
	addField("Experience", string(j.ExperienceLevel))
	addField("Source", j.Source)

	b.WriteByte('\n')
	if !j.PostedAt.IsZero() {
		addField("Posted At", j.PostedAt.Format("2006-01-02"))
	}
	addField("Salary", formatSalary(j.Salary))
	if j.IsRemote {
		addField("Remote", "yes")
	}
	if j.IsHybrid {
		addField("Hybrid", "yes")
	}
	if len(j.SkillsRequired) > 0 {
		addField("Skills", strings.Join(j.SkillsRequired, ", "))
	}

	b.WriteByte('\n')
	addField("Fraud Score", fmt.Sprintf("%d", j.FraudScore))
	if len(j.FraudIndicators) > 0 {
		b.WriteString(fraudStyle.Render("  ⚠ "+strings.Join(j.FraudIndicators, "; ")) + "\n")
	}

	b.WriteByte('\n')
	addField("Job URL", j.SourceURL)

	wrapWidth := max(m.width-8, 20)
	if j.Description != "" {
		b.WriteByte('\n')
		if m.showDescription {
			label := "── Description "
			fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
			b.WriteString(dividerStyle.Render(label+fill) + "\n\n")
			b.WriteString(bodyStyle.Render(wordWrap(j.Description, wrapWidth)) + "\n")
		} else {
			b.WriteString(hintStyle.Render("  press r to read the description") + "\n")
		}
	}

	return b.String()
}

func formatSalary(s model.Salary) string {
	if s.Min == nil && s.Max == nil {
		return ""
	}
	currency := s.Currency
	if currency == "" {
		currency = "USD"
	}
	switch {
	case s.Min != nil && s.Max != nil:
		return fmt.Sprintf("%s %.0f - %.0f %s", currency, *s.Min, *s.Max, s.Period)
	case s.Min != nil:
		return fmt.Sprintf("%s %.0f+ %s", currency, *s.Min, s.Period)
	default:
		return fmt.Sprintf("%s up to %.0f %s", currency, *s.Max, s.Period)
	}
}

func renderJobItems(jobs []model.JobRecord, cursor int, isActive bool) string {
	if len(jobs) == 0 {
		return "  (no jobs)"
	}

	var b strings.Builder
	for i, j := range jobs {
		titleSt, subtitleSt, prefix := itemStyles(isActive && i == cursor)

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(j.Title))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s", j.Company, j.CreatedAt.Format("2006-01-02"))))
		b.WriteByte('\n')

		if i < len(jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderMatchItems(matches []model.AlertMatch, loadErr string, cursor int, isActive bool) string {
	if loadErr != "" {
		return "  " + loadErr
	}
	if len(matches) == 0 {
		return "  (no matches)"
	}

	var b strings.Builder
	for i, m := range matches {
		titleSt, subtitleSt, prefix := itemStyles(isActive && i == cursor)

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(fmt.Sprintf("alert %s · %.0f%%", m.AlertID, m.Score*100)))
		b.WriteByte('\n')

		sent := "unsent"
		if m.SentAt != nil {
			sent = "sent " + m.SentAt.Format("2006-01-02 15:04")
		}
		subtitle := sent
		if len(m.MatchedKeywords) > 0 {
			subtitle = strings.Join(m.MatchedKeywords, ", ") + " · " + sent
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(subtitle))
		b.WriteByte('\n')

		if i < len(matches)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func itemStyles(selected bool) (lipgloss.Style, lipgloss.Style, string) {
	if selected {
		return selectedTitleStyle, selectedSubtitleStyle, "> "
	}
	return itemTitleStyle, itemSubtitleStyle, "  "
}

func sortJobsByCreated(jobs []model.JobRecord) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	if url == "" {
		return
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the split-pane review TUI over the given job list.
func Run(jobs []model.JobRecord, lister MatchLister) error {
	sortJobsByCreated(jobs)

	m := reviewModel{jobs: jobs, lister: lister}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("review tui: %w", err)
	}
	return nil
}
