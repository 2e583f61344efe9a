package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/veeshi/gosplit/internal/core"
	"github.com/veeshi/gosplit/internal/notify"
	"github.com/veeshi/gosplit/internal/run"
)

type Model struct {
	shared   *core.SharedTimer
	notifier notify.Notifier

	width  int
	height int

	progress progress.Model
	quit     bool
}

func NewModel(shared *core.SharedTimer, notifier notify.Notifier) (*Model, error) {
	m := &Model{
		shared:   shared,
		notifier: notifier,
		progress: progress.New(progress.WithDefaultGradient()),
	}
	// subscribe to timer changes to send notifications on run end
	shared.Write(func(t *core.Timer) {
		t.SetOnTimerChange(func(st *core.TimerState) {
			if st.Action == core.ActionSplit && st.Phase == core.Ended.String() {
				_ = notifier.Notify("GoSplit", "Run finished!")
			}
		})
	})
	return m, nil
}

func Run(m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	return p.Start()
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), tea.EnterAltScreen)
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quit = true
			return m, tea.Quit
		case " ":
			m.shared.Write(func(t *core.Timer) { t.SplitOrStart() })
		case "p":
			m.shared.Write(func(t *core.Timer) { t.TogglePauseOrStart() })
		case "s":
			m.shared.Write(func(t *core.Timer) { t.SkipSplit() })
		case "u":
			m.shared.Write(func(t *core.Timer) { t.UndoSplit() })
		case "U":
			m.shared.Write(func(t *core.Timer) { t.UndoAllPauses() })
		case "r":
			m.shared.Write(func(t *core.Timer) { t.Reset(true) })
		case "R":
			m.shared.Write(func(t *core.Timer) { t.Reset(false) })
		case "c":
			m.shared.Write(func(t *core.Timer) { t.SwitchToNextComparison() })
		case "C":
			m.shared.Write(func(t *core.Timer) { t.SwitchToPreviousComparison() })
		case "t":
			m.shared.Write(func(t *core.Timer) { t.ToggleTimingMethod() })
		}
	case tickMsg:
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	}
	return m, nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	phaseStyle  = lipgloss.NewStyle().Bold(true)
	aheadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	behindStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	doneStyle   = lipgloss.NewStyle().Faint(true)
	activeStyle = lipgloss.NewStyle().Bold(true)
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

func (m *Model) View() string {
	var body string
	m.shared.Read(func(t *core.Timer) {
		body = m.render(t.Snapshot())
	})
	return body
}

func (m *Model) render(snap core.Snapshot) string {
	r := snap.Run()
	method := snap.CurrentTimingMethod()

	title := titleStyle.Render(fmt.Sprintf("%s — %s", r.GameName(), r.CategoryName()))
	phase := phaseStyle.Render(snap.CurrentPhase().String())

	var rows []string
	idx, hasIdx := snap.CurrentSplitIndex()
	for i := range r.Segments() {
		seg := r.Segment(i)
		line := segmentRow(r, seg, snap.CurrentComparison(), i, idx, hasIdx, method)
		rows = append(rows, line)
	}

	clock := formatTime(snap.CurrentTime().Get(method == core.RealTime))
	comparison := fmt.Sprintf("vs %s (%s)", snap.CurrentComparison(), method)

	pauseLine := ""
	if p := snap.PauseTime(); p != nil {
		pauseLine = fmt.Sprintf("paused for %s\n", formatDuration(*p))
	}

	var ratio float64
	if hasIdx && r.Len() > 0 {
		ratio = float64(idx) / float64(r.Len())
	}
	bar := m.progress.ViewAs(ratio)

	help := helpStyle.Render(
		"[space] split  [p] pause  [s] skip  [u] undo  [r] reset  [c] comparison  [t] method  [q] quit")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 2).
		Width(max(48, m.width-4)).
		Render(fmt.Sprintf("%s\n\n%s\n\n%s\n%s\n%s%s\n\n%s",
			title, strings.Join(rows, "\n"), clock, comparison, pauseLine, bar,
			phase+"  "+help))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func segmentRow(r *run.Run, seg *run.Segment, comparison string, i, idx int, hasIdx bool, method core.TimingMethod) string {
	realTime := method == core.RealTime
	name := seg.Name()

	shown := comparisonTime(r, comparison, i, realTime)
	column := formatTime(shown)

	if st := seg.SplitTime().Get(realTime); st != nil {
		column = formatTime(st)
		if shown != nil {
			delta := *st - *shown
			column += "  " + deltaString(delta)
		}
	}

	row := fmt.Sprintf("%-20s %s", name, column)
	switch {
	case hasIdx && i == idx:
		return activeStyle.Render("> " + row)
	case hasIdx && i < idx:
		return doneStyle.Render("  " + row)
	default:
		return "  " + row
	}
}

// comparisonTime computes the reference split time for segment i under
// the named comparison.
func comparisonTime(r *run.Run, comparison string, i int, realTime bool) *time.Duration {
	switch comparison {
	case run.BestSegmentsComparisonName:
		var sum time.Duration
		for j := 0; j <= i; j++ {
			b := r.Segment(j).BestSegmentTime().Get(realTime)
			if b == nil {
				return nil
			}
			sum += *b
		}
		return &sum
	default:
		return r.Segment(i).PersonalBestSplitTime().Get(realTime)
	}
}

func deltaString(d time.Duration) string {
	s := formatDuration(d)
	if d <= 0 {
		return aheadStyle.Render("-" + strings.TrimPrefix(s, "-"))
	}
	return behindStyle.Render("+" + s)
}

func formatTime(d *time.Duration) string {
	if d == nil {
		return "—"
	}
	return formatDuration(*d)
}

func formatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	cs := (d % time.Second) / (10 * time.Millisecond)
	out := fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
	if neg {
		out = "-" + out
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
