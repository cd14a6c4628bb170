// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"wavefield/internal/log"
	"wavefield/internal/params"
	"wavefield/internal/scheduler"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// refreshInterval is how often the panel re-reads scheduler stats.
const refreshInterval = 100 * time.Millisecond

// Engine is the frame loop the panel controls. *scheduler.Scheduler
// satisfies it.
type Engine interface {
	Send(cmd params.Command)
	ToggleAudio() error
	Stats() scheduler.Stats
}

type slider struct {
	name     string
	field    params.Field
	min, max float32
	step     float32
	value    func(params.RenderParameters) float32
}

var sliders = []slider{
	{"Amplitude", params.FieldAmplitude, params.MinAmplitude, params.MaxAmplitude, 0.1,
		func(p params.RenderParameters) float32 { return p.Amplitude }},
	{"Frequency", params.FieldFrequency, params.MinFrequency, params.MaxFrequency, 0.5,
		func(p params.RenderParameters) float32 { return p.Frequency }},
	{"Speed", params.FieldSpeed, params.MinSpeed, params.MaxSpeed, 0.1,
		func(p params.RenderParameters) float32 { return p.Speed }},
	{"Hue", params.FieldHue, 0, 360, 10,
		func(p params.RenderParameters) float32 { return p.Hue }},
}

type panelKeys struct {
	Up, Down, Left, Right key.Binding
	NextMode, Audio       key.Binding
	Modes                 key.Binding
	Help, Quit            key.Binding
}

func (k panelKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Modes, k.NextMode, k.Audio, k.Help, k.Quit}
}

func (k panelKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Modes, k.NextMode, k.Audio},
		{k.Help, k.Quit},
	}
}

var defaultKeys = panelKeys{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous slider")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next slider")),
	Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "decrease")),
	Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "increase")),
	NextMode: key.NewBinding(key.WithKeys("m", "tab"), key.WithHelp("m", "next mode")),
	Audio:    key.NewBinding(key.WithKeys("a", " "), key.WithHelp("a", "toggle audio")),
	Modes:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "mode")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// PanelModel is the live control surface: mode selection, four parameter
// sliders, the audio toggle and a feature readout.
type PanelModel struct {
	engine Engine
	title  string
	keys   panelKeys
	help   help.Model
	stats  scheduler.Stats
	focus  int
	err    error
	width  int
}

// NewPanelModel builds a panel over engine. title names the audio source.
func NewPanelModel(engine Engine, title string) PanelModel {
	return PanelModel{
		engine: engine,
		title:  title,
		keys:   defaultKeys,
		help:   help.New(),
		stats:  engine.Stats(),
	}
}

func (m PanelModel) Init() tea.Cmd {
	return tick()
}

func (m PanelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tickMsg:
		m.stats = m.engine.Stats()
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Up):
			m.focus = (m.focus + len(sliders) - 1) % len(sliders)
		case key.Matches(msg, m.keys.Down):
			m.focus = (m.focus + 1) % len(sliders)
		case key.Matches(msg, m.keys.Left):
			m.nudge(-1)
		case key.Matches(msg, m.keys.Right):
			m.nudge(1)
		case key.Matches(msg, m.keys.NextMode):
			m.engine.Send(params.SetMode(m.stats.Parameters.Mode.Next()))
		case key.Matches(msg, m.keys.Modes):
			m.engine.Send(params.SetMode(params.ParseMode(uint32(msg.Runes[0] - '1'))))
		case key.Matches(msg, m.keys.Audio):
			m.err = m.engine.ToggleAudio()
		}
		m.stats = m.engine.Stats()
	}
	return m, nil
}

func (m *PanelModel) nudge(dir float32) {
	s := sliders[m.focus]
	v := s.value(m.stats.Parameters) + dir*s.step
	m.engine.Send(params.Command{Field: s.field, Value: v})
}

func (m PanelModel) View() string {
	var sb strings.Builder
	st := m.stats

	sb.WriteString(titleStyle.Render("Wave Field"))
	if m.title != "" {
		sb.WriteString(" " + infoStyle.Render(m.title))
	}
	sb.WriteString("\n\n")

	sb.WriteString("Mode:  ")
	for _, mode := range params.Modes() {
		label := fmt.Sprintf("%d %s", int(mode)+1, mode)
		if mode == st.Parameters.Mode {
			sb.WriteString(highlightStyle.Render("[" + label + "]"))
		} else {
			sb.WriteString(dimStyle.Render(" " + label + " "))
		}
		sb.WriteString(" ")
	}
	sb.WriteString("\n\n")

	for i, s := range sliders {
		v := s.value(st.Parameters)
		line := fmt.Sprintf("%-10s %s %7.2f", s.name, bar(v, s.min, s.max, 24), v)
		if i == m.focus {
			sb.WriteString(highlightStyle.Render("▶ " + line))
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	audio := dimStyle.Render("audio off (idle)")
	if st.AudioActive {
		audio = highlightStyle.Render("audio on")
	}
	sb.WriteString(fmt.Sprintf("%s   %s  %d fps  frame %d  t=%.1fs  %dx%d\n",
		audio, st.State, st.FPS, st.Frames, st.Time, st.Width, st.Height))
	sb.WriteString(fmt.Sprintf("level %s %.2f   effective amplitude %.2f\n",
		bar(st.Features.Amplitude, 0, 1, 12), st.Features.Amplitude, st.EffectiveAmplitude))
	sb.WriteString(fmt.Sprintf("bass %s  mid %s  treble %s\n",
		bar(st.Features.Bass, 0, 1, 8), bar(st.Features.Mid, 0, 1, 8), bar(st.Features.Treble, 0, 1, 8)))
	sb.WriteString("bands " + sparkline(st.Features.Bands) + "\n")

	if st.DrawErrors > 0 {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("%d draw errors", st.DrawErrors)) + "\n")
	}
	if m.err != nil {
		sb.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}

	sb.WriteString("\n" + m.help.View(m.keys))
	return sb.String()
}

// bar draws v within [lo,hi] as a fixed-width gauge.
func bar(v, lo, hi float32, width int) string {
	frac := float32(0)
	if hi > lo {
		frac = (v - lo) / (hi - lo)
	}
	filled := int(frac*float32(width) + 0.5)
	filled = max(0, min(width, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// sparkline maps values in [0,1] to block heights.
func sparkline(values []float32) string {
	out := make([]rune, len(values))
	top := len(sparkLevels) - 1
	for i, v := range values {
		idx := int(v*float32(top) + 0.5)
		out[i] = sparkLevels[max(0, min(top, idx))]
	}
	return string(out)
}

// RunPanel runs the control panel until the user quits or ctx ends. Log
// output goes to logOut meanwhile so it does not tear the alternate screen.
func RunPanel(ctx context.Context, engine Engine, title string, logOut io.Writer) error {
	log.SetOutput(logOut)
	defer log.SetOutput(os.Stderr)

	p := tea.NewProgram(NewPanelModel(engine, title), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
