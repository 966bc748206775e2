package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/amf/codec"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	classStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#DDA0DD"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	headerLines = 2
	footerLines = 2
)

func stylePalette() palette {
	wrap := func(s lipgloss.Style) func(string) string {
		return func(v string) string { return s.Render(v) }
	}
	return palette{
		class: wrap(classStyle),
		key:   wrap(keyStyle),
		kind:  wrap(kindStyle),
		value: wrap(valueStyle),
	}
}

// viewMode selects what the inspector body shows.
type viewMode int

const (
	modeTree viewMode = iota
	modeJSON
)

type inspectModel struct {
	err      error
	msg      *codec.Message
	filename string
	pages    [2]string
	viewport viewport.Model
	mode     viewMode
	ready    bool
}

func newInspectModel(filename string, msg *codec.Message) *inspectModel {
	m := &inspectModel{filename: filename, msg: msg}

	var tree bytes.Buffer
	newTreePrinter(&tree, stylePalette()).message(msg)
	m.pages[modeTree] = tree.String()

	var js bytes.Buffer
	if err := render(&js, msg, formatJSON); err != nil {
		m.err = err
	}
	m.pages[modeJSON] = js.String()
	return m
}

func (m *inspectModel) Init() tea.Cmd {
	return nil
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "tab":
			m.mode = (m.mode + 1) % viewMode(len(m.pages))
			m.viewport.SetContent(m.pages[m.mode])
			m.viewport.GotoTop()
			return m, nil
		case "g", "home":
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			return m, nil
		}

	case tea.WindowSizeMsg:
		height := msg.Height - headerLines - footerLines
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.pages[m.mode])
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *inspectModel) View() string {
	if !m.ready {
		return "Loading...\n"
	}

	var b strings.Builder
	mode := "tree"
	if m.mode == modeJSON {
		mode = "json"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %s  [%s]", m.filename, summary(m.msg), mode)))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
	} else {
		b.WriteString(helpStyle.Render(fmt.Sprintf("%3.0f%%  ↑/↓ scroll  tab: tree/json  g/G: top/bottom  q: quit",
			m.viewport.ScrollPercent()*100)))
	}
	return b.String()
}

func summary(msg *codec.Message) string {
	return fmt.Sprintf("AMF%d, %d headers, %d bodies", msg.Version, len(msg.Headers), len(msg.Bodies))
}

func runInspect(filename string, msg *codec.Message) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("inspect needs a terminal; use 'amf decode' to print the message")
	}
	p := tea.NewProgram(newInspectModel(filename, msg), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
