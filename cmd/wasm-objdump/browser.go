package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wasmkit/wasmkit/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserModel struct {
	filename string
	sections []sectionInfo
	detail   viewport.Model
	selected int
	width    int
	height   int
	ready    bool
}

func runBrowser(filename string, mod *wasm.Module) error {
	m := &browserModel{
		filename: filename,
		sections: summarize(mod),
	}
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m *browserModel) Init() tea.Cmd {
	return nil
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.detail = viewport.New(msg.Width-30, msg.Height-4)
		m.ready = true
		m.syncDetail()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.syncDetail()
			}
		case "down", "j":
			if m.selected < len(m.sections)-1 {
				m.selected++
				m.syncDetail()
			}
		case "pgup":
			m.detail.HalfViewUp()
		case "pgdown":
			m.detail.HalfViewDown()
		}
	}
	return m, nil
}

func (m *browserModel) syncDetail() {
	if !m.ready || len(m.sections) == 0 {
		return
	}
	m.detail.SetContent(strings.Join(m.sections[m.selected].detail, "\n"))
	m.detail.GotoTop()
}

func (m *browserModel) View() string {
	if !m.ready {
		return "loading..."
	}

	var list strings.Builder
	for i, s := range m.sections {
		line := fmt.Sprintf("%-10s %s", s.title, s.summary)
		if i == m.selected {
			list.WriteString(selectedStyle.Render("> " + line))
		} else {
			list.WriteString(sectionStyle.Render("  " + line))
		}
		list.WriteByte('\n')
	}

	left := lipgloss.NewStyle().Width(28).Render(list.String())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, m.detail.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("wasm-objdump: "+m.filename),
		body,
		helpStyle.Render("up/down: select section  pgup/pgdn: scroll  q: quit"),
	)
}
