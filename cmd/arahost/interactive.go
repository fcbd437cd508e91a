package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/hostmodel"
	"github.com/wippyai/ara-ipc/message"
	"github.com/wippyai/ara-ipc/proxy"
	"github.com/wippyai/ara-ipc/remote"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateConnecting modelState = iota
	stateSelectAction
	stateInputArgs
	stateShowResult
)

type action struct {
	name   string
	params []string
	run    func(m *interactiveModel, args []string) (string, error)
}

type interactiveModel struct {
	binary string
	wire   string

	child *remote.Child
	model *hostmodel.Model
	plug  *proxy.PlugIn
	dc    *proxy.DocumentController
	pr    *proxy.PlaybackRenderer

	hostRefs   []ara.AudioSourceHostRef
	sourceRefs []ara.AudioSourceRef
	archive    []byte

	actions  []action
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
	result   string
	err      error
}

type connectedMsg struct {
	err   error
	child *remote.Child
	model *hostmodel.Model
	plug  *proxy.PlugIn
	dc    *proxy.DocumentController
	pr    *proxy.PlaybackRenderer
}

type actionResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(binary, wire string) *interactiveModel {
	m := &interactiveModel{
		binary: binary,
		wire:   wire,
		state:  stateConnecting,
	}
	m.actions = []action{
		{
			name:   "create audio source",
			params: []string{"seconds"},
			run:    actionCreateSource,
		},
		{
			name:   "render samples",
			params: []string{"position", "count"},
			run:    actionRender,
		},
		{
			name: "store archive",
			run:  actionStore,
		},
		{
			name: "restore archive",
			run:  actionRestore,
		},
		{
			name: "destroy last source",
			run:  actionDestroySource,
		},
	}
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.connect
}

func (m *interactiveModel) connect() tea.Msg {
	codec, err := message.CodecByName(m.wire)
	if err != nil {
		return connectedMsg{err: err}
	}
	child, err := remote.Spawn(m.binary, remote.SpawnConfig{Codec: codec})
	if err != nil {
		return connectedMsg{err: err}
	}
	model := hostmodel.New("Interactive document")
	plug := proxy.NewPlugIn(child.Conn, model.Interfaces())
	dc, pr, err := plug.CreateDocumentController(model.DocumentProperties())
	if err != nil {
		child.Shutdown(time.Second)
		return connectedMsg{err: err}
	}
	return connectedMsg{child: child, model: model, plug: plug, dc: dc, pr: pr}
}

func actionCreateSource(m *interactiveModel, args []string) (string, error) {
	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil || seconds <= 0 {
		return "", fmt.Errorf("seconds must be a positive number")
	}
	const sampleRate = 44100.0
	sampleCount := int64(seconds * sampleRate)
	name := fmt.Sprintf("Sine %d", len(m.sourceRefs)+1)
	src := ara.NewSineAudioSource(name, fmt.Sprintf("sine-%d", len(m.sourceRefs)+1), sampleRate, sampleCount)
	hostRef := m.model.AddAudioSource(src)

	if err := m.dc.BeginEditing(); err != nil {
		return "", err
	}
	sourceRef, err := m.dc.CreateAudioSource(hostRef, src.Properties)
	if err != nil {
		m.dc.EndEditing()
		return "", err
	}
	if err := m.dc.EndEditing(); err != nil {
		return "", err
	}
	m.hostRefs = append(m.hostRefs, hostRef)
	m.sourceRefs = append(m.sourceRefs, sourceRef)
	return fmt.Sprintf("%s: %d samples, ref %d, analysis %.0f%%",
		name, sampleCount, int64(sourceRef), 100*m.model.AnalysisProgress(hostRef)), nil
}

func actionRender(m *interactiveModel, args []string) (string, error) {
	if len(m.sourceRefs) == 0 {
		return "", fmt.Errorf("no audio source yet")
	}
	position, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "", fmt.Errorf("position must be an integer")
	}
	count, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("count must be an integer")
	}
	sourceRef := m.sourceRefs[len(m.sourceRefs)-1]
	start := time.Now()
	samples, err := m.pr.RenderSamples(sourceRef, position, count)
	if err != nil {
		return "", err
	}
	elapsed := time.Since(start)

	want := make([]float32, count)
	ara.RenderPulsedSine(want, position, 44100)
	mismatches := 0
	for i := range want {
		if samples[i] != want[i] {
			mismatches++
		}
	}
	return fmt.Sprintf("%d samples in %s, %d mismatches vs generator", count, elapsed, mismatches), nil
}

func actionStore(m *interactiveModel, _ []string) (string, error) {
	writerRef, archive := m.model.NewArchiveWriter()
	ok, err := m.dc.StoreObjectsToArchive(writerRef)
	m.model.CloseArchiveWriter(writerRef)
	if err != nil {
		return "", err
	}
	m.archive = archive.Bytes()
	return fmt.Sprintf("ok=%v, %d bytes", ok, len(m.archive)), nil
}

func actionRestore(m *interactiveModel, _ []string) (string, error) {
	if m.archive == nil {
		return "", fmt.Errorf("nothing stored yet")
	}
	readerRef := m.model.NewArchiveReader(m.archive)
	ok, err := m.dc.RestoreObjectsFromArchive(readerRef)
	m.model.CloseArchiveReader(readerRef)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ok=%v", ok), nil
}

func actionDestroySource(m *interactiveModel, _ []string) (string, error) {
	if len(m.sourceRefs) == 0 {
		return "", fmt.Errorf("no audio source yet")
	}
	i := len(m.sourceRefs) - 1
	if err := m.dc.BeginEditing(); err != nil {
		return "", err
	}
	if err := m.dc.DestroyAudioSource(m.sourceRefs[i]); err != nil {
		m.dc.EndEditing()
		return "", err
	}
	if err := m.dc.EndEditing(); err != nil {
		return "", err
	}
	m.model.RemoveAudioSource(m.hostRefs[i])
	m.hostRefs = m.hostRefs[:i]
	m.sourceRefs = m.sourceRefs[:i]
	return fmt.Sprintf("source %d destroyed", i+1), nil
}

func (m *interactiveModel) shutdown() {
	if m.child != nil {
		if m.dc != nil {
			m.dc.Destroy()
		}
		m.child.Shutdown(2 * time.Second)
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				m.shutdown()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectAction && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectAction && m.selected < len(m.actions)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectAction:
				a := m.actions[m.selected]
				if len(a.params) == 0 {
					return m, m.runAction
				}
				m.prepareInputs()
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.runAction

			case stateShowResult:
				m.state = stateSelectAction
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectAction
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectAction
				m.result = ""
				m.err = nil
			}
		}

	case connectedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.child = msg.child
		m.model = msg.model
		m.plug = msg.plug
		m.dc = msg.dc
		m.pr = msg.pr
		m.state = stateSelectAction

	case actionResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	a := m.actions[m.selected]
	m.inputs = make([]textinput.Model, len(a.params))
	for i, p := range a.params {
		ti := textinput.New()
		ti.Prompt = p + ": "
		ti.Width = 20
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) runAction() tea.Msg {
	a := m.actions[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}
	result, err := a.run(m, args)
	return actionResultMsg{result: result, err: err}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("ARA Host"))
	if m.child != nil {
		b.WriteString(fmt.Sprintf(" pid %d, API %s, %d sources",
			m.child.Pid(), m.child.Conn.NegotiatedVersion(), len(m.sourceRefs)))
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateConnecting:
		b.WriteString("Spawning plug-in process...")

	case stateSelectAction:
		b.WriteString("Select an action:\n\n")
		for i, a := range m.actions {
			cursor := "  "
			line := a.name
			if len(a.params) > 0 {
				line += " (" + strings.Join(a.params, ", ") + ")"
			}
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + line))
			} else {
				b.WriteString(cursor + actionStyle.Render(line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateInputArgs:
		a := m.actions[m.selected]
		b.WriteString(fmt.Sprintf("%s\n\n", actionStyle.Render(a.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		a := m.actions[m.selected]
		b.WriteString(fmt.Sprintf("%s:\n\n", actionStyle.Render(a.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runInteractive(binary, wire string) error {
	p := tea.NewProgram(newInteractiveModel(binary, wire), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
