// Package tui is the terminal frontend: a live input box whose command
// re-runs automatically as the input settles, with stdout and stderr
// rendered in separate panes. All engine work happens on runner
// goroutines; the bubbletea loop only folds events into session state.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"pipewatch/history"
	"pipewatch/runner"
	"pipewatch/session"
)

// Engine is the run-submission side of the execution engine.
type Engine interface {
	Submit(command string) (string, bool)
	Events() <-chan runner.Event
}

var _ Engine = (*runner.Worker)(nil)

// DefaultPollInterval is the debounce poll cadence.
const DefaultPollInterval = 100 * time.Millisecond

type tickMsg time.Time

// engineEventMsg wraps one runner event pumped into the bubbletea loop.
type engineEventMsg struct {
	event runner.Event
}

// Model is the bubbletea model for the whole application.
type Model struct {
	engine Engine
	sess   *session.Session
	store  *history.Store

	pollInterval time.Duration

	input    textinput.Model
	theme    theme
	width    int
	height   int
	quitting bool
}

// New builds the application model. Non-positive pollInterval selects the
// default.
func New(engine Engine, sess *session.Session, store *history.Store, pollInterval time.Duration) Model {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "type a command, e.g. ls -la | head"
	input.CharLimit = 4000
	input.Focus()

	return Model{
		engine:       engine,
		sess:         sess,
		store:        store,
		pollInterval: pollInterval,
		input:        input,
		theme:        newTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickEvery(m.pollInterval),
		waitEvent(m.engine.Events()),
	)
}

func tickEvery(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitEvent blocks on the engine's event channel and delivers one event
// per command invocation; the Update handler re-arms it.
func waitEvent(ch <-chan runner.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return engineEventMsg{event: ev}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.sess.ShouldAutoRun(m.input.Value(), time.Time(msg)) {
			m.submit(false)
		}
		return m, tickEvery(m.pollInterval)

	case engineEventMsg:
		m.applyEvent(msg.event)
		return m, waitEvent(m.engine.Events())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-6, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		m.submit(true)
		return m, nil

	case "ctrl+u":
		m.input.SetValue("")
		m.sess.MarkEdited(time.Now())
		return m, nil

	case "up":
		if recalled, ok := m.sess.RecallPrev(m.store.Entries(), m.input.Value(), time.Now()); ok {
			m.input.SetValue(recalled)
			m.input.CursorEnd()
		}
		return m, nil

	case "down":
		if recalled, ok := m.sess.RecallNext(m.store.Entries(), time.Now()); ok {
			m.input.SetValue(recalled)
			m.input.CursorEnd()
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.sess.MarkEdited(time.Now())
	}
	return m, cmd
}

// submit hands the current input to the engine. The session records the
// command for duplicate suppression; output state resets when the
// RunStarted event comes back.
func (m *Model) submit(manual bool) {
	command := m.input.Value()
	if !m.sess.PrepareRun(command, manual) {
		return
	}
	m.engine.Submit(command)
}

func (m *Model) applyEvent(ev runner.Event) {
	switch ev := ev.(type) {
	case runner.RunStarted:
		m.sess.Begin(ev.RunID)
	case runner.RunOutput:
		m.sess.AppendOutput(ev.RunID, ev.Stream, ev.Text)
	case runner.RunFinished:
		if m.sess.Finish(ev.Result) {
			m.store.Append(ev.Result.Command)
		}
	}
}
