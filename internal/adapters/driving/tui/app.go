package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/custodia-labs/quorum-cli/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/quorum-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/quorum-cli/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/quorum-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/quorum-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/quorum-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/quorum-cli/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// cancelStream aborts the in-flight answer stream, if any.
	cancelStream context.CancelFunc

	// styles holds the TUI styles.
	styles *styles.Styles

	// keymap holds the keybindings.
	keymap *keymap.KeyMap

	// input is the prompt input component.
	input *input.PromptInput

	// transcript is the scrolling conversation history.
	transcript *transcript.View

	// statusbar shows the pipeline stage and key hints.
	statusbar *status.Bar

	// sessionID is minted locally and reused across turns so the server
	// appends every exchange to the same session.
	sessionID string

	// events is the active stream's channel, nil when idle.
	events <-chan domain.StreamEvent

	// sources holds the overlay content when visible.
	sources     []domain.SourceMetadata
	showSources bool

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		input:      input.NewPromptInput(s),
		transcript: transcript.NewView(s),
		statusbar:  status.NewBar(s, km),
		sessionID:  uuid.NewString(),
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("quorum - Ask Your Sources"),
		a.input.Init(),
		a.statusbar.Init(),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.input.SetWidth(msg.Width)
		a.statusbar.SetWidth(msg.Width)
		// Reserve space for header, input, and status bar.
		a.transcript.SetDimensions(msg.Width, msg.Height-8)
		return a, nil

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case messages.StreamStarted:
		a.events = msg.Events
		a.statusbar.SetState(status.StatePlanning)
		return a, waitForEvent(a.events)

	case messages.StreamEventReceived:
		return a.handleStreamEvent(msg.Event)

	case messages.StreamClosed:
		// Channel closed without a terminal event: the stream was
		// aborted, drop the partial answer.
		a.finishStream()
		a.transcript.AbortAssistant()
		return a, nil

	case messages.SourcesLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.sources = msg.Sources
		a.showSources = true
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.finishStream()
		a.statusbar.SetState(status.StateError)
		a.statusbar.SetMessage(msg.Err.Error())
		return a, nil
	}

	// Everything else (spinner ticks, blink) goes to the components.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	a.statusbar, cmd = a.statusbar.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input.
func (a *App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if a.cancelStream != nil {
			a.cancelStream()
		}
		return a, tea.Quit

	case "esc":
		if a.showSources {
			a.showSources = false
			return a, nil
		}
		if a.Streaming() {
			a.cancelStream()
			return a, nil
		}
		return a, nil

	case "ctrl+n":
		if a.Streaming() {
			return a, nil
		}
		a.sessionID = uuid.NewString()
		a.transcript.Clear()
		a.statusbar.Clear()
		a.err = nil
		return a, nil

	case "ctrl+s":
		if a.showSources {
			a.showSources = false
			return a, nil
		}
		return a, a.loadSources()

	case "enter":
		if a.Streaming() {
			return a, nil
		}
		prompt := strings.TrimSpace(a.input.Value())
		if prompt == "" {
			return a, nil
		}
		a.err = nil
		a.input.Reset()
		a.transcript.AppendUser(prompt)
		return a, a.startStream(prompt)
	}

	// Scrolling goes to the transcript, typing to the input.
	switch msg.String() {
	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// handleStreamEvent applies one pipeline event to the model and keeps
// listening until a terminal event arrives.
func (a *App) handleStreamEvent(ev domain.StreamEvent) (tea.Model, tea.Cmd) {
	switch ev.Type {
	case domain.EventPlanning:
		a.statusbar.SetState(status.StatePlanning)

	case domain.EventQuerying:
		a.statusbar.SetState(status.StateQuerying)
		if ev.Status == domain.StatusStarted {
			a.statusbar.SetSource(ev.SourceID)
		}

	case domain.EventSynthesizing:
		a.statusbar.SetState(status.StateSynthesizing)
		a.transcript.BeginAssistant()

	case domain.EventCitation:
		if ev.Citation != nil {
			a.transcript.AppendCitation(*ev.Citation)
		}

	case domain.EventContent:
		a.transcript.AppendDelta(ev.Delta)

	case domain.EventDone:
		a.finishStream()
		a.transcript.FinishAssistant(ev.Message)
		a.statusbar.SetState(status.StateIdle)
		return a, nil

	case domain.EventError:
		a.finishStream()
		a.transcript.AbortAssistant()
		a.err = fmt.Errorf("%s", ev.Error)
		a.statusbar.SetState(status.StateError)
		a.statusbar.SetMessage(ev.Error)
		return a, nil
	}

	return a, waitForEvent(a.events)
}

// startStream launches the answer pipeline for the given prompt.
func (a *App) startStream(prompt string) tea.Cmd {
	ctx, cancel := context.WithCancel(a.ctx)
	a.cancelStream = cancel

	return func() tea.Msg {
		events, err := a.ports.Chat.ChatStream(ctx, prompt, a.sessionID)
		if err != nil {
			cancel()
			return messages.ErrorOccurred{Err: err}
		}
		return messages.StreamStarted{Events: events}
	}
}

// waitForEvent reads the next event off the stream channel.
func waitForEvent(events <-chan domain.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return messages.StreamClosed{}
		}
		return messages.StreamEventReceived{Event: ev}
	}
}

// loadSources fetches registered source metadata for the overlay.
func (a *App) loadSources() tea.Cmd {
	return func() tea.Msg {
		if a.ports.Registry == nil {
			return messages.SourcesLoaded{}
		}
		return messages.SourcesLoaded{Sources: a.ports.Registry.List()}
	}
}

// finishStream releases the active stream state.
func (a *App) finishStream() {
	a.events = nil
	if a.cancelStream != nil {
		a.cancelStream()
		a.cancelStream = nil
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)

	header := a.styles.Title.Render("Quorum")
	sections = append(sections, header, "")

	sections = append(sections, a.transcript.View(), "")

	if a.err != nil {
		sections = append(sections, a.styles.Error.Render("Error: "+a.err.Error()), "")
	}

	if a.showSources {
		sections = append(sections, a.renderSources(), "")
	}

	sections = append(sections, a.input.View(), "")
	sections = append(sections, a.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderSources renders the sources overlay.
func (a *App) renderSources() string {
	lines := make([]string, 0, len(a.sources)+1)
	lines = append(lines, a.styles.Title.Render("Sources"))
	if len(a.sources) == 0 {
		lines = append(lines, a.styles.Muted.Render("No sources registered"))
	}
	for _, meta := range a.sources {
		line := fmt.Sprintf("%s  %s", meta.ID, meta.Name)
		if meta.Description != "" {
			line += "  " + meta.Description
		}
		lines = append(lines, a.styles.Normal.Render(line))
	}

	return a.styles.Border.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// SessionID returns the session id the app appends exchanges to.
func (a *App) SessionID() string {
	return a.sessionID
}

// Streaming reports whether an answer is in flight.
func (a *App) Streaming() bool {
	return a.events != nil
}

// Transcript returns the committed conversation entries.
func (a *App) Transcript() []transcript.Entry {
	return a.transcript.Entries()
}

// Err returns the last error, if any.
func (a *App) Err() error {
	return a.err
}
