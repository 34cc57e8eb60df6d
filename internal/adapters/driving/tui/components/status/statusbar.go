// Package status provides the status bar component for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/quorum-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/quorum-cli/internal/adapters/driving/tui/styles"
)

// State represents the current pipeline stage for display.
type State string

const (
	StateIdle         State = "idle"
	StatePlanning     State = "planning"
	StateQuerying     State = "querying"
	StateSynthesizing State = "synthesizing"
	StateError        State = "error"
)

// Bar displays the pipeline stage and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	spinner spinner.Model

	state    State
	sourceID string
	message  string
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Bar{
		styles:  s,
		keymap:  km,
		spinner: sp,
		state:   StateIdle,
		width:   80,
	}
}

// Init starts the spinner ticking.
func (s *Bar) Init() tea.Cmd {
	return s.spinner.Tick
}

// Update advances the spinner animation.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)
	padding := s.width - leftLen - rightLen
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

// renderLeft renders the pipeline stage indicator.
func (s *Bar) renderLeft() string {
	switch s.state {
	case StatePlanning:
		return s.spinner.View() + s.styles.Muted.Render("Planning...")
	case StateQuerying:
		if s.sourceID != "" {
			return s.spinner.View() + s.styles.Muted.Render("Querying "+s.sourceID+"...")
		}
		return s.spinner.View() + s.styles.Muted.Render("Querying sources...")
	case StateSynthesizing:
		return s.spinner.View() + s.styles.Muted.Render("Synthesizing answer...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StateIdle:
		return s.styles.Muted.Render("Ready")
	}
	return s.styles.Muted.Render("Ready")
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.Busy() {
		bindings = s.keymap.StreamingHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current pipeline stage.
func (s *Bar) SetState(state State) {
	s.state = state
	if state != StateQuerying {
		s.sourceID = ""
	}
}

// State returns the current pipeline stage.
func (s *Bar) State() State {
	return s.state
}

// SetSource sets the source id shown while querying.
func (s *Bar) SetSource(id string) {
	s.sourceID = id
}

// SetMessage sets a custom message shown in the error state.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// Busy reports whether an answer is in flight.
func (s *Bar) Busy() bool {
	switch s.state {
	case StatePlanning, StateQuerying, StateSynthesizing:
		return true
	case StateIdle, StateError:
		return false
	}
	return false
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to the idle state.
func (s *Bar) Clear() {
	s.state = StateIdle
	s.sourceID = ""
	s.message = ""
}
