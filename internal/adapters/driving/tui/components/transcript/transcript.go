// Package transcript provides the scrolling chat history component.
package transcript

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/quorum-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/quorum-cli/internal/core/domain"
)

// Entry is one rendered turn in the conversation.
type Entry struct {
	Role      string
	Content   string
	Citations []domain.Citation
}

// View displays the conversation history in a scrollable viewport.
type View struct {
	styles   *styles.Styles
	viewport viewport.Model

	entries []Entry

	// streaming holds the partial assistant answer while deltas arrive.
	// It is promoted to an entry when the stream finishes.
	streaming     bool
	streamBuffer  strings.Builder
	streamedCites []domain.Citation

	width  int
	height int
}

// NewView creates a new transcript view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	vp := viewport.New(80, 20)

	return &View{
		styles:   s,
		viewport: vp,
		width:    80,
		height:   20,
	}
}

// Update handles viewport scrolling messages.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View renders the transcript.
func (v *View) View() string {
	return v.viewport.View()
}

// AppendUser adds a user turn to the transcript.
func (v *View) AppendUser(content string) {
	v.entries = append(v.entries, Entry{Role: domain.RoleUser, Content: content})
	v.refresh()
}

// BeginAssistant starts collecting a streamed assistant answer.
func (v *View) BeginAssistant() {
	v.streaming = true
	v.streamBuffer.Reset()
	v.streamedCites = nil
	v.refresh()
}

// AppendDelta adds an incremental chunk to the in-flight answer.
func (v *View) AppendDelta(delta string) {
	v.streamBuffer.WriteString(delta)
	v.refresh()
}

// AppendCitation records a citation collected during the in-flight answer.
func (v *View) AppendCitation(c domain.Citation) {
	v.streamedCites = append(v.streamedCites, c)
}

// FinishAssistant promotes the in-flight answer to a transcript entry.
// When msg is non-nil its content and citations replace the streamed
// buffer, so the final text always matches the committed message.
func (v *View) FinishAssistant(msg *domain.ChatMessage) {
	entry := Entry{
		Role:      domain.RoleAssistant,
		Content:   v.streamBuffer.String(),
		Citations: v.streamedCites,
	}
	if msg != nil {
		entry.Content = msg.Content
		entry.Citations = msg.Citations
	}
	v.entries = append(v.entries, entry)
	v.streaming = false
	v.streamBuffer.Reset()
	v.streamedCites = nil
	v.refresh()
}

// AbortAssistant discards the in-flight answer.
func (v *View) AbortAssistant() {
	v.streaming = false
	v.streamBuffer.Reset()
	v.streamedCites = nil
	v.refresh()
}

// Clear removes all entries.
func (v *View) Clear() {
	v.entries = nil
	v.streaming = false
	v.streamBuffer.Reset()
	v.streamedCites = nil
	v.refresh()
}

// Entries returns the committed transcript entries.
func (v *View) Entries() []Entry {
	return v.entries
}

// Streaming returns whether an answer is currently in flight.
func (v *View) Streaming() bool {
	return v.streaming
}

// StreamedContent returns the partial answer accumulated so far.
func (v *View) StreamedContent() string {
	return v.streamBuffer.String()
}

// SetDimensions sets the transcript dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = height
	v.refresh()
}

// refresh re-renders all entries into the viewport and scrolls to the
// bottom so the newest content stays visible.
func (v *View) refresh() {
	v.viewport.SetContent(v.render())
	v.viewport.GotoBottom()
}

// render produces the full transcript text.
func (v *View) render() string {
	sections := make([]string, 0, len(v.entries)+1)
	for _, e := range v.entries {
		sections = append(sections, v.renderEntry(e))
	}
	if v.streaming {
		partial := v.styles.AssistantLabel.Render("quorum") + "\n" +
			v.styles.Normal.Render(v.streamBuffer.String())
		sections = append(sections, partial)
	}
	return strings.Join(sections, "\n\n")
}

// renderEntry renders one turn with its label and citation list.
func (v *View) renderEntry(e Entry) string {
	var label string
	if e.Role == domain.RoleUser {
		label = v.styles.UserLabel.Render("you")
	} else {
		label = v.styles.AssistantLabel.Render("quorum")
	}

	lines := []string{label, v.styles.Normal.Render(e.Content)}
	for i, c := range e.Citations {
		ref := fmt.Sprintf("[%d] %s", i+1, c.Title)
		if c.URL != "" {
			ref += " " + c.URL
		}
		lines = append(lines, v.styles.Citation.Render(ref))
	}
	return strings.Join(lines, "\n")
}
