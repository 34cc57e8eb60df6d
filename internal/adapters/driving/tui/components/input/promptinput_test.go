package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptInput_Value(t *testing.T) {
	p := NewPromptInput(nil)

	p.SetValue("why is the build red?")
	assert.Equal(t, "why is the build red?", p.Value())

	p.Reset()
	assert.Empty(t, p.Value())
}

func TestPromptInput_FocusBlur(t *testing.T) {
	p := NewPromptInput(nil)
	assert.True(t, p.Focused())

	p.Blur()
	assert.False(t, p.Focused())

	p.Focus()
	assert.True(t, p.Focused())
}

func TestPromptInput_SetWidthClamps(t *testing.T) {
	p := NewPromptInput(nil)

	p.SetWidth(10)
	assert.Equal(t, 10, p.Width())

	p.SetWidth(120)
	assert.Equal(t, 120, p.Width())
}
