package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Composer is the text input for sending messages. Every keystroke reports to
// the typing callback; Enter submits.
type Composer struct {
	*tview.InputField
	onSend   func(text string)
	onTyping func()
}

// NewComposer creates a new message composer.
func NewComposer() *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	input.SetBorder(true)

	c := &Composer{InputField: input}

	input.SetChangedFunc(func(text string) {
		if text != "" && c.onTyping != nil {
			c.onTyping()
		}
	})
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && c.onSend != nil {
			text := c.GetText()
			if text != "" {
				c.onSend(text)
				c.SetText("")
			}
		}
	})

	return c
}

// Restore puts text back into the field without firing the typing callback,
// for returning a draft after a failed send. Anything typed in the meantime
// stays.
func (c *Composer) Restore(text string) {
	if c.GetText() != "" {
		return
	}
	saved := c.onTyping
	c.onTyping = nil
	c.SetText(text)
	c.onTyping = saved
}

// SetOnSend sets the callback when a message is sent.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}

// SetOnTyping sets the per-keystroke callback.
func (c *Composer) SetOnTyping(fn func()) {
	c.onTyping = fn
}
