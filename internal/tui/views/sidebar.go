package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/bishaldk/samvad/internal/rest"
)

// Sidebar is the staff-side conversation list.
type Sidebar struct {
	*tview.Table
	conversations []rest.ConversationSummary
	onSelect      func(c rest.ConversationSummary)
	selectedFn    func() (int, int)
}

// NewSidebar creates the conversation list table.
func NewSidebar() *Sidebar {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Conversations ")

	sb := &Sidebar{Table: table}
	sb.selectedFn = table.GetSelection

	table.SetSelectedFunc(func(row, col int) {
		idx := row - 1 // header
		if idx >= 0 && idx < len(sb.conversations) && sb.onSelect != nil {
			sb.onSelect(sb.conversations[idx])
		}
	})
	return sb
}

// SetOnSelect sets the callback for entering a conversation.
func (sb *Sidebar) SetOnSelect(fn func(c rest.ConversationSummary)) {
	sb.onSelect = fn
}

// Update refreshes the list with fresh summaries.
func (sb *Sidebar) Update(conversations []rest.ConversationSummary) {
	sb.conversations = conversations
	sb.Clear()

	sb.SetCell(0, 0, tview.NewTableCell(" Name").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	sb.SetCell(0, 1, tview.NewTableCell(" Unread").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	sb.SetCell(0, 2, tview.NewTableCell(" ").SetSelectable(false))

	for i, c := range conversations {
		row := i + 1
		name := c.PeerName
		if name == "" {
			name = c.PeerEmail
		}

		unread := ""
		if c.UnreadCount > 0 {
			unread = fmt.Sprintf("[orange]%d[-]", c.UnreadCount)
		}
		online := ""
		if c.IsOnline {
			online = "[green]●[-]"
		}

		sb.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetMaxWidth(30).SetExpansion(1))
		sb.SetCell(row, 1, tview.NewTableCell(" "+unread).SetMaxWidth(8))
		sb.SetCell(row, 2, tview.NewTableCell(" "+online).SetMaxWidth(3))
	}
}

// Selected returns the highlighted conversation, if any.
func (sb *Sidebar) Selected() (rest.ConversationSummary, bool) {
	row, _ := sb.selectedFn()
	idx := row - 1
	if idx >= 0 && idx < len(sb.conversations) {
		return sb.conversations[idx], true
	}
	return rest.ConversationSummary{}, false
}
