package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// StatusBar displays session, socket and presence status.
type StatusBar struct {
	*tview.TextView
	session string
	socket  string
	online  bool
	unread  int
	flash   string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetSession updates the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetSocket updates the socket state display.
func (sb *StatusBar) SetSocket(state string) {
	sb.socket = state
	sb.render()
}

// SetOnline updates the counterpart presence dot.
func (sb *StatusBar) SetOnline(online bool) {
	sb.online = online
	sb.render()
}

// SetUnreadNotifications updates the notification badge.
func (sb *StatusBar) SetUnreadNotifications(n int) {
	sb.unread = n
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	dot := "[gray]○[-]"
	if sb.online {
		dot = "[green]●[-]"
	}

	clock := time.Now().Format("15:04")

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s %s | %s", sb.session, sb.socket, dot, clock)
	if sb.unread > 0 {
		line += fmt.Sprintf(" | [orange]%d unread[-]", sb.unread)
	}
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", tview.Escape(sb.flash))
	}

	_, _ = fmt.Fprint(sb, line)
}
