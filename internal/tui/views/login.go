package views

import (
	"github.com/rivo/tview"
)

// Login is the email/password form shown when no session is stored.
type Login struct {
	*tview.Flex
	form    *tview.Form
	status  *tview.TextView
	onLogin func(email, password string)
}

// NewLogin creates the login form.
func NewLogin() *Login {
	l := &Login{}

	l.form = tview.NewForm().
		AddInputField("Email", "", 40, nil, nil).
		AddPasswordField("Password", "", 40, '*', nil).
		AddButton("Login", func() {
			if l.onLogin == nil {
				return
			}
			email := l.form.GetFormItemByLabel("Email").(*tview.InputField).GetText()
			password := l.form.GetFormItemByLabel("Password").(*tview.InputField).GetText()
			if email != "" && password != "" {
				l.onLogin(email, password)
			}
		})
	l.form.SetBorder(true).SetTitle(" Sign in ")

	l.status = tview.NewTextView().SetDynamicColors(true)

	l.Flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			AddItem(nil, 0, 1, false).
			AddItem(l.form, 50, 0, true).
			AddItem(nil, 0, 1, false), 11, 0, true).
		AddItem(l.status, 1, 0, false).
		AddItem(nil, 0, 1, false)

	return l
}

// SetOnLogin sets the callback for a submitted login.
func (l *Login) SetOnLogin(fn func(email, password string)) {
	l.onLogin = fn
}

// SetError shows a login failure under the form.
func (l *Login) SetError(msg string) {
	l.status.Clear()
	if msg != "" {
		_, _ = l.status.Write([]byte("  [orangered]" + tview.Escape(msg) + "[-]"))
	}
}
