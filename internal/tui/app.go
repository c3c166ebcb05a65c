// Package tui is the terminal front end: a login form, the staff sidebar and
// the message thread bound to the reconciliation layers underneath.
package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/bishaldk/samvad/internal/app"
	"github.com/bishaldk/samvad/internal/bus"
	"github.com/bishaldk/samvad/internal/history"
	"github.com/bishaldk/samvad/internal/notify"
	"github.com/bishaldk/samvad/internal/presence"
	"github.com/bishaldk/samvad/internal/rest"
	"github.com/bishaldk/samvad/internal/session"
	"github.com/bishaldk/samvad/internal/tui/views"
)

// App is the main TUI application shell.
type App struct {
	app    *tview.Application
	pages  *tview.Pages
	theme  *Theme
	logger *zap.Logger

	sup      *app.Supervisor
	rest     *rest.Client
	sess     *session.Session
	presence *presence.Tracker
	feed     *notify.Feed
	bus      *bus.Bus

	login     *views.Login
	sidebar   *views.Sidebar
	thread    *views.Thread
	composer  *views.Composer
	statusBar *views.StatusBar

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(sup *app.Supervisor, client *rest.Client, sess *session.Session, tracker *presence.Tracker, feed *notify.Feed, b *bus.Bus, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		theme:     DefaultTheme(),
		logger:    logger,
		sup:       sup,
		rest:      client,
		sess:      sess,
		presence:  tracker,
		feed:      feed,
		bus:       b,
		login:     views.NewLogin(),
		sidebar:   views.NewSidebar(),
		thread:    views.NewThread(),
		composer:  views.NewComposer(),
		statusBar: views.NewStatusBar(),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetSession(sess.Name())
	a.setupCallbacks()
	a.setupLayout()
	a.watchBus()

	return a
}

// Run starts the event loop and blocks until quit.
func (a *App) Run() error {
	defer a.cancel()
	if a.sess.Authenticated() {
		a.enterMain()
	} else {
		a.pages.SwitchToPage("login")
	}
	return a.app.SetRoot(a.pages, true).Run()
}

func (a *App) setupLayout() {
	for _, box := range []*tview.Box{a.sidebar.Box, a.thread.Box, a.composer.Box} {
		box.SetBorderColor(a.theme.BorderColor)
		box.SetBackgroundColor(a.theme.BgColor)
		box.SetTitleColor(a.theme.TitleColor)
	}
	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, false).
		AddItem(a.composer, 3, 0, true)

	main := tview.NewFlex().
		AddItem(a.sidebar, 32, 0, false).
		AddItem(right, 0, 1, true)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(main, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.pages.AddPage("login", a.login, true, false)
	a.pages.AddPage("main", root, true, false)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.app.Stop()
			return nil
		case tcell.KeyPgUp:
			if name, _ := a.pages.GetFrontPage(); name == "main" {
				a.loadOlder()
			}
		case tcell.KeyTab:
			if name, _ := a.pages.GetFrontPage(); name == "main" {
				a.toggleFocus()
				return nil
			}
		}
		return event
	})
}

func (a *App) toggleFocus() {
	if a.app.GetFocus() == a.composer {
		a.app.SetFocus(a.sidebar)
	} else {
		a.app.SetFocus(a.composer)
	}
}

func (a *App) setupCallbacks() {
	a.login.SetOnLogin(func(email, password string) {
		go a.doLogin(email, password)
	})

	a.sidebar.SetOnSelect(func(c rest.ConversationSummary) {
		go a.openConversation(c.CID, c.PeerID, c.PeerName)
	})

	a.composer.SetOnSend(func(text string) {
		go func() {
			var err error
			if path, caption, ok := parseImageCommand(text); ok {
				err = a.sendImage(path, caption)
			} else {
				err = a.sup.SendText(a.ctx, text)
			}
			if err != nil {
				a.flash("Send failed: " + err.Error())
				// Put the draft back so it can be retried or edited.
				a.app.QueueUpdateDraw(func() {
					a.composer.Restore(text)
				})
			}
			a.redraw()
		}()
	})
	a.thread.SetImageResolver(a.sup.ImageURL)
	a.composer.SetOnTyping(a.sup.NotifyTyping)

	a.thread.SetOnTop(func() {
		go a.loadOlder()
	})
}

// watchBus refreshes the views whenever a layer underneath reports change.
func (a *App) watchBus() {
	ch, unsub := a.bus.Subscribe("", 256)
	go func() {
		defer unsub()
		for {
			select {
			case <-a.ctx.Done():
				return
			case evt := <-ch:
				switch evt.Kind {
				case bus.KindThreadUpdated:
					a.redraw()
				case bus.KindPresenceChanged:
					a.app.QueueUpdateDraw(a.refreshPresence)
				case bus.KindConnState:
					a.app.QueueUpdateDraw(a.refreshSocketState)
				case bus.KindFeedUpdated:
					a.app.QueueUpdateDraw(func() {
						a.statusBar.SetUnreadNotifications(a.feed.UnreadCount())
					})
				}
			}
		}
	}()
}

// parseImageCommand recognizes "/image <path> [caption]" composer input.
func parseImageCommand(text string) (path, caption string, ok bool) {
	args, found := strings.CutPrefix(text, "/image ")
	if !found {
		return "", "", false
	}
	path, caption, _ = strings.Cut(strings.TrimSpace(args), " ")
	if path == "" {
		return "", "", false
	}
	return path, caption, true
}

func (a *App) sendImage(path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return a.sup.SendImage(a.ctx, filepath.Base(path), f, caption)
}

func (a *App) redraw() {
	a.app.QueueUpdateDraw(func() {
		a.thread.Update(a.sup.Messages(), a.presence.TypingNames(), true)
	})
}

func (a *App) refreshPresence() {
	a.statusBar.SetOnline(a.presence.Online())
	a.thread.Update(a.sup.Messages(), a.presence.TypingNames(), true)
}

func (a *App) refreshSocketState() {
	a.statusBar.SetSocket(string(a.sup.SocketState()))
}

func (a *App) flash(msg string) {
	a.logger.Warn(msg)
	a.app.QueueUpdateDraw(func() {
		a.statusBar.SetFlash(msg)
	})
	time.AfterFunc(5*time.Second, func() {
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetFlash("")
		})
	})
}

func (a *App) doLogin(email, password string) {
	if err := a.rest.Login(a.ctx, email, password); err != nil {
		a.app.QueueUpdateDraw(func() {
			a.login.SetError("Login failed: " + err.Error())
		})
		return
	}
	a.sup.RefreshIdentity()
	if err := a.sup.PersistLogin(); err != nil {
		a.logger.Warn("persisting login", zap.Error(err))
	}
	a.sup.EnsureNotifications(a.ctx)
	a.app.QueueUpdateDraw(func() {
		a.enterMain()
	})
}

// enterMain shows the chat layout and routes to the staff or user flow.
func (a *App) enterMain() {
	a.thread.SetSelf(a.sess.User().ID)
	a.pages.SwitchToPage("main")

	if a.sess.User().IsStaff {
		a.sidebar.Update(a.sup.CachedConversations())
		go a.loadSidebar()
		a.app.SetFocus(a.sidebar)
	} else {
		go a.enterOwnConversation()
		a.app.SetFocus(a.composer)
	}
}

// loadSidebar fetches the conversation list for staff accounts.
func (a *App) loadSidebar() {
	list, err := a.rest.ListConversations(a.ctx)
	if err != nil {
		a.flash("Loading conversations: " + err.Error())
		return
	}
	a.sup.CacheConversations(list)
	a.app.QueueUpdateDraw(func() {
		a.sidebar.Update(list)
	})
}

// enterOwnConversation resolves the non-staff user's single conversation. No
// conversation yet is fine: the first send creates one.
func (a *App) enterOwnConversation() {
	cid, err := a.rest.MyConversation(a.ctx)
	if errors.Is(err, rest.ErrNoConversation) {
		a.flash("No conversation yet. Say hello!")
		return
	}
	if err != nil {
		a.flash("Loading conversation: " + err.Error())
		return
	}
	a.openConversation(cid, "", "Support")
}

func (a *App) openConversation(cid, counterpart, peerName string) {
	if err := a.sup.SelectConversation(a.ctx, cid, counterpart); err != nil {
		a.flash("Opening conversation: " + err.Error())
	}
	a.app.QueueUpdateDraw(func() {
		a.thread.SetPeer(peerName)
		a.thread.Update(a.sup.Messages(), a.presence.TypingNames(), true)
		a.refreshSocketState()
		a.app.SetFocus(a.composer)
	})
}

// loadOlder pulls one older backlog page and restores the scroll position so
// the previously visible message stays put.
func (a *App) loadOlder() {
	row, _ := a.thread.GetScrollOffset()
	anchor := history.Anchor{Offset: row, Extent: a.thread.Rows()}

	added, err := a.sup.LoadOlder(a.ctx)
	if err != nil {
		a.flash("Loading history: " + err.Error())
		return
	}
	if added == 0 {
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.thread.Update(a.sup.Messages(), a.presence.TypingNames(), false)
		a.thread.ScrollTo(anchor.Restore(a.thread.Rows()), 0)
	})
}

// Stop ends the UI event loop.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
