package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/bishaldk/samvad/internal/thread"
	"github.com/bishaldk/samvad/internal/timeline"
)

// Thread renders the merged message view: date headers, sender clusters and
// per-message status glyphs.
type Thread struct {
	*tview.TextView
	selfID     string
	peerName   string
	onTop      func()              // fired when scrolled to the top edge
	resolveURL func(string) string // maps a public id to a signed display URL
}

// NewThread creates the message view.
func NewThread() *Thread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetTitle(" Messages ")

	t := &Thread{TextView: tv}
	tv.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if (event.Key() == tcell.KeyUp || event.Key() == tcell.KeyPgUp) && t.AtTop() {
			t.RequestOlder()
		}
		return event
	})
	return t
}

// SetSelf tells the view which sender id is "You".
func (t *Thread) SetSelf(userID string) {
	t.selfID = userID
}

// SetPeer updates the title with the counterpart's name.
func (t *Thread) SetPeer(name string) {
	t.peerName = name
	if name != "" {
		t.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(name))))
	} else {
		t.SetTitle(" Messages ")
	}
}

// SetImageResolver installs the public-id to signed-URL lookup used when
// rendering confirmed image messages. A "" result keeps the raw id.
func (t *Thread) SetImageResolver(fn func(publicID string) string) {
	t.resolveURL = fn
}

// SetOnTop sets the callback fired when the view hits its top edge, used to
// request older backlog.
func (t *Thread) SetOnTop(fn func()) {
	t.onTop = fn
}

// AtTop reports whether the view is scrolled to its first row.
func (t *Thread) AtTop() bool {
	row, _ := t.GetScrollOffset()
	return row == 0
}

// RequestOlder fires the top-edge callback.
func (t *Thread) RequestOlder() {
	if t.onTop != nil {
		t.onTop()
	}
}

// Rows returns the rendered content height, for scroll anchoring.
func (t *Thread) Rows() int {
	return strings.Count(t.GetText(true), "\n")
}

// Update re-renders the whole view from a merged message slice.
func (t *Thread) Update(msgs []thread.Message, typingNames []string, stickToEnd bool) {
	t.Clear()

	var b strings.Builder
	for _, bucket := range timeline.Buckets(msgs) {
		fmt.Fprintf(&b, "[papayawhip::b]── %s ──[-:-:-]\n\n", bucket.Label)
		for _, cluster := range timeline.Clusters(bucket.Messages) {
			t.renderCluster(&b, cluster)
		}
	}
	if len(typingNames) > 0 {
		fmt.Fprintf(&b, "[navajowhite::d]%s typing...[-:-:-]\n",
			tview.Escape(strings.Join(typingNames, ", ")))
	}

	_, _ = fmt.Fprint(t, b.String())
	if stickToEnd {
		t.ScrollToEnd()
	}
}

func (t *Thread) renderCluster(b *strings.Builder, cluster timeline.Cluster) {
	name := cluster.SenderName
	color := "aqua"
	if cluster.Sender == t.selfID {
		name = "You"
		color = "orange"
	} else if name == "" {
		name = cluster.SenderEmail
	}

	fmt.Fprintf(b, "[%s::b]%s[-:-:-]\n", color, tview.Escape(sanitizeForTerminal(name)))
	for _, m := range cluster.Messages {
		body := m.Body
		if m.Kind == thread.KindImage {
			if body != "" {
				body = fmt.Sprintf("[image: %s] %s", t.imageRef(m), body)
			} else {
				body = fmt.Sprintf("[image: %s]", t.imageRef(m))
			}
		}
		fmt.Fprintf(b, "  %s", tview.Escape(sanitizeForTerminal(body)))
		if m.Sender == t.selfID {
			fmt.Fprintf(b, " %s", statusGlyph(m))
		}
		b.WriteString("\n")
	}
	last := cluster.Last()
	fmt.Fprintf(b, "  [gray::d]%s[-:-:-]\n\n", timeline.ClockTime(last.Timestamp))
}

// imageRef prefers the local file while a send is in flight, the signed URL
// (or raw server ref) afterwards.
func (t *Thread) imageRef(m thread.Message) string {
	if m.Optimistic && m.LocalPath != "" {
		return m.LocalPath
	}
	if m.Image != "" {
		if t.resolveURL != nil {
			if u := t.resolveURL(m.Image); u != "" {
				return u
			}
		}
		return m.Image
	}
	return m.LocalPath
}

// statusGlyph maps delivery state to the usual tick marks.
func statusGlyph(m thread.Message) string {
	switch m.Status {
	case thread.StatusSending:
		return "[gray]…[-]"
	case thread.StatusSent:
		return "[gray]✓[-]"
	case thread.StatusDelivered:
		return "[gray]✓✓[-]"
	case thread.StatusRead:
		return "[dodgerblue]✓✓[-]"
	case thread.StatusFailed:
		return "[orangered]![-]"
	default:
		return ""
	}
}
