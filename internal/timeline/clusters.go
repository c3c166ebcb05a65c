package timeline

import (
	"strconv"
	"strings"

	"github.com/bishaldk/samvad/internal/thread"
)

// Consecutive messages from one sender inside this window render as a
// cluster sharing a name line and one trailing time/status row.
const clusterWindowMinutes = 5

// Cluster is a run of consecutive messages from the same sender.
type Cluster struct {
	Sender      string
	SenderName  string
	SenderEmail string
	Messages    []thread.Message
}

// Clusters groups a bucket's messages into consecutive-sender runs. A new
// run starts when the sender changes or the gap reaches the window.
func Clusters(msgs []thread.Message) []Cluster {
	var out []Cluster
	for _, m := range msgs {
		if n := len(out); n > 0 && out[n-1].Sender == m.Sender {
			last := out[n-1].Messages[len(out[n-1].Messages)-1]
			if minutesOfDay(m.Timestamp)-minutesOfDay(last.Timestamp) < clusterWindowMinutes {
				out[n-1].Messages = append(out[n-1].Messages, m)
				continue
			}
		}
		out = append(out, Cluster{
			Sender:      m.Sender,
			SenderName:  m.SenderName,
			SenderEmail: m.SenderEmail,
			Messages:    []thread.Message{m},
		})
	}
	return out
}

// Last returns the cluster's newest message, which carries the displayed
// timestamp and status glyph.
func (c Cluster) Last() thread.Message {
	return c.Messages[len(c.Messages)-1]
}

// ClockTime extracts HH:MM from a thread timestamp for display.
func ClockTime(ts string) string {
	_, rest, ok := strings.Cut(ts, "T")
	if !ok || len(rest) < 5 {
		return ""
	}
	return rest[:5]
}

func minutesOfDay(ts string) int {
	hhmm := ClockTime(ts)
	if len(hhmm) != 5 {
		return 0
	}
	h, err1 := strconv.Atoi(hhmm[:2])
	m, err2 := strconv.Atoi(hhmm[3:])
	if err1 != nil || err2 != nil {
		return 0
	}
	return h*60 + m
}
