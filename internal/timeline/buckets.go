package timeline

import (
	"strings"
	"time"

	"github.com/bishaldk/samvad/internal/thread"
)

// DateBucket is one day's worth of messages under a display header.
type DateBucket struct {
	Label    string // "Today", "Yesterday", "March 1" or "March 1, 2024"
	Date     string // the YYYY-MM-DD key
	Messages []thread.Message
}

// Buckets splits an already-sorted reconciled list into per-day groups.
// Pure: the store's output in, display groups out.
func Buckets(msgs []thread.Message) []DateBucket {
	return bucketsAt(msgs, time.Now().In(displayZone))
}

func bucketsAt(msgs []thread.Message, now time.Time) []DateBucket {
	var out []DateBucket
	for _, m := range msgs {
		date := datePart(m.Timestamp)
		if n := len(out); n > 0 && out[n-1].Date == date {
			out[n-1].Messages = append(out[n-1].Messages, m)
			continue
		}
		out = append(out, DateBucket{
			Label:    headerLabel(date, now),
			Date:     date,
			Messages: []thread.Message{m},
		})
	}
	return out
}

func datePart(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i > 0 {
		return ts[:i]
	}
	return ts
}

func headerLabel(date string, now time.Time) string {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	switch date {
	case today:
		return "Today"
	case yesterday:
		return "Yesterday"
	}
	if day.Year() != now.Year() {
		return day.Format("January 2, 2006")
	}
	return day.Format("January 2")
}
