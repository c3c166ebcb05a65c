package timeline

import "time"

// The backend stores message timestamps in UTC; the product displays them at
// a fixed UTC+5:45 offset (Kathmandu). Live frames carry UTC and are shifted
// at the edge; history pages arrive already shifted by the backend
// serializer.
var displayZone = time.FixedZone("display", 5*3600+45*60)

// Layout is the timestamp format used throughout the thread: RFC 3339
// without a zone suffix, so that lexicographic comparison orders entries.
const Layout = "2006-01-02T15:04:05"

// ToDisplay shifts a UTC timestamp string into the display offset, returning
// the input unchanged when it does not parse.
func ToDisplay(ts string) string {
	parsed, err := parse(ts)
	if err != nil {
		return ts
	}
	return parsed.In(displayZone).Format(Layout)
}

// Now returns the current moment formatted in the display offset; optimistic
// entries are stamped with it so they sort beside freshly confirmed ones.
func Now() string {
	return time.Now().In(displayZone).Format(Layout)
}

func parse(ts string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, Layout} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, nil
		}
	}
	return time.Parse(Layout, ts)
}
