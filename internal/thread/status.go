package thread

// Status is the delivery state of a message, advancing
// sending → sent → delivered → read. It never moves backwards; the only exit
// from the ladder is failed, used when the socket accepted a send and then
// broke before the server echoed it.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

var statusRank = map[Status]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Upgrade returns next if it is strictly ahead of cur on the delivery ladder,
// otherwise cur. Unknown and failed statuses never win an upgrade.
func Upgrade(cur, next Status) Status {
	nr, ok := statusRank[next]
	if !ok {
		return cur
	}
	cr, ok := statusRank[cur]
	if !ok {
		return cur
	}
	if nr > cr {
		return next
	}
	return cur
}

// InferFromRead maps a persisted read flag onto the ladder, the way history
// pages report status.
func InferFromRead(isRead bool) Status {
	if isRead {
		return StatusRead
	}
	return StatusSent
}
