package history

// Anchor remembers where the view was scrolled before older backlog is
// prepended, so the same message stays on screen afterwards.
type Anchor struct {
	Offset int // scroll offset before the prepend
	Extent int // content extent (rows or pixels) before the prepend
}

// Restore returns the offset that keeps the anchored content in place given
// the content extent after the prepend.
func (a Anchor) Restore(newExtent int) int {
	return a.Offset + (newExtent - a.Extent)
}
