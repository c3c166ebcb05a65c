package views

import "testing"

func TestComposerRestore(t *testing.T) {
	c := NewComposer()
	var typed int
	c.SetOnTyping(func() { typed++ })

	c.Restore("draft")
	if got := c.GetText(); got != "draft" {
		t.Fatalf("text = %q, want draft", got)
	}
	if typed != 0 {
		t.Fatalf("typing callback fired %d times during restore", typed)
	}
}

func TestComposerRestoreKeepsNewerInput(t *testing.T) {
	c := NewComposer()
	c.SetText("newer")

	c.Restore("old draft")
	if got := c.GetText(); got != "newer" {
		t.Fatalf("text = %q, want the newer input kept", got)
	}
}
