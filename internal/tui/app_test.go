package tui

import "testing"

func TestParseImageCommand(t *testing.T) {
	tests := []struct {
		in            string
		path, caption string
		ok            bool
	}{
		{"/image cat.png", "cat.png", "", true},
		{"/image cat.png look at this", "cat.png", "look at this", true},
		{"/image ", "", "", false},
		{"hello there", "", "", false},
		{"/imagecat.png", "", "", false},
	}
	for _, tt := range tests {
		path, caption, ok := parseImageCommand(tt.in)
		if path != tt.path || caption != tt.caption || ok != tt.ok {
			t.Errorf("parseImageCommand(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, path, caption, ok, tt.path, tt.caption, tt.ok)
		}
	}
}
