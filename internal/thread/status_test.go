package thread

import "testing"

func TestUpgrade(t *testing.T) {
	tests := []struct {
		cur, next, want Status
	}{
		{StatusSending, StatusSent, StatusSent},
		{StatusSent, StatusDelivered, StatusDelivered},
		{StatusDelivered, StatusRead, StatusRead},
		{StatusRead, StatusSent, StatusRead},
		{StatusRead, StatusDelivered, StatusRead},
		{StatusDelivered, StatusDelivered, StatusDelivered},
		{StatusSent, StatusFailed, StatusSent},
		{StatusSent, Status("bogus"), StatusSent},
	}
	for _, tt := range tests {
		if got := Upgrade(tt.cur, tt.next); got != tt.want {
			t.Errorf("Upgrade(%s, %s) = %s, want %s", tt.cur, tt.next, got, tt.want)
		}
	}
}

func TestInferFromRead(t *testing.T) {
	if InferFromRead(true) != StatusRead {
		t.Error("read flag should infer read")
	}
	if InferFromRead(false) != StatusSent {
		t.Error("unread flag should infer sent")
	}
}
