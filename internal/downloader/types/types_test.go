package types

import "testing"

func TestClientStatus_Complete(t *testing.T) {
	tests := []struct {
		progress float64
		want     bool
	}{
		{0, false},
		{0.5, false},
		{0.9999, false},
		{1, true},
		{1.0000001, true},
	}
	for _, tt := range tests {
		if got := (ClientStatus{Progress: tt.progress}).Complete(); got != tt.want {
			t.Errorf("Complete() with progress %v = %v, want %v", tt.progress, got, tt.want)
		}
	}
}
