package types

import (
	"errors"
	"testing"
	"time"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in      string
		want    Interval
		wantDur time.Duration
		wantErr error
	}{
		{"D", Day, 24 * time.Hour, nil},
		{"60", Hour, time.Hour, nil},
		{"W", Week, 7 * 24 * time.Hour, nil},
		{"1", OneMinute, time.Minute, nil},
		{"M", "", 0, ErrUnknownInterval},
		{"", "", 0, ErrUnknownInterval},
	}
	for _, tt := range tests {
		got, err := ParseInterval(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ParseInterval(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want || got.Duration() != tt.wantDur {
			t.Errorf("ParseInterval(%q) = %q (%s), want %q (%s)", tt.in, got, got.Duration(), tt.want, tt.wantDur)
		}
	}
}
