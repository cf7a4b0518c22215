package util

import (
	"strings"
	"testing"
)

func TestReadSecretLine(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"testpass\n", "testpass", false},
		{"testpass\r\n", "testpass", false},
		{"no-newline", "no-newline", false},
		{"first\nsecond\n", "first", false},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := readSecretLine(strings.NewReader(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("readSecretLine(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("readSecretLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
