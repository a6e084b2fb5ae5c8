package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"open", StatusOpen},
		{"awarded", StatusAwarded},
		{"closed", StatusClosed},
		{"garbage", StatusOpen},
		{"", StatusOpen},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseStatus(tt.in), "input %q", tt.in)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusAwarded, StatusClosed} {
		assert.Equal(t, s, ParseStatus(s.String()))
	}
}
