package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zapgate/zapgate/internal/domain"
)

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "logged out", err: domain.ErrLoggedOut, want: false},
		{name: "wrapped logged out", err: fmt.Errorf("connection closed: %w", domain.ErrLoggedOut), want: false},
		{name: "acquire timeout", err: domain.ErrAcquireTimeout, want: false},
		{name: "stream errored", err: errors.New("Stream Errored (conflict)"), want: true},
		{name: "connection failure", err: errors.New("connection closed before opening: Connection Failure"), want: true},
		{name: "restart required", err: errors.New("restart required"), want: true},
		{name: "unknown failure", err: errors.New("bad session credentials"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRecoverable(tt.err))
		})
	}
}
