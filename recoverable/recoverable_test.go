package recoverable

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkedErrors(t *testing.T) {
	err := Mark(errors.New("test error"))
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, "test error", err.Error())
	assert.False(t, IsRecoverable(errors.New("test error")))
	assert.False(t, IsRecoverable(nil))
	assert.Nil(t, Mark(nil))
}

func TestPermanentOverridesHeuristics(t *testing.T) {
	err := Permanent(errors.New("upstream timeout"))
	assert.False(t, IsRecoverable(err))
	assert.True(t, IsRecoverable(errors.New("upstream timeout")))
}

func TestContextErrors(t *testing.T) {
	assert.True(t, IsRecoverable(context.DeadlineExceeded))
	assert.True(t, IsRecoverable(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.False(t, IsRecoverable(context.Canceled))
}

func TestNetworkErrors(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route")}
	assert.True(t, IsRecoverable(opErr))

	urlErr := &url.Error{Op: "Get", URL: "http://example.invalid", Err: errors.New("bad gateway")}
	assert.True(t, IsRecoverable(urlErr))

	urlErr = &url.Error{Op: "Get", URL: "http://example.invalid", Err: errors.New("malformed")}
	assert.False(t, IsRecoverable(urlErr))
}

func TestMessagePatterns(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Rate limit exceeded", true},
		{"503 Service Unavailable", true},
		{"connection reset by peer", true},
		{"invalid argument", false},
		{"key not found", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRecoverable(errors.New(tt.msg)))
		})
	}
}
