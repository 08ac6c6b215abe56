package channels

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestErrorFormattingAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(ErrCodeUnavailable, "send failed", cause)

	assert.Equal(t, "[SERVICE_UNAVAILABLE] send failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[CONFIG_ERROR] missing token", ErrConfig("missing token", nil).Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusRequestTimeout, ErrTimeout("slow", nil).HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrConnection("down", nil).HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrInvalidInput("bad", nil).HTTPStatus())
}

func TestGetErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrTimeout("slow", nil))
	assert.Equal(t, ErrCodeTimeout, GetErrorCode(wrapped))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(errors.New("plain")))
}

func TestCodeForStatus(t *testing.T) {
	tests := map[int]ErrorCode{
		http.StatusUnauthorized:        ErrCodeAuthentication,
		http.StatusForbidden:           ErrCodeAuthentication,
		http.StatusTooManyRequests:     ErrCodeRateLimit,
		http.StatusGatewayTimeout:      ErrCodeTimeout,
		http.StatusBadGateway:          ErrCodeUnavailable,
		http.StatusBadRequest:          ErrCodeInvalidInput,
		http.StatusTemporaryRedirect:   ErrCodeInternal,
		http.StatusInternalServerError: ErrCodeUnavailable,
	}
	for status, want := range tests {
		assert.Equal(t, want, CodeForStatus(status), "status %d", status)
	}
}

func TestIsTimeout(t *testing.T) {
	assert.False(t, IsTimeout(nil))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("post: %w", timeoutErr{})))
	assert.False(t, IsTimeout(errors.New("connection refused")))
}
