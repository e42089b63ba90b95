package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	assert.Equal(t, "auth error (code 401): denied", New(ErrorTypeAuth, 401, "denied").Error())
	assert.Equal(t, "empty_result error: no rows", New(ErrorTypeEmptyResult, 0, "no rows").Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := Wrap(ErrorTypeNetwork, 0, cause, "request failed")

	assert.Equal(t, "network error: request failed: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{404, ErrorTypeNotFound},
		{429, ErrorTypeRateLimit},
		{500, ErrorTypeServerError},
		{503, ErrorTypeServerError},
		{418, ErrorTypeUnknown},
	}
	for _, tt := range tests {
		err := FromStatus(tt.code)
		if assert.NotNil(t, err, "code %d", tt.code) {
			assert.Equal(t, tt.want, err.Type)
			assert.Equal(t, tt.code, err.Code)
		}
	}

	assert.Nil(t, FromStatus(200))
	assert.Nil(t, FromStatus(302))
}

func TestTypeOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("catalog lookup: %w", FromStatus(429))

	assert.Equal(t, ErrorTypeRateLimit, TypeOf(err))
	assert.True(t, IsType(err, ErrorTypeRateLimit))
	assert.False(t, IsType(err, ErrorTypeAuth))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeAuth))
	assert.False(t, IsRetryable(ErrorTypeEmptyResult))

	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(502))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(400))
}
