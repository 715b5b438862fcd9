package errorutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	cause := errors.New("write /dev/ttyACM0: broken pipe")
	err := fmt.Errorf("rotate plastic: %w", Device("actuator send failed", cause))

	assert.True(t, IsKind(err, KindDevice))
	assert.False(t, IsKind(err, KindRegistry))
	assert.False(t, IsRetryable(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "actuator send failed: write /dev/ttyACM0: broken pipe", Wrap(err).Error())
}

func TestRegistryErrorsAreRetryable(t *testing.T) {
	err := Registry("get levels", errors.New("connection refused"))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 502, Wrap(err).Code)
}

func TestWrapPlainError(t *testing.T) {
	assert.Nil(t, Wrap(nil))

	e := Wrap(errors.New("boom"))
	assert.Equal(t, 500, e.Code)
	assert.False(t, e.Retryable)
	assert.Equal(t, "boom", e.Message)
}
