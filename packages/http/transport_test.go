package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIdleDialer_UsesIdleTimeout(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, newIdleDialer(200*time.Millisecond).Timeout)
	assert.Equal(t, DefaultTimeout, newIdleDialer(DefaultTimeout).Timeout)
}
