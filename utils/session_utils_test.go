package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSessionID(t *testing.T) {
	now := time.UnixMilli(1718000000123)

	id := GenerateSessionID(now)
	assert.Regexp(t, regexp.MustCompile(`^1718000000123-[0-9a-z]{9}$`), id)
	assert.NotEqual(t, id, GenerateSessionID(now))
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsValidInterval("Day"))
	assert.False(t, IsValidInterval("day"))
	assert.Equal(t, 0.0, SafeDiv(1, 0))
	assert.Equal(t, 2.5, SafeDiv(5, 2))
	assert.Equal(t, 1.24, Round2(1.2351))
	assert.Equal(t, -1.24, Round2(-1.2351))
}
