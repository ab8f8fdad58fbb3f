package controller

import (
	"testing"

	"pulsemail/config"

	"github.com/stretchr/testify/assert"
)

func TestTrackingToken(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret-do-not-use"

	token := TrackingToken(5, 9)
	assert.Len(t, token, 32)
	// Deterministic per (campaign, contact) pair
	assert.Equal(t, token, TrackingToken(5, 9))
	// Pair order matters
	assert.NotEqual(t, token, TrackingToken(9, 5))
	assert.NotEqual(t, token, TrackingToken(5, 10))
}

func TestValidTrackingToken(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret-do-not-use"

	token := TrackingToken(5, 9)
	assert.True(t, validTrackingToken(5, 9, token))
	assert.False(t, validTrackingToken(5, 9, "forged"))
	assert.False(t, validTrackingToken(6, 9, token))
	assert.False(t, validTrackingToken(5, 9, ""))
}

func TestTransparentPixelIsGIF(t *testing.T) {
	pixel := transparentPixel()
	assert.Equal(t, []byte("GIF89a"), pixel[:6])
}
