package controller

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWebhookSecret(t *testing.T) {
	first, err := generateWebhookSecret()
	require.NoError(t, err)
	second, err := generateWebhookSecret()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "whsec_"))
	assert.Len(t, first, len("whsec_")+64)
	assert.NotEqual(t, first, second)
}

func TestSignWebhookPayload(t *testing.T) {
	payload := []byte(`{"event":"bounced","contact_id":7}`)

	sig := SignWebhookPayload("whsec_abc", payload)
	assert.Len(t, sig, 64)
	// Stable for the same secret and payload
	assert.Equal(t, sig, SignWebhookPayload("whsec_abc", payload))
	// Different secret, different signature
	assert.NotEqual(t, sig, SignWebhookPayload("whsec_def", payload))
}

func TestMaskSecret(t *testing.T) {
	masked := maskSecret("whsec_0123456789abcdef0123456789abcdef")
	assert.Equal(t, "whsec_0123...cdef", masked)
	assert.NotContains(t, masked, "456789abcdef01234567")

	assert.Equal(t, "****", maskSecret("short"))
}

func TestValidateEventList(t *testing.T) {
	events, err := validateEventList([]string{"bounced", "opened"})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	_, err = validateEventList(nil)
	assert.Error(t, err)

	_, err = validateEventList([]string{"bounced", "exploded"})
	assert.Error(t, err)
}
