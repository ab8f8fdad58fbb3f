package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSESBouncePermanent(t *testing.T) {
	payload := []byte(`{
		"notificationType": "Bounce",
		"bounce": {
			"bounceType": "Permanent",
			"bounceSubType": "General",
			"timestamp": "2025-04-01T10:30:00Z",
			"bouncedRecipients": [
				{"emailAddress": "a@example.com", "diagnosticCode": "smtp; 550 5.1.1 user unknown"},
				{"emailAddress": "b@example.com"}
			]
		}
	}`)

	inputs := ParseSESBounce(payload)
	require.Len(t, inputs, 2)

	assert.Equal(t, "a@example.com", inputs[0].Email)
	assert.Equal(t, BounceTypeHard, inputs[0].BounceType)
	assert.Equal(t, "smtp; 550 5.1.1 user unknown", inputs[0].BounceReason)
	require.NotNil(t, inputs[0].Timestamp)
	assert.Equal(t, time.Date(2025, 4, 1, 10, 30, 0, 0, time.UTC), inputs[0].Timestamp.UTC())

	// Missing diagnostic code falls back to the bounce subtype
	assert.Equal(t, "General", inputs[1].BounceReason)
}

func TestParseSESBounceTransientIsSoft(t *testing.T) {
	payload := []byte(`{
		"notificationType": "Bounce",
		"bounce": {
			"bounceType": "Transient",
			"bounceSubType": "MailboxFull",
			"bouncedRecipients": [{"emailAddress": "full@example.com"}]
		}
	}`)

	inputs := ParseSESBounce(payload)
	require.Len(t, inputs, 1)
	assert.Equal(t, BounceTypeSoft, inputs[0].BounceType)
	assert.Equal(t, "MailboxFull", inputs[0].BounceReason)
}

func TestParseSESBounceSkipsEmptyRecipients(t *testing.T) {
	payload := []byte(`{
		"notificationType": "Bounce",
		"bounce": {
			"bounceType": "Permanent",
			"bouncedRecipients": [{"emailAddress": ""}, {"emailAddress": "x@example.com"}]
		}
	}`)

	inputs := ParseSESBounce(payload)
	require.Len(t, inputs, 1)
	assert.Equal(t, "x@example.com", inputs[0].Email)
}

func TestParseSESBounceMalformed(t *testing.T) {
	assert.Empty(t, ParseSESBounce([]byte(`not json`)))
	assert.Empty(t, ParseSESBounce([]byte(`{"notificationType":"Delivery"}`)))
	assert.Empty(t, ParseSESBounce([]byte(`{}`)))
}

func TestParseSendGridBounce(t *testing.T) {
	payload := []byte(`{
		"email": "gone@example.com",
		"event": "bounce",
		"reason": "550 user does not exist",
		"status": "5.1.1",
		"timestamp": 1743500000
	}`)

	input := ParseSendGridBounce(payload)
	require.NotNil(t, input)
	assert.Equal(t, "gone@example.com", input.Email)
	assert.Equal(t, BounceTypeHard, input.BounceType)
	assert.Equal(t, "550 user does not exist", input.BounceReason)
	assert.Equal(t, "5.1.1", input.DiagnosticCode)
	require.NotNil(t, input.Timestamp)
	assert.Equal(t, int64(1743500000), input.Timestamp.Unix())
}

func TestParseSendGridDeferredIsSoft(t *testing.T) {
	payload := []byte(`{"email": "slow@example.com", "event": "deferred", "status": "4.2.2"}`)

	input := ParseSendGridBounce(payload)
	require.NotNil(t, input)
	assert.Equal(t, BounceTypeSoft, input.BounceType)
	// No reason, falls back to status
	assert.Equal(t, "4.2.2", input.BounceReason)
	assert.Nil(t, input.Timestamp)
}

func TestParseSendGridBounceMalformed(t *testing.T) {
	assert.Nil(t, ParseSendGridBounce([]byte(`{{`)))
	assert.Nil(t, ParseSendGridBounce([]byte(`{"event":"bounce"}`)))
}
