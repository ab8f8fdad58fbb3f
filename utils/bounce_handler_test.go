package utils

import (
	"testing"
	"time"

	"pulsemail/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContact() *models.Contact {
	return &models.Contact{
		Email:    "jane@example.com",
		Status:   models.ContactStatusSubscribed,
		Metadata: models.JSONB{},
	}
}

func TestApplyHardBounceMarksContactImmediately(t *testing.T) {
	contact := newTestContact()
	now := time.Now().UTC()

	applyHardBounce(contact, "mailbox does not exist", now)

	assert.Equal(t, models.ContactStatusBounced, contact.Status)
	assert.Equal(t, 1, contact.BounceCount)
	require.NotNil(t, contact.BounceReason)
	assert.Equal(t, "mailbox does not exist", *contact.BounceReason)
	require.NotNil(t, contact.LastBounceAt)
	assert.Equal(t, true, contact.Metadata["hardBounce"])
	assert.Equal(t, "mailbox does not exist", contact.Metadata["hardBounceReason"])
}

func TestApplySoftBounceBelowThresholdKeepsStatus(t *testing.T) {
	contact := newTestContact()
	now := time.Now().UTC()

	applySoftBounce(contact, "mailbox full", now)
	assert.Equal(t, models.ContactStatusSubscribed, contact.Status)
	assert.Equal(t, 1, contact.BounceCount)

	applySoftBounce(contact, "mailbox full", now)
	assert.Equal(t, models.ContactStatusSubscribed, contact.Status)
	assert.Equal(t, 2, contact.BounceCount)

	assert.Equal(t, "mailbox full", contact.Metadata["softBounceReason"])
	assert.Nil(t, contact.Metadata["permanentBounce"])
}

func TestApplySoftBounceEscalatesExactlyAtThreshold(t *testing.T) {
	contact := newTestContact()
	now := time.Now().UTC()

	for i := 0; i < BounceThreshold-1; i++ {
		applySoftBounce(contact, "temporary failure", now)
		assert.Equal(t, models.ContactStatusSubscribed, contact.Status)
	}

	applySoftBounce(contact, "temporary failure", now)

	assert.Equal(t, BounceThreshold, contact.BounceCount)
	assert.Equal(t, models.ContactStatusBounced, contact.Status)
	assert.Equal(t, true, contact.Metadata["permanentBounce"])
}

func TestApplySoftBounceCountIsMonotonic(t *testing.T) {
	contact := newTestContact()
	now := time.Now().UTC()

	for i := 1; i <= 5; i++ {
		applySoftBounce(contact, "greylisted", now)
		assert.Equal(t, i, contact.BounceCount)
	}
	// Past the threshold the contact stays bounced
	assert.Equal(t, models.ContactStatusBounced, contact.Status)
}

func TestHardBounceOnPartiallySoftBouncedContact(t *testing.T) {
	contact := newTestContact()
	now := time.Now().UTC()

	applySoftBounce(contact, "mailbox full", now)
	applyHardBounce(contact, "domain unreachable", now)

	assert.Equal(t, models.ContactStatusBounced, contact.Status)
	assert.Equal(t, 2, contact.BounceCount)
	assert.Equal(t, true, contact.Metadata["hardBounce"])
	// Soft bounce trail is preserved alongside
	assert.Equal(t, "mailbox full", contact.Metadata["softBounceReason"])
}

func TestResetBounceStateRestoresSubscribed(t *testing.T) {
	contact := newTestContact()
	now := time.Now().UTC()

	applySoftBounce(contact, "mailbox full", now)
	applySoftBounce(contact, "mailbox full", now)
	applySoftBounce(contact, "mailbox full", now)
	require.Equal(t, models.ContactStatusBounced, contact.Status)

	resetBounceState(contact, now)

	assert.Equal(t, models.ContactStatusSubscribed, contact.Status)
	assert.Equal(t, 0, contact.BounceCount)
	assert.Nil(t, contact.BounceReason)
	assert.Nil(t, contact.LastBounceAt)
	assert.Equal(t, true, contact.Metadata["bounceReset"])
}

func TestResetBounceStateIsIdempotent(t *testing.T) {
	contact := newTestContact()
	now := time.Now().UTC()

	applyHardBounce(contact, "unknown user", now)
	resetBounceState(contact, now)
	first := *contact

	resetBounceState(contact, now)

	assert.Equal(t, first.Status, contact.Status)
	assert.Equal(t, first.BounceCount, contact.BounceCount)
	assert.Nil(t, contact.BounceReason)
	assert.Nil(t, contact.LastBounceAt)
}

func TestRetryCutoff(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	cutoff := retryCutoff(now)

	assert.Equal(t, time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC), cutoff)

	// A bounce 8 days ago is eligible, one 6 days ago is not
	assert.True(t, now.AddDate(0, 0, -8).Before(cutoff))
	assert.False(t, now.AddDate(0, 0, -6).Before(cutoff))
}

func TestAggregateBounceStats(t *testing.T) {
	events := []models.EmailEvent{
		{EventType: models.EventBounced, Metadata: models.JSONB{"bounceType": "soft", "bounceReason": "mailbox full"}},
		{EventType: models.EventBounced, Metadata: models.JSONB{"bounceType": "soft", "bounceReason": "mailbox full"}},
		{EventType: models.EventBounced, Metadata: models.JSONB{"bounceType": "hard", "bounceReason": "domain unreachable"}},
	}

	stats := aggregateBounceStats(events)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.HardBounces)
	assert.Equal(t, 2, stats.SoftBounces)
	assert.Equal(t, 2, stats.ByReason["mailbox full"])
	assert.Equal(t, 1, stats.ByReason["domain unreachable"])
}

func TestAggregateBounceStatsBucketsByUTCDay(t *testing.T) {
	day := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	events := []models.EmailEvent{
		{EventType: models.EventBounced, Metadata: models.JSONB{"bounceType": "soft"}},
		{EventType: models.EventBounced, Metadata: models.JSONB{"bounceType": "soft"}},
	}
	events[0].CreatedAt = day
	events[1].CreatedAt = day.Add(time.Hour) // crosses midnight UTC

	stats := aggregateBounceStats(events)

	assert.Equal(t, 1, stats.ByDate["2025-03-10"])
	assert.Equal(t, 1, stats.ByDate["2025-03-11"])
}

func TestAggregateBounceStatsMissingMetadata(t *testing.T) {
	events := []models.EmailEvent{
		{EventType: models.EventBounced, Metadata: nil},
		{EventType: models.EventBounced, Metadata: models.JSONB{"bounceType": "hard"}},
	}

	stats := aggregateBounceStats(events)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.HardBounces)
	assert.Equal(t, 0, stats.SoftBounces)
	assert.Equal(t, 2, stats.ByReason["unknown"])
}

func TestMetadataString(t *testing.T) {
	assert.Equal(t, "unknown", metadataString(nil, "bounceType"))
	assert.Equal(t, "unknown", metadataString(models.JSONB{}, "bounceType"))
	assert.Equal(t, "unknown", metadataString(models.JSONB{"bounceType": ""}, "bounceType"))
	assert.Equal(t, "soft", metadataString(models.JSONB{"bounceType": "soft"}, "bounceType"))
}
