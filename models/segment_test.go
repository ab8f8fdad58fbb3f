package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestSegmentCriteriaIsEmpty(t *testing.T) {
	assert.True(t, SegmentCriteria{}.IsEmpty())
	assert.False(t, SegmentCriteria{Status: "subscribed"}.IsEmpty())
	assert.False(t, SegmentCriteria{Tags: []string{"vip"}}.IsEmpty())
	assert.False(t, SegmentCriteria{LeadScoreMin: intPtr(0)}.IsEmpty())
}

func TestSegmentCriteriaJSONFieldNames(t *testing.T) {
	criteria := SegmentCriteria{
		HasTag:       "vip",
		LeadScoreMin: intPtr(10),
		CreatedAfter: "2025-01-01",
		EmailDomain:  "acme.io",
	}

	data, err := json.Marshal(criteria)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "hasTag")
	assert.Contains(t, raw, "leadScoreMin")
	assert.Contains(t, raw, "createdAfter")
	assert.Contains(t, raw, "emailDomain")
	// Unset fields are omitted entirely
	assert.NotContains(t, raw, "tags")
	assert.NotContains(t, raw, "status")
}

func TestSegmentCriteriaScan(t *testing.T) {
	var criteria SegmentCriteria
	require.NoError(t, criteria.Scan([]byte(`{"hasTag":"vip","leadScoreMax":500}`)))
	assert.Equal(t, "vip", criteria.HasTag)
	require.NotNil(t, criteria.LeadScoreMax)
	assert.Equal(t, 500, *criteria.LeadScoreMax)

	require.NoError(t, criteria.Scan(nil))
	assert.True(t, criteria.IsEmpty())

	require.NoError(t, criteria.Scan(`{"status":"bounced"}`))
	assert.Equal(t, "bounced", criteria.Status)

	assert.Error(t, criteria.Scan(42))
}

func TestJSONBScanAndValue(t *testing.T) {
	var meta JSONB
	require.NoError(t, meta.Scan([]byte(`{"hardBounce":true,"bounceReason":"unknown user"}`)))
	assert.Equal(t, true, meta["hardBounce"])
	assert.Equal(t, "unknown user", meta["bounceReason"])

	value, err := meta.Value()
	require.NoError(t, err)
	var roundTrip map[string]interface{}
	require.NoError(t, json.Unmarshal(value.([]byte), &roundTrip))
	assert.Equal(t, true, roundTrip["hardBounce"])
}

func TestJSONBValueNil(t *testing.T) {
	var meta JSONB
	value, err := meta.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), value)
}

func TestContactHasTag(t *testing.T) {
	contact := Contact{Tags: []string{"vip", "trial"}}
	assert.True(t, contact.HasTag("vip"))
	assert.False(t, contact.HasTag("VIP"))
	assert.False(t, contact.HasTag("beta"))
}
