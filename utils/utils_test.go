package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampLeadScore(t *testing.T) {
	assert.Equal(t, 0, ClampLeadScore(-50))
	assert.Equal(t, 0, ClampLeadScore(0))
	assert.Equal(t, 500, ClampLeadScore(500))
	assert.Equal(t, 1000, ClampLeadScore(1000))
	assert.Equal(t, 1000, ClampLeadScore(99999))
}

func TestNormalizeTags(t *testing.T) {
	tags := NormalizeTags([]string{" VIP ", "vip", "Trial", "", "  "})
	assert.Equal(t, []string{"trial", "vip"}, tags)
}

func TestNormalizeTagsEmpty(t *testing.T) {
	assert.Empty(t, NormalizeTags(nil))
	assert.Empty(t, NormalizeTags([]string{"", "   "}))
}

func TestMergeTags(t *testing.T) {
	merged := MergeTags([]string{"vip"}, []string{"Trial", "VIP"})
	assert.Equal(t, []string{"trial", "vip"}, merged)
}

func TestRemoveTags(t *testing.T) {
	remaining := RemoveTags([]string{"vip", "trial", "beta"}, []string{"Trial"})
	assert.Equal(t, []string{"beta", "vip"}, remaining)

	// Removing a tag that is not present is a no-op
	remaining = RemoveTags([]string{"vip"}, []string{"unknown"})
	assert.Equal(t, []string{"vip"}, remaining)
}

func TestGenerateRateLimitKey(t *testing.T) {
	key := GenerateRateLimitKey(42, 1700000000)
	assert.Equal(t, "rl:org:42:1700000000", key)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "2 days", FormatDuration(48*time.Hour))
	assert.Equal(t, "1.5 hours", FormatDuration(90*time.Minute))
	assert.Equal(t, "5.0 minutes", FormatDuration(5*time.Minute))
	assert.Equal(t, "30.0 seconds", FormatDuration(30*time.Second))
}

func TestPointer(t *testing.T) {
	v := Pointer(7)
	assert.Equal(t, 7, *v)

	s := Pointer("hard")
	assert.Equal(t, "hard", *s)
}

func TestParseUint(t *testing.T) {
	assert.Equal(t, uint(123), ParseUint("123"))
	assert.Equal(t, uint(0), ParseUint("abc"))
	assert.Equal(t, uint(0), ParseUint(""))
}
