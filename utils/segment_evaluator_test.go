package utils

import (
	"testing"
	"time"

	"pulsemail/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileCriteriaEmpty(t *testing.T) {
	conditions := CompileCriteria(models.SegmentCriteria{})
	assert.Empty(t, conditions, "empty criteria should match the whole organization")
}

func TestCompileCriteriaTagsOverlap(t *testing.T) {
	conditions := CompileCriteria(models.SegmentCriteria{Tags: []string{"vip", "trial"}})

	require.Len(t, conditions, 1)
	assert.Equal(t, "tags && ?", conditions[0].Query)
	require.Len(t, conditions[0].Args, 1)
}

func TestCompileCriteriaHasTag(t *testing.T) {
	conditions := CompileCriteria(models.SegmentCriteria{HasTag: "newsletter"})

	require.Len(t, conditions, 1)
	assert.Equal(t, "tags @> ?", conditions[0].Query)
}

func TestCompileCriteriaStatus(t *testing.T) {
	conditions := CompileCriteria(models.SegmentCriteria{Status: models.ContactStatusSubscribed})

	require.Len(t, conditions, 1)
	assert.Equal(t, "status = ?", conditions[0].Query)
	assert.Equal(t, []interface{}{"subscribed"}, conditions[0].Args)
}

func TestCompileCriteriaLeadScoreRange(t *testing.T) {
	conditions := CompileCriteria(models.SegmentCriteria{
		LeadScoreMin: Pointer(10),
		LeadScoreMax: Pointer(500),
	})

	require.Len(t, conditions, 2)
	assert.Equal(t, "lead_score >= ?", conditions[0].Query)
	assert.Equal(t, []interface{}{10}, conditions[0].Args)
	assert.Equal(t, "lead_score <= ?", conditions[1].Query)
	assert.Equal(t, []interface{}{500}, conditions[1].Args)
}

func TestCompileCriteriaZeroLeadScoreMinIsKept(t *testing.T) {
	// An explicit zero bound is a real predicate, not an unset field
	conditions := CompileCriteria(models.SegmentCriteria{LeadScoreMin: Pointer(0)})

	require.Len(t, conditions, 1)
	assert.Equal(t, []interface{}{0}, conditions[0].Args)
}

func TestCompileCriteriaCreatedDates(t *testing.T) {
	conditions := CompileCriteria(models.SegmentCriteria{
		CreatedAfter:  "2025-01-01",
		CreatedBefore: "2025-06-30T23:59:59Z",
	})

	require.Len(t, conditions, 2)
	assert.Equal(t, "created_at >= ?", conditions[0].Query)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), conditions[0].Args[0])
	assert.Equal(t, "created_at <= ?", conditions[1].Query)
	assert.Equal(t, time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC), conditions[1].Args[0])
}

func TestCompileCriteriaUnparseableDateIsSkipped(t *testing.T) {
	conditions := CompileCriteria(models.SegmentCriteria{
		CreatedAfter: "last tuesday",
		Status:       "subscribed",
	})

	require.Len(t, conditions, 1)
	assert.Equal(t, "status = ?", conditions[0].Query)
}

func TestCompileCriteriaCompany(t *testing.T) {
	conditions := CompileCriteria(models.SegmentCriteria{Company: "Acme"})

	require.Len(t, conditions, 1)
	assert.Equal(t, "company ILIKE ?", conditions[0].Query)
	assert.Equal(t, []interface{}{"%Acme%"}, conditions[0].Args)
}

func TestCompileCriteriaEmailDomain(t *testing.T) {
	conditions := CompileCriteria(models.SegmentCriteria{EmailDomain: "example.com"})

	require.Len(t, conditions, 1)
	assert.Equal(t, "email ILIKE ?", conditions[0].Query)
	assert.Equal(t, []interface{}{"%@example.com"}, conditions[0].Args)
}

func TestCompileCriteriaCombinesAllFields(t *testing.T) {
	criteria := models.SegmentCriteria{
		Tags:          []string{"vip"},
		HasTag:        "newsletter",
		Status:        "subscribed",
		LeadScoreMin:  Pointer(50),
		LeadScoreMax:  Pointer(900),
		CreatedAfter:  "2025-01-01",
		CreatedBefore: "2025-12-31",
		Company:       "Acme",
		EmailDomain:   "acme.io",
	}

	conditions := CompileCriteria(criteria)
	assert.Len(t, conditions, 9, "every set field contributes exactly one ANDed condition")
}

func TestCompileCriteriaIsDeterministic(t *testing.T) {
	criteria := models.SegmentCriteria{
		Tags:   []string{"a", "b"},
		Status: "subscribed",
	}

	first := CompileCriteria(criteria)
	second := CompileCriteria(criteria)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Query, second[i].Query)
	}
}

func TestRefreshIfDynamicIgnoresStaticSegments(t *testing.T) {
	// A static segment must be answered from its cached count without any
	// store access; the nil DB handle makes an accidental query panic.
	evaluator := NewSegmentEvaluator(nil, nil)
	segment := &models.Segment{
		IsDynamic:    false,
		ContactCount: 42,
	}

	evaluator.RefreshIfDynamic(segment)

	assert.Equal(t, int64(42), segment.ContactCount)
}

func TestParseCriteriaTime(t *testing.T) {
	ts, ok := parseCriteriaTime("2025-02-03")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), ts)

	ts, ok = parseCriteriaTime("2025-02-03T04:05:06Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC), ts)

	_, ok = parseCriteriaTime("")
	assert.False(t, ok)

	_, ok = parseCriteriaTime("03/02/2025")
	assert.False(t, ok)
}
