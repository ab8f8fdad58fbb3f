package utils

import (
	"time"

	"pulsemail/models"

	"github.com/getsentry/sentry-go"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CriteriaCondition is one compiled predicate fragment. Conditions combine
// with logical AND on top of the mandatory organization scope.
type CriteriaCondition struct {
	Query string
	Args  []interface{}
}

// CompileCriteria translates declarative segment criteria into query
// predicates. Compilation is pure and deterministic: the same criteria
// always yields the same conditions, and empty criteria yields none
// (matching every contact in the organization).
func CompileCriteria(criteria models.SegmentCriteria) []CriteriaCondition {
	var conditions []CriteriaCondition

	if len(criteria.Tags) > 0 {
		conditions = append(conditions, CriteriaCondition{
			Query: "tags && ?",
			Args:  []interface{}{pq.Array(criteria.Tags)},
		})
	}

	if criteria.HasTag != "" {
		conditions = append(conditions, CriteriaCondition{
			Query: "tags @> ?",
			Args:  []interface{}{pq.Array([]string{criteria.HasTag})},
		})
	}

	if criteria.Status != "" {
		conditions = append(conditions, CriteriaCondition{
			Query: "status = ?",
			Args:  []interface{}{criteria.Status},
		})
	}

	if criteria.LeadScoreMin != nil {
		conditions = append(conditions, CriteriaCondition{
			Query: "lead_score >= ?",
			Args:  []interface{}{*criteria.LeadScoreMin},
		})
	}

	if criteria.LeadScoreMax != nil {
		conditions = append(conditions, CriteriaCondition{
			Query: "lead_score <= ?",
			Args:  []interface{}{*criteria.LeadScoreMax},
		})
	}

	if after, ok := parseCriteriaTime(criteria.CreatedAfter); ok {
		conditions = append(conditions, CriteriaCondition{
			Query: "created_at >= ?",
			Args:  []interface{}{after},
		})
	}

	if before, ok := parseCriteriaTime(criteria.CreatedBefore); ok {
		conditions = append(conditions, CriteriaCondition{
			Query: "created_at <= ?",
			Args:  []interface{}{before},
		})
	}

	if criteria.Company != "" {
		conditions = append(conditions, CriteriaCondition{
			Query: "company ILIKE ?",
			Args:  []interface{}{"%" + criteria.Company + "%"},
		})
	}

	if criteria.EmailDomain != "" {
		conditions = append(conditions, CriteriaCondition{
			Query: "email ILIKE ?",
			Args:  []interface{}{"%@" + criteria.EmailDomain},
		})
	}

	return conditions
}

// parseCriteriaTime accepts RFC3339 timestamps or bare dates. Unparseable
// values are skipped rather than failing the whole criteria.
func parseCriteriaTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, true
	}
	if ts, err := time.Parse("2006-01-02", value); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

// SegmentEvaluator executes compiled criteria against the contact store and
// keeps segment cached counts in sync
type SegmentEvaluator struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewSegmentEvaluator(db *gorm.DB, logger *logrus.Logger) *SegmentEvaluator {
	return &SegmentEvaluator{
		DB:     db,
		Logger: logger,
	}
}

// scope applies the organization filter plus all compiled criteria
func (se *SegmentEvaluator) scope(organizationID uint, criteria models.SegmentCriteria) *gorm.DB {
	query := se.DB.Model(&models.Contact{}).Where("organization_id = ?", organizationID)
	for _, condition := range CompileCriteria(criteria) {
		query = query.Where(condition.Query, condition.Args...)
	}
	return query
}

// CountContacts returns the cardinality of contacts matching the criteria
func (se *SegmentEvaluator) CountContacts(organizationID uint, criteria models.SegmentCriteria) (int64, error) {
	var count int64
	err := se.scope(organizationID, criteria).Count(&count).Error
	return count, err
}

// SampleContacts returns a stable page of matching contacts, newest first.
// The id tiebreak keeps pagination stable for contacts created in the same
// instant.
func (se *SegmentEvaluator) SampleContacts(organizationID uint, criteria models.SegmentCriteria, limit, offset int) ([]models.Contact, error) {
	var contacts []models.Contact
	query := se.scope(organizationID, criteria).
		Order("created_at DESC, id DESC").
		Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&contacts).Error
	return contacts, err
}

// RefreshIfDynamic recomputes a dynamic segment's cached count on read and
// persists it when stale. A refresh failure must not fail the read: the
// stale count is returned and the error is logged and reported.
func (se *SegmentEvaluator) RefreshIfDynamic(segment *models.Segment) {
	if !segment.IsDynamic {
		return
	}

	count, err := se.CountContacts(segment.OrganizationID, segment.Criteria)
	if err != nil {
		se.Logger.WithError(err).WithField("segment_id", segment.ID).
			Warn("Failed to refresh dynamic segment count")
		sentry.CaptureException(err)
		return
	}

	if count == segment.ContactCount {
		return
	}

	if err := se.DB.Model(segment).Update("contact_count", count).Error; err != nil {
		se.Logger.WithError(err).WithField("segment_id", segment.ID).
			Warn("Failed to persist refreshed segment count")
		sentry.CaptureException(err)
		return
	}
	segment.ContactCount = count
}
