package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pulsemail/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// BounceThreshold is the number of bounces before a contact is marked
	// permanently bounced
	BounceThreshold = 3

	// SoftBounceRetryDays is the cooldown before a soft-bounced contact
	// becomes retry-eligible
	SoftBounceRetryDays = 7
)

// Bounce types
const (
	BounceTypeHard = "hard"
	BounceTypeSoft = "soft"
)

var (
	ErrContactNotFound   = errors.New("contact not found")
	ErrInvalidBounceType = errors.New("bounce type must be either \"hard\" or \"soft\"")
)

// BounceInput is the canonical bounce notification shape all provider
// adapters normalize into
type BounceInput struct {
	Email          string     `json:"email"`
	ContactID      uint       `json:"contact_id"`
	BounceType     string     `json:"bounce_type"`
	BounceReason   string     `json:"bounce_reason"`
	CampaignID     *uint      `json:"campaign_id"`
	DiagnosticCode string     `json:"diagnostic_code"`
	Timestamp      *time.Time `json:"timestamp"`
}

// BounceResult reports the outcome of processing one bounce
type BounceResult struct {
	Success    bool   `json:"success"`
	Contact    string `json:"contact"`
	BounceType string `json:"bounce_type"`
	Status     string `json:"status"`
}

// BounceStats aggregates bounce events for an organization
type BounceStats struct {
	Total       int            `json:"total"`
	HardBounces int            `json:"hard_bounces"`
	SoftBounces int            `json:"soft_bounces"`
	ByReason    map[string]int `json:"by_reason"`
	ByDate      map[string]int `json:"by_date"`
}

// BouncedContactsOptions filters the bounced-contacts listing
type BouncedContactsOptions struct {
	Limit       int
	Offset      int
	IncludeHard bool
	IncludeSoft bool
}

// CleanupResult reports a bounced-contact cleanup run
type CleanupResult struct {
	DeletedCount int64     `json:"deleted_count"`
	CutoffDate   time.Time `json:"cutoff_date"`
}

// BounceHandler ingests bounce notifications, mutates contact bounce state
// and keeps campaign bounce counters consistent with the event log
type BounceHandler struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewBounceHandler(db *gorm.DB, logger *logrus.Logger) *BounceHandler {
	return &BounceHandler{
		DB:     db,
		Logger: logger,
	}
}

// ProcessBounce records a bounce event and applies the escalation policy to
// the affected contact. The event append and the contact mutation run in one
// transaction, with the contact row locked, so concurrent bounces for the
// same contact cannot lose increments or leave a dangling event.
func (bh *BounceHandler) ProcessBounce(input BounceInput) (*BounceResult, error) {
	if input.BounceType != BounceTypeHard && input.BounceType != BounceTypeSoft {
		return nil, ErrInvalidBounceType
	}
	if input.ContactID == 0 && input.Email == "" {
		return nil, errors.New("either contact_id or email is required")
	}

	now := time.Now().UTC()
	eventTime := now
	if input.Timestamp != nil {
		eventTime = input.Timestamp.UTC()
	}

	var contact models.Contact
	err := bh.DB.Transaction(func(tx *gorm.DB) error {
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"})
		if input.ContactID != 0 {
			query = query.Where("id = ?", input.ContactID)
		} else {
			query = query.Where("email = ?", strings.ToLower(input.Email))
		}
		if err := query.First(&contact).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContactNotFound
			}
			return err
		}

		event := models.EmailEvent{
			OrganizationID: contact.OrganizationID,
			CampaignID:     input.CampaignID,
			ContactID:      contact.ID,
			EventType:      models.EventBounced,
			Metadata: models.JSONB{
				"bounceType":     input.BounceType,
				"bounceReason":   input.BounceReason,
				"diagnosticCode": input.DiagnosticCode,
				"timestamp":      eventTime.Format(time.RFC3339),
			},
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		if input.BounceType == BounceTypeHard {
			applyHardBounce(&contact, input.BounceReason, now)
		} else {
			applySoftBounce(&contact, input.BounceReason, now)
		}

		return tx.Save(&contact).Error
	})
	if err != nil {
		return nil, err
	}

	bh.Logger.WithFields(logrus.Fields{
		"contact":      contact.Email,
		"bounce_type":  input.BounceType,
		"bounce_count": contact.BounceCount,
		"status":       contact.Status,
	}).Info("Bounce processed")

	// Campaign counter refresh is best-effort; the bounce itself is committed
	if input.CampaignID != nil {
		if err := bh.updateCampaignBounceStats(*input.CampaignID); err != nil {
			bh.Logger.WithError(err).WithField("campaign_id", *input.CampaignID).
				Warn("Failed to update campaign bounce stats")
		}
	}

	return &BounceResult{
		Success:    true,
		Contact:    contact.Email,
		BounceType: input.BounceType,
		Status:     contact.Status,
	}, nil
}

// applyHardBounce marks a contact bounced immediately
func applyHardBounce(contact *models.Contact, reason string, now time.Time) {
	contact.Status = models.ContactStatusBounced
	contact.BounceCount++
	contact.LastBounceAt = Pointer(now)
	contact.BounceReason = Pointer(reason)

	if contact.Metadata == nil {
		contact.Metadata = models.JSONB{}
	}
	contact.Metadata["hardBounce"] = true
	contact.Metadata["hardBounceReason"] = reason
}

// applySoftBounce tracks a soft bounce and escalates to bounced once the
// post-increment count reaches the threshold. Below the threshold the
// contact status is left untouched pending retry.
func applySoftBounce(contact *models.Contact, reason string, now time.Time) {
	contact.BounceCount++
	contact.LastBounceAt = Pointer(now)
	contact.BounceReason = Pointer(reason)

	if contact.Metadata == nil {
		contact.Metadata = models.JSONB{}
	}
	contact.Metadata["lastSoftBounce"] = now.Format(time.RFC3339)
	contact.Metadata["softBounceReason"] = reason

	if contact.BounceCount >= BounceThreshold {
		contact.Status = models.ContactStatusBounced
		contact.Metadata["permanentBounce"] = true
	}
}

// updateCampaignBounceStats recomputes a campaign's bounce counter from the
// event log rather than incrementing, so it self-heals after replays
func (bh *BounceHandler) updateCampaignBounceStats(campaignID uint) error {
	var count int64
	if err := bh.DB.Model(&models.EmailEvent{}).
		Where("campaign_id = ? AND event_type = ?", campaignID, models.EventBounced).
		Count(&count).Error; err != nil {
		return err
	}

	return bh.DB.Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Update("bounced_count", count).Error
}

// GetRetryEligibleContacts returns subscribed contacts below the permanent
// bounce threshold whose last bounce is older than the retry cooldown
func (bh *BounceHandler) GetRetryEligibleContacts(organizationID uint) ([]models.Contact, error) {
	var contacts []models.Contact
	err := bh.DB.
		Where("organization_id = ?", organizationID).
		Where("status = ?", models.ContactStatusSubscribed).
		Where("bounce_count > 0 AND bounce_count < ?", BounceThreshold).
		Where("last_bounce_at < ?", retryCutoff(time.Now().UTC())).
		Find(&contacts).Error
	return contacts, err
}

// retryCutoff returns the newest last-bounce time still eligible for retry
func retryCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -SoftBounceRetryDays)
}

// ResetBounceCount is the manual override that moves a contact out of
// bounced status. It is the only path that does so.
func (bh *BounceHandler) ResetBounceCount(contactID uint) (*models.Contact, error) {
	var contact models.Contact
	if err := bh.DB.First(&contact, contactID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}

	resetBounceState(&contact, time.Now().UTC())

	if err := bh.DB.Save(&contact).Error; err != nil {
		return nil, err
	}

	bh.Logger.WithField("contact", contact.Email).Info("Bounce count reset")
	return &contact, nil
}

// resetBounceState zeroes bounce tracking and forces the contact back to
// subscribed. Running it twice yields the same terminal state.
func resetBounceState(contact *models.Contact, now time.Time) {
	contact.BounceCount = 0
	contact.BounceReason = nil
	contact.LastBounceAt = nil
	contact.Status = models.ContactStatusSubscribed

	if contact.Metadata == nil {
		contact.Metadata = models.JSONB{}
	}
	contact.Metadata["bounceReset"] = true
	contact.Metadata["bounceResetAt"] = now.Format(time.RFC3339)
}

// CleanupBouncedContacts deletes bounced contacts whose last bounce is older
// than daysOld. Irreversible.
func (bh *BounceHandler) CleanupBouncedContacts(organizationID uint, daysOld int) (*CleanupResult, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -daysOld)

	result := bh.DB.
		Where("organization_id = ?", organizationID).
		Where("status = ?", models.ContactStatusBounced).
		Where("last_bounce_at < ?", cutoff).
		Delete(&models.Contact{})
	if result.Error != nil {
		return nil, result.Error
	}

	bh.Logger.WithFields(logrus.Fields{
		"organization_id": organizationID,
		"deleted":         result.RowsAffected,
		"cutoff":          cutoff,
	}).Info("Cleaned up bounced contacts")

	return &CleanupResult{
		DeletedCount: result.RowsAffected,
		CutoffDate:   cutoff,
	}, nil
}

// GetBouncedContacts returns a page of bounced contacts, newest bounce first
func (bh *BounceHandler) GetBouncedContacts(organizationID uint, opts BouncedContactsOptions) ([]models.Contact, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	query := bh.DB.
		Where("organization_id = ?", organizationID).
		Where("status = ?", models.ContactStatusBounced)

	// Hard bounces carry the hardBounce metadata flag; everything else under
	// bounced status came through the soft-bounce threshold
	if opts.IncludeHard && !opts.IncludeSoft {
		query = query.Where("metadata ->> 'hardBounce' = 'true'")
	} else if opts.IncludeSoft && !opts.IncludeHard {
		query = query.Where("metadata ->> 'hardBounce' IS NULL OR metadata ->> 'hardBounce' <> 'true'")
	}

	var contacts []models.Contact
	err := query.
		Order("last_bounce_at DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&contacts).Error
	return contacts, err
}

// GetBounceStats aggregates bounce events, optionally date-bounded
func (bh *BounceHandler) GetBounceStats(organizationID uint, startDate, endDate *time.Time) (*BounceStats, error) {
	query := bh.DB.
		Where("organization_id = ?", organizationID).
		Where("event_type = ?", models.EventBounced)

	if startDate != nil && endDate != nil {
		query = query.Where("created_at BETWEEN ? AND ?", *startDate, *endDate)
	}

	var events []models.EmailEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}

	return aggregateBounceStats(events), nil
}

// aggregateBounceStats folds bounce events into hard/soft totals plus
// per-reason and per-UTC-day buckets. Missing type or reason buckets under
// "unknown".
func aggregateBounceStats(events []models.EmailEvent) *BounceStats {
	stats := &BounceStats{
		Total:    len(events),
		ByReason: make(map[string]int),
		ByDate:   make(map[string]int),
	}

	for _, event := range events {
		bounceType := metadataString(event.Metadata, "bounceType")
		reason := metadataString(event.Metadata, "bounceReason")

		switch bounceType {
		case BounceTypeHard:
			stats.HardBounces++
		case BounceTypeSoft:
			stats.SoftBounces++
		}

		stats.ByReason[reason]++
		stats.ByDate[event.CreatedAt.UTC().Format("2006-01-02")]++
	}

	return stats
}

func metadataString(metadata models.JSONB, key string) string {
	if metadata == nil {
		return "unknown"
	}
	value, ok := metadata[key]
	if !ok || value == nil {
		return "unknown"
	}
	str := fmt.Sprintf("%v", value)
	if str == "" {
		return "unknown"
	}
	return str
}
