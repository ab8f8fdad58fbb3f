package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign statuses
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusSending   = "sending"
	CampaignStatusSent      = "sent"
	CampaignStatusPaused    = "paused"
	CampaignStatusFailed    = "failed"
)

// Campaign represents a single email campaign
type Campaign struct {
	gorm.Model
	OrganizationID uint `gorm:"not null;index" json:"organization_id"`

	Name        string `gorm:"not null" json:"name"`
	Subject     string `gorm:"not null" json:"subject"`
	PreviewText string `json:"preview_text"`
	FromName    string `gorm:"not null" json:"from_name"`
	FromEmail   string `gorm:"not null" json:"from_email"`
	ReplyTo     string `json:"reply_to"`

	HTMLContent string `gorm:"type:text;not null" json:"html_content"`
	TextContent string `gorm:"type:text" json:"text_content"`

	Status      string     `gorm:"default:draft;index" json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`

	// Audience selection, same shape as segment criteria
	SegmentCriteria SegmentCriteria `gorm:"type:jsonb;default:'{}'" json:"segment_criteria"`

	// Denormalized counters; BouncedCount is recomputed from the event log
	// by the bounce handler whenever a bounce lands on this campaign
	SentCount         int `gorm:"default:0" json:"sent_count"`
	DeliveredCount    int `gorm:"default:0" json:"delivered_count"`
	OpenedCount       int `gorm:"default:0" json:"opened_count"`
	ClickedCount      int `gorm:"default:0" json:"clicked_count"`
	BouncedCount      int `gorm:"default:0" json:"bounced_count"`
	UnsubscribedCount int `gorm:"default:0" json:"unsubscribed_count"`
	ComplainedCount   int `gorm:"default:0" json:"complained_count"`
}
