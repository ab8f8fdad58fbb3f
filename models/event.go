package models

import "gorm.io/gorm"

// Email event types
const (
	EventSent         = "sent"
	EventDelivered    = "delivered"
	EventOpened       = "opened"
	EventClicked      = "clicked"
	EventBounced      = "bounced"
	EventUnsubscribed = "unsubscribed"
	EventComplained   = "complained"
)

// EmailEvent is an append-only log row. Rows are never mutated after
// creation; "opened" is deduplicated to one row per (campaign, contact).
type EmailEvent struct {
	gorm.Model
	OrganizationID uint  `gorm:"not null;index" json:"organization_id"`
	CampaignID     *uint `gorm:"index:idx_email_events_campaign_contact" json:"campaign_id,omitempty"`
	ContactID      uint  `gorm:"not null;index:idx_email_events_campaign_contact" json:"contact_id"`

	EventType string `gorm:"not null;index" json:"event_type"`
	Metadata  JSONB  `gorm:"type:jsonb;default:'{}'" json:"metadata"` // bounceType, bounceReason, linkUrl, ...

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}
