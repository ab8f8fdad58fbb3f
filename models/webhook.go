package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// WebhookEndpoint is a store-backed registration for outbound event
// notifications. Deliveries are signed with the endpoint secret
// (HMAC-SHA256 over the payload).
type WebhookEndpoint struct {
	gorm.Model
	OrganizationID uint `gorm:"not null;index" json:"organization_id"`

	URL         string         `gorm:"not null" json:"url"`
	Events      pq.StringArray `gorm:"type:text[]" json:"events"`
	Description string         `json:"description"`
	Secret      string         `gorm:"not null" json:"-"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`

	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`

	// Delivery stats
	TotalDeliveries      int `gorm:"default:0" json:"total_deliveries"`
	SuccessfulDeliveries int `gorm:"default:0" json:"successful_deliveries"`
	FailedDeliveries     int `gorm:"default:0" json:"failed_deliveries"`
}
