package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Contact statuses
const (
	ContactStatusSubscribed   = "subscribed"
	ContactStatusUnsubscribed = "unsubscribed"
	ContactStatusBounced      = "bounced"
	ContactStatusComplained   = "complained"
)

// Lead score bounds enforced by every mutating path
const (
	LeadScoreMin = 0
	LeadScoreMax = 1000
)

// JSONB is an open-ended key/value column (contact metadata, org settings)
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = JSONB{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSONB scan")
	}
	if len(data) == 0 {
		*j = JSONB{}
		return nil
	}
	return json.Unmarshal(data, j)
}

// Contact represents a single contact, unique per (email, organization)
type Contact struct {
	gorm.Model
	OrganizationID uint `gorm:"not null;index;uniqueIndex:idx_contacts_email_org" json:"organization_id"`

	Email     string `gorm:"not null;uniqueIndex:idx_contacts_email_org" json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	JobTitle  string `json:"job_title"`
	Source    string `json:"source"` // landing page, import, api, etc.

	Status string `gorm:"default:subscribed;index" json:"status"`

	Tags      pq.StringArray `gorm:"type:text[]" json:"tags"`
	LeadScore int            `gorm:"default:0" json:"lead_score"`

	// Bounce state, mutated only by the bounce handler
	BounceCount  int        `gorm:"default:0;index" json:"bounce_count"`
	BounceReason *string    `json:"bounce_reason"`
	LastBounceAt *time.Time `json:"last_bounce_at"`

	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	Metadata       JSONB      `gorm:"type:jsonb;default:'{}'" json:"metadata"`
}

// HasTag reports whether the contact carries the exact tag
func (c *Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
