package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// SegmentCriteria is the declarative contact filter a segment is built from.
// All fields are optional and combine with logical AND; the owning
// organization scope is always applied on top.
type SegmentCriteria struct {
	Tags          []string `json:"tags,omitempty"`          // tag set overlaps this list
	HasTag        string   `json:"hasTag,omitempty"`        // tag set contains this exact tag
	Status        string   `json:"status,omitempty"`        // exact status match
	LeadScoreMin  *int     `json:"leadScoreMin,omitempty"`  // inclusive
	LeadScoreMax  *int     `json:"leadScoreMax,omitempty"`  // inclusive
	CreatedAfter  string   `json:"createdAfter,omitempty"`  // inclusive, RFC3339 or YYYY-MM-DD
	CreatedBefore string   `json:"createdBefore,omitempty"` // inclusive
	Company       string   `json:"company,omitempty"`       // case-insensitive substring
	EmailDomain   string   `json:"emailDomain,omitempty"`   // email domain suffix
}

// IsEmpty reports whether no criteria field is set (matches the whole org)
func (sc SegmentCriteria) IsEmpty() bool {
	return len(sc.Tags) == 0 && sc.HasTag == "" && sc.Status == "" &&
		sc.LeadScoreMin == nil && sc.LeadScoreMax == nil &&
		sc.CreatedAfter == "" && sc.CreatedBefore == "" &&
		sc.Company == "" && sc.EmailDomain == ""
}

func (sc SegmentCriteria) Value() (driver.Value, error) {
	return json.Marshal(sc)
}

func (sc *SegmentCriteria) Scan(value interface{}) error {
	if value == nil {
		*sc = SegmentCriteria{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for criteria scan")
	}
	if len(data) == 0 {
		*sc = SegmentCriteria{}
		return nil
	}
	return json.Unmarshal(data, sc)
}

// Segment is a named, reusable contact filter owned by an organization.
// ContactCount is a cached value: dynamic segments refresh it on read,
// static segments only when their criteria is explicitly updated.
type Segment struct {
	gorm.Model
	OrganizationID uint `gorm:"not null;index" json:"organization_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	Criteria     SegmentCriteria `gorm:"type:jsonb;default:'{}'" json:"criteria"`
	ContactCount int64           `gorm:"default:0" json:"contact_count"`
	IsDynamic    bool            `gorm:"default:true" json:"is_dynamic"`
}
