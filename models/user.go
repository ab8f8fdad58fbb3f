package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization plans
const (
	PlanFree         = "free"
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Organization is the tenant boundary - every domain record hangs off one
type Organization struct {
	gorm.Model
	Name   string `gorm:"not null" json:"name"`
	Domain string `gorm:"uniqueIndex" json:"domain"`
	Plan   string `gorm:"default:free" json:"plan"` // free, starter, professional, enterprise

	MonthlyEmailLimit   int `gorm:"default:1000" json:"monthly_email_limit"`
	EmailsSentThisMonth int `gorm:"default:0" json:"emails_sent_this_month"`

	Settings JSONB `gorm:"type:jsonb;default:'{}'" json:"settings"`
	IsActive bool  `gorm:"default:true" json:"is_active"`

	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`

	// Relations
	Users    []User    `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
	Contacts []Contact `gorm:"foreignKey:OrganizationID" json:"contacts,omitempty"`
}

// User represents an account inside an organization
type User struct {
	gorm.Model
	OrganizationID uint `gorm:"not null;index" json:"organization_id"`

	Email        string `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `gorm:"default:user" json:"role"` // admin, user
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}
