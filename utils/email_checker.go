package utils

import (
	"fmt"
	"net"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/likexian/whois"
)

// EmailCheckResult is the composite outcome of validating a single address
type EmailCheckResult struct {
	Email        string `json:"email"`
	IsValid      bool   `json:"is_valid"`
	FormatValid  bool   `json:"format_valid"`
	MXValid      bool   `json:"mx_valid"`
	IsDisposable bool   `json:"is_disposable"`
	IsRoleBased  bool   `json:"is_role_based"`
	Suggestion   string `json:"suggestion,omitempty"`
	Score        int    `json:"score"` // 0-100
	WHOIS        string `json:"whois,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

var disposableDomains = map[string]struct{}{
	"tempmail.com":      {},
	"throwaway.email":   {},
	"10minutemail.com":  {},
	"guerrillamail.com": {},
	"mailinator.com":    {},
	"yopmail.com":       {},
	"fakeinbox.com":     {},
	"temp-mail.org":     {},
}

var roleBasedPrefixes = map[string]struct{}{
	"admin":         {},
	"administrator": {},
	"info":          {},
	"support":       {},
	"sales":         {},
	"marketing":     {},
	"noreply":       {},
	"no-reply":      {},
	"postmaster":    {},
	"webmaster":     {},
	"contact":       {},
	"help":          {},
	"billing":       {},
}

// Common typos of popular domains
var commonTypoDomains = map[string]string{
	"gmial.com":    "gmail.com",
	"gmai.com":     "gmail.com",
	"gmil.com":     "gmail.com",
	"yahooo.com":   "yahoo.com",
	"yaho.com":     "yahoo.com",
	"outloook.com": "outlook.com",
	"hotmial.com":  "hotmail.com",
	"hotmai.com":   "hotmail.com",
}

// CheckEmailFormat validates syntax and flags disposable, role-based and
// likely-typo addresses without touching the network
func CheckEmailFormat(email string) *EmailCheckResult {
	email = strings.ToLower(strings.TrimSpace(email))
	result := &EmailCheckResult{
		Email: email,
		Score: 100,
	}

	if err := checkmail.ValidateFormat(email); err != nil {
		result.Errors = append(result.Errors, "Invalid email format")
		result.Score = 0
		return result
	}
	result.FormatValid = true

	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 {
		result.FormatValid = false
		result.Errors = append(result.Errors, "Invalid email format")
		result.Score = 0
		return result
	}
	localPart, domain := parts[0], parts[1]

	if corrected, ok := commonTypoDomains[domain]; ok {
		result.Suggestion = fmt.Sprintf("%s@%s", localPart, corrected)
		result.Errors = append(result.Errors, "Possible domain typo")
		result.Score -= 40
	}

	if _, ok := disposableDomains[domain]; ok {
		result.IsDisposable = true
		result.Errors = append(result.Errors, "Disposable email address")
		result.Score -= 50
	}

	if _, ok := roleBasedPrefixes[localPart]; ok {
		result.IsRoleBased = true
		result.Errors = append(result.Errors, "Role-based email address")
		result.Score -= 20
	}

	if result.Score < 0 {
		result.Score = 0
	}
	result.IsValid = result.FormatValid && !result.IsDisposable && result.Suggestion == ""
	return result
}

// CheckEmail runs the format checks plus MX resolution and an optional
// whois lookup of the domain
func CheckEmail(email string, includeWHOIS bool) *EmailCheckResult {
	result := CheckEmailFormat(email)
	if !result.FormatValid {
		return result
	}

	domain := strings.SplitN(result.Email, "@", 2)[1]

	if mxRecords, err := net.LookupMX(domain); err == nil && len(mxRecords) > 0 {
		result.MXValid = true
	} else {
		result.Errors = append(result.Errors, "Domain has no MX records")
		result.Score -= 30
		if result.Score < 0 {
			result.Score = 0
		}
		result.IsValid = false
	}

	if includeWHOIS {
		if info, err := whois.Whois(domain); err == nil {
			result.WHOIS = info
		}
	}

	return result
}
