package utils

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"pulsemail/models"

	"github.com/gofiber/fiber/v2"
)

// GenerateRateLimitKey creates a unique key for rate limiting
func GenerateRateLimitKey(organizationID uint, windowStart int64) string {
	return fmt.Sprintf("rl:org:%d:%d", organizationID, windowStart)
}

// Pointer returns a pointer to the given value
func Pointer[T any](v T) *T {
	return &v
}

// ClampLeadScore bounds a lead score to the allowed range
func ClampLeadScore(score int) int {
	if score < models.LeadScoreMin {
		return models.LeadScoreMin
	}
	if score > models.LeadScoreMax {
		return models.LeadScoreMax
	}
	return score
}

// NormalizeTags lowercases, trims, dedupes and sorts a tag list
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	sort.Strings(result)
	return result
}

// MergeTags unions two tag lists with set semantics
func MergeTags(current, added []string) []string {
	return NormalizeTags(append(append([]string{}, current...), added...))
}

// RemoveTags drops the given tags from a tag list
func RemoveTags(current, removed []string) []string {
	drop := make(map[string]struct{}, len(removed))
	for _, tag := range NormalizeTags(removed) {
		drop[tag] = struct{}{}
	}
	result := make([]string, 0, len(current))
	for _, tag := range NormalizeTags(current) {
		if _, ok := drop[tag]; !ok {
			result = append(result, tag)
		}
	}
	return result
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d.Hours() >= 24 {
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%d days", days)
	} else if d.Hours() >= 1 {
		return fmt.Sprintf("%.1f hours", d.Hours())
	} else if d.Minutes() >= 1 {
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	}
	return fmt.Sprintf("%.1f seconds", d.Seconds())
}

// ErrorResponse creates a standardized error response
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	return c.Status(status).JSON(response)
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

// ParseUint safely parses a string to uint
func ParseUint(s string) uint {
	i, _ := strconv.ParseUint(s, 10, 32)
	return uint(i)
}

// PaginatedResponse structure for paginated results
type PaginatedResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
