package utils

import (
	"encoding/json"
	"time"
)

// Provider adapters map provider-specific webhook payloads to the canonical
// BounceInput shape. Parsing is deliberately permissive: a malformed payload
// yields an empty result instead of an error so one bad delivery never
// aborts a batch of independent bounce records.

// SESNotification is the AWS SES bounce notification envelope
type SESNotification struct {
	NotificationType string     `json:"notificationType"`
	Bounce           *SESBounce `json:"bounce"`
}

type SESBounce struct {
	BounceType        string                `json:"bounceType"` // Permanent, Transient, Undetermined
	BounceSubType     string                `json:"bounceSubType"`
	Timestamp         string                `json:"timestamp"`
	BouncedRecipients []SESBouncedRecipient `json:"bouncedRecipients"`
}

type SESBouncedRecipient struct {
	EmailAddress   string `json:"emailAddress"`
	Action         string `json:"action"`
	Status         string `json:"status"`
	DiagnosticCode string `json:"diagnosticCode"`
}

// ParseSESBounce maps an SES batch notification to per-recipient bounce
// inputs. Returns an empty slice when the payload is not a bounce
// notification or cannot be parsed.
func ParseSESBounce(payload []byte) []BounceInput {
	var notification SESNotification
	if err := json.Unmarshal(payload, &notification); err != nil {
		return nil
	}
	if notification.Bounce == nil {
		return nil
	}

	bounce := notification.Bounce
	bounceType := BounceTypeSoft
	if bounce.BounceType == "Permanent" {
		bounceType = BounceTypeHard
	}

	var timestamp *time.Time
	if ts, err := time.Parse(time.RFC3339, bounce.Timestamp); err == nil {
		timestamp = Pointer(ts)
	}

	inputs := make([]BounceInput, 0, len(bounce.BouncedRecipients))
	for _, recipient := range bounce.BouncedRecipients {
		if recipient.EmailAddress == "" {
			continue
		}
		reason := recipient.DiagnosticCode
		if reason == "" {
			reason = bounce.BounceSubType
		}
		inputs = append(inputs, BounceInput{
			Email:          recipient.EmailAddress,
			BounceType:     bounceType,
			BounceReason:   reason,
			DiagnosticCode: recipient.DiagnosticCode,
			Timestamp:      timestamp,
		})
	}
	return inputs
}

// SendGridEvent is the single-event webhook format
type SendGridEvent struct {
	Email     string `json:"email"`
	Event     string `json:"event"`
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"` // unix seconds
}

// ParseSendGridBounce maps a SendGrid event to a bounce input, or nil when
// the payload is malformed or carries no recipient
func ParseSendGridBounce(payload []byte) *BounceInput {
	var event SendGridEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil
	}
	if event.Email == "" {
		return nil
	}

	bounceType := BounceTypeSoft
	if event.Type == "bounce" || event.Event == "bounce" {
		bounceType = BounceTypeHard
	}

	reason := event.Reason
	if reason == "" {
		reason = event.Status
	}

	var timestamp *time.Time
	if event.Timestamp > 0 {
		timestamp = Pointer(time.Unix(event.Timestamp, 0).UTC())
	}

	return &BounceInput{
		Email:          event.Email,
		BounceType:     bounceType,
		BounceReason:   reason,
		DiagnosticCode: event.Status,
		Timestamp:      timestamp,
	}
}
