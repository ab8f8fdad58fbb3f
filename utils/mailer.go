package utils

import (
	"fmt"
	"strings"

	"pulsemail/config"
	"pulsemail/models"

	"gopkg.in/gomail.v2"
)

// Mailer sends campaign and test emails over the configured SMTP relay
type Mailer struct {
	dialer *gomail.Dialer
}

func NewMailer() *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(
			config.AppConfig.SMTPHost,
			config.AppConfig.SMTPPort,
			config.AppConfig.SMTPUsername,
			config.AppConfig.SMTPPassword,
		),
	}
}

// SubstituteVariables replaces {{variable}} placeholders in campaign content
// with contact fields. Unknown placeholders are left untouched.
func SubstituteVariables(content string, contact *models.Contact) string {
	replacer := strings.NewReplacer(
		"{{email}}", contact.Email,
		"{{firstName}}", contact.FirstName,
		"{{lastName}}", contact.LastName,
		"{{company}}", contact.Company,
		"{{jobTitle}}", contact.JobTitle,
	)
	return replacer.Replace(content)
}

// SendCampaignEmail renders and sends one campaign email to one contact
func (m *Mailer) SendCampaignEmail(campaign *models.Campaign, contact *models.Contact) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(campaign.FromEmail, campaign.FromName))
	msg.SetHeader("To", contact.Email)
	if campaign.ReplyTo != "" {
		msg.SetHeader("Reply-To", campaign.ReplyTo)
	}
	msg.SetHeader("Subject", SubstituteVariables(campaign.Subject, contact))

	html := SubstituteVariables(campaign.HTMLContent, contact)
	msg.SetBody("text/html", html)
	if campaign.TextContent != "" {
		msg.AddAlternative("text/plain", SubstituteVariables(campaign.TextContent, contact))
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send campaign email to %s: %w", contact.Email, err)
	}
	return nil
}

// SendTestEmail sends a campaign preview to an arbitrary address using
// placeholder contact data
func (m *Mailer) SendTestEmail(campaign *models.Campaign, toEmail string) error {
	preview := &models.Contact{
		Email:     toEmail,
		FirstName: "Test",
		LastName:  "Recipient",
		Company:   "Example Inc",
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(campaign.FromEmail, campaign.FromName))
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", "[TEST] "+SubstituteVariables(campaign.Subject, preview))
	msg.SetBody("text/html", SubstituteVariables(campaign.HTMLContent, preview))

	return m.dialer.DialAndSend(msg)
}
