package controller

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"pulsemail/config"
	"pulsemail/models"
	"pulsemail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TrackingController serves the public open-pixel, click-redirect and
// unsubscribe endpoints embedded in campaign emails. These routes are
// unauthenticated, so every request carries an HMAC token binding it to a
// (campaign, contact) pair.
type TrackingController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewTrackingController(db *gorm.DB, logger *logrus.Logger) *TrackingController {
	return &TrackingController{
		DB:     db,
		Logger: logger,
	}
}

// TrackingToken derives the HMAC token for a (campaign, contact) pair
func TrackingToken(campaignID, contactID uint) string {
	mac := hmac.New(sha256.New, []byte(config.AppConfig.JWTSecret))
	fmt.Fprintf(mac, "track:%d:%d", campaignID, contactID)
	return hex.EncodeToString(mac.Sum(nil))[:32]
}

func validTrackingToken(campaignID, contactID uint, token string) bool {
	return hmac.Equal([]byte(TrackingToken(campaignID, contactID)), []byte(token))
}

// HandleOpenTracking records an email open and serves a transparent pixel.
// Opens are deduplicated to one event per (campaign, contact); repeat loads
// of the same pixel change nothing.
func (tc *TrackingController) HandleOpenTracking(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("campaignID"))
	contactID := utils.ParseUint(c.Params("contactID"))
	token := c.Params("token")

	if campaignID == 0 || contactID == 0 || !validTrackingToken(campaignID, contactID, token) {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid token")
	}

	var contact models.Contact
	if err := tc.DB.First(&contact, contactID).Error; err != nil {
		// Serve the pixel anyway; a dead link should not render broken images
		return c.Type("gif").Send(transparentPixel())
	}

	event := models.EmailEvent{
		OrganizationID: contact.OrganizationID,
		CampaignID:     &campaignID,
		ContactID:      contactID,
		EventType:      models.EventOpened,
	}
	result := tc.DB.Where(
		"campaign_id = ? AND contact_id = ? AND event_type = ?",
		campaignID, contactID, models.EventOpened,
	).FirstOrCreate(&event)

	if result.Error != nil {
		tc.Logger.WithError(result.Error).Warn("Failed to record open event")
	} else if result.RowsAffected > 0 {
		// First open for this pair, bump the campaign counter
		tc.DB.Model(&models.Campaign{}).
			Where("id = ?", campaignID).
			Update("opened_count", gorm.Expr("opened_count + 1"))
		tc.DB.Model(&models.Contact{}).
			Where("id = ?", contactID).
			Update("last_activity_at", time.Now())
	}

	return c.Type("gif").Send(transparentPixel())
}

// HandleClickTracking records a link click and redirects to the original
// URL. Every click is logged; only the destination is validated.
func (tc *TrackingController) HandleClickTracking(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("campaignID"))
	contactID := utils.ParseUint(c.Params("contactID"))
	token := c.Params("token")
	target := c.Query("url")

	if campaignID == 0 || contactID == 0 || !validTrackingToken(campaignID, contactID, token) {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid token")
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid redirect URL")
	}

	var contact models.Contact
	if err := tc.DB.First(&contact, contactID).Error; err == nil {
		event := models.EmailEvent{
			OrganizationID: contact.OrganizationID,
			CampaignID:     &campaignID,
			ContactID:      contactID,
			EventType:      models.EventClicked,
			Metadata:       models.JSONB{"linkUrl": target},
			IPAddress:      c.IP(),
			UserAgent:      c.Get("User-Agent"),
		}
		if err := tc.DB.Create(&event).Error; err != nil {
			tc.Logger.WithError(err).Warn("Failed to record click event")
		} else {
			tc.DB.Model(&models.Campaign{}).
				Where("id = ?", campaignID).
				Update("clicked_count", gorm.Expr("clicked_count + 1"))
			tc.DB.Model(&models.Contact{}).
				Where("id = ?", contactID).
				Update("last_activity_at", time.Now())
		}
	}

	return c.Redirect(target, fiber.StatusFound)
}

// HandleUnsubscribe processes a one-click unsubscribe link
func (tc *TrackingController) HandleUnsubscribe(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("campaignID"))
	contactID := utils.ParseUint(c.Params("contactID"))
	token := c.Params("token")

	if campaignID == 0 || contactID == 0 || !validTrackingToken(campaignID, contactID, token) {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid token")
	}

	var contact models.Contact
	if err := tc.DB.First(&contact, contactID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Contact not found")
	}

	if contact.Status != models.ContactStatusUnsubscribed {
		contact.Status = models.ContactStatusUnsubscribed
		if err := tc.DB.Save(&contact).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Failed to unsubscribe")
		}

		event := models.EmailEvent{
			OrganizationID: contact.OrganizationID,
			CampaignID:     &campaignID,
			ContactID:      contactID,
			EventType:      models.EventUnsubscribed,
		}
		if err := tc.DB.Create(&event).Error; err != nil {
			tc.Logger.WithError(err).Warn("Failed to record unsubscribe event")
		} else {
			tc.DB.Model(&models.Campaign{}).
				Where("id = ?", campaignID).
				Update("unsubscribed_count", gorm.Expr("unsubscribed_count + 1"))
		}
	}

	return c.SendString("You have been unsubscribed.")
}

func transparentPixel() []byte {
	// 1x1 transparent GIF
	return []byte{
		0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
		0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21,
		0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00,
		0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
		0x01, 0x00, 0x3b,
	}
}
