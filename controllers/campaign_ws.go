package controller

import (
	"time"

	"pulsemail/config"
	"pulsemail/models"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type campaignProgress struct {
	CampaignID   uint   `json:"campaign_id"`
	Status       string `json:"status"`
	Sent         int    `json:"sent"`
	Delivered    int    `json:"delivered"`
	Opened       int    `json:"opened"`
	Clicked      int    `json:"clicked"`
	Bounced      int    `json:"bounced"`
	Unsubscribed int    `json:"unsubscribed"`
}

// HandleCampaignProgressWS streams a campaign's delivery counters to the
// client until the campaign leaves the sending state or the client
// disconnects
func HandleCampaignProgressWS(c *websocket.Conn) {
	defer c.Close()

	logger := logrus.StandardLogger()

	var input struct {
		CampaignID uint `json:"campaign_id"`
	}
	if err := c.ReadJSON(&input); err != nil {
		logger.WithError(err).Debug("Invalid campaign progress subscription")
		return
	}

	orgID, ok := c.Locals("organizationID").(uint)
	if !ok {
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		var campaign models.Campaign
		if err := config.DB.Where("id = ? AND organization_id = ?", input.CampaignID, orgID).
			First(&campaign).Error; err != nil {
			_ = c.WriteJSON(map[string]string{"error": "Campaign not found"})
			return
		}

		progress := campaignProgress{
			CampaignID:   campaign.ID,
			Status:       campaign.Status,
			Sent:         campaign.SentCount,
			Delivered:    campaign.DeliveredCount,
			Opened:       campaign.OpenedCount,
			Clicked:      campaign.ClickedCount,
			Bounced:      campaign.BouncedCount,
			Unsubscribed: campaign.UnsubscribedCount,
		}
		if err := c.WriteJSON(progress); err != nil {
			return
		}

		if campaign.Status != models.CampaignStatusSending {
			return
		}

		<-ticker.C
	}
}
