package controller

import (
	"strconv"
	"time"

	"pulsemail/models"
	"pulsemail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CampaignController struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Mailer    *utils.Mailer
	Evaluator *utils.SegmentEvaluator
}

func NewCampaignController(db *gorm.DB, logger *logrus.Logger, mailer *utils.Mailer) *CampaignController {
	return &CampaignController{
		DB:        db,
		Logger:    logger,
		Mailer:    mailer,
		Evaluator: utils.NewSegmentEvaluator(db, logger),
	}
}

type campaignInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Subject     string `json:"subject" validate:"required,max=500"`
	PreviewText string `json:"preview_text" validate:"omitempty,max=500"`
	FromName    string `json:"from_name" validate:"required,max=100"`
	FromEmail   string `json:"from_email" validate:"required,email"`
	ReplyTo     string `json:"reply_to" validate:"omitempty,email"`
	HTMLContent string `json:"html_content" validate:"required"`
	TextContent string `json:"text_content"`

	SegmentCriteria *models.SegmentCriteria `json:"segment_criteria"`
	ScheduledAt     *time.Time              `json:"scheduled_at"`
}

// CreateCampaign creates a draft campaign
func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var input campaignInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	campaign := models.Campaign{
		OrganizationID: orgID,
		Name:           input.Name,
		Subject:        input.Subject,
		PreviewText:    input.PreviewText,
		FromName:       input.FromName,
		FromEmail:      input.FromEmail,
		ReplyTo:        input.ReplyTo,
		HTMLContent:    input.HTMLContent,
		TextContent:    input.TextContent,
		Status:         models.CampaignStatusDraft,
		ScheduledAt:    input.ScheduledAt,
	}
	if input.SegmentCriteria != nil {
		campaign.SegmentCriteria = *input.SegmentCriteria
	}
	if input.ScheduledAt != nil {
		campaign.Status = models.CampaignStatusScheduled
	}

	if err := cc.DB.Create(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create campaign", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(campaign))
}

// GetCampaigns lists campaigns with optional status filter
func (cc *CampaignController) GetCampaigns(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := cc.DB.Model(&models.Campaign{}).Where("organization_id = ?", orgID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count campaigns", err)
	}

	var campaigns []models.Campaign
	if err := query.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&campaigns).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch campaigns", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  campaigns,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

// GetCampaign returns a single campaign
func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}

	return c.JSON(utils.SuccessResponse(campaign))
}

// UpdateCampaign updates a campaign that has not been sent yet
func (cc *CampaignController) UpdateCampaign(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}

	if campaign.Status == models.CampaignStatusSending || campaign.Status == models.CampaignStatusSent {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Campaign can no longer be edited", nil)
	}

	var input struct {
		Name        *string `json:"name" validate:"omitempty,max=200"`
		Subject     *string `json:"subject" validate:"omitempty,max=500"`
		PreviewText *string `json:"preview_text" validate:"omitempty,max=500"`
		FromName    *string `json:"from_name" validate:"omitempty,max=100"`
		FromEmail   *string `json:"from_email" validate:"omitempty,email"`
		ReplyTo     *string `json:"reply_to" validate:"omitempty,email"`
		HTMLContent *string `json:"html_content"`
		TextContent *string `json:"text_content"`

		SegmentCriteria *models.SegmentCriteria `json:"segment_criteria"`
		ScheduledAt     *time.Time              `json:"scheduled_at"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if input.Name != nil {
		campaign.Name = *input.Name
	}
	if input.Subject != nil {
		campaign.Subject = *input.Subject
	}
	if input.PreviewText != nil {
		campaign.PreviewText = *input.PreviewText
	}
	if input.FromName != nil {
		campaign.FromName = *input.FromName
	}
	if input.FromEmail != nil {
		campaign.FromEmail = *input.FromEmail
	}
	if input.ReplyTo != nil {
		campaign.ReplyTo = *input.ReplyTo
	}
	if input.HTMLContent != nil {
		campaign.HTMLContent = *input.HTMLContent
	}
	if input.TextContent != nil {
		campaign.TextContent = *input.TextContent
	}
	if input.SegmentCriteria != nil {
		campaign.SegmentCriteria = *input.SegmentCriteria
	}
	if input.ScheduledAt != nil {
		campaign.ScheduledAt = input.ScheduledAt
		campaign.Status = models.CampaignStatusScheduled
	}

	if err := cc.DB.Save(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update campaign", err)
	}

	return c.JSON(utils.SuccessResponse(campaign))
}

// DeleteCampaign soft-deletes a campaign that is not currently sending
func (cc *CampaignController) DeleteCampaign(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}

	if campaign.Status == models.CampaignStatusSending {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Cannot delete a campaign while it is sending", nil)
	}

	if err := cc.DB.Delete(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete campaign", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}

// PreviewAudience evaluates the campaign's segment criteria and reports how
// many contacts would receive it
func (cc *CampaignController) PreviewAudience(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}

	count, err := cc.Evaluator.CountContacts(orgID, campaign.SegmentCriteria)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to evaluate audience", err)
	}

	sample, err := cc.Evaluator.SampleContacts(orgID, campaign.SegmentCriteria, 10, 0)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to sample audience", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"count":  count,
		"sample": sample,
	}))
}

// GetCampaignStats returns per-event counts and derived rates for a campaign
func (cc *CampaignController) GetCampaignStats(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}

	type eventCount struct {
		EventType string
		Count     int64
	}
	var rows []eventCount
	if err := cc.DB.Model(&models.EmailEvent{}).
		Select("event_type, COUNT(*) as count").
		Where("campaign_id = ?", campaign.ID).
		Group("event_type").
		Scan(&rows).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute campaign stats", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.EventType] = row.Count
	}

	rate := func(numerator int64) float64 {
		if campaign.SentCount == 0 {
			return 0
		}
		return float64(numerator) / float64(campaign.SentCount) * 100
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"campaign_id": campaign.ID,
		"status":      campaign.Status,
		"sent":        campaign.SentCount,
		"events":      counts,
		"open_rate":   rate(counts[models.EventOpened]),
		"click_rate":  rate(counts[models.EventClicked]),
		"bounce_rate": rate(counts[models.EventBounced]),
	}))
}

// SendTestEmail sends a rendered preview of the campaign to one address
func (cc *CampaignController) SendTestEmail(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var campaign models.Campaign
	if err := cc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&campaign).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}

	var input struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if err := cc.Mailer.SendTestEmail(&campaign, input.Email); err != nil {
		cc.Logger.WithError(err).WithField("campaign_id", campaign.ID).Error("Test email failed")
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to send test email", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"sent_to": input.Email}))
}
