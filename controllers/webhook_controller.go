package controller

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"pulsemail/models"
	"pulsemail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Events a webhook endpoint may subscribe to
var subscribableEvents = map[string]struct{}{
	models.EventSent:         {},
	models.EventDelivered:    {},
	models.EventOpened:       {},
	models.EventClicked:      {},
	models.EventBounced:      {},
	models.EventUnsubscribed: {},
	models.EventComplained:   {},
}

type WebhookController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewWebhookController(db *gorm.DB, logger *logrus.Logger) *WebhookController {
	return &WebhookController{
		DB:     db,
		Logger: logger,
	}
}

func generateWebhookSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}

// SignWebhookPayload computes the signature an endpoint can use to verify a
// delivery came from us
func SignWebhookPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// maskSecret shows only enough of a secret to identify it
func maskSecret(secret string) string {
	if len(secret) <= 12 {
		return "****"
	}
	return secret[:10] + "..." + secret[len(secret)-4:]
}

func validateEventList(events []string) (pq.StringArray, error) {
	if len(events) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "At least one event is required")
	}
	for _, event := range events {
		if _, ok := subscribableEvents[event]; !ok {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Unknown event type: "+event)
		}
	}
	return pq.StringArray(events), nil
}

// CreateWebhook registers a new outbound webhook endpoint. The full secret
// is returned exactly once, at creation time.
func (wc *WebhookController) CreateWebhook(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var input struct {
		URL         string   `json:"url" validate:"required,url"`
		Events      []string `json:"events" validate:"required,min=1"`
		Description string   `json:"description" validate:"omitempty,max=500"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	events, err := validateEventList(input.Events)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	secret, err := generateWebhookSecret()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate webhook secret", err)
	}

	endpoint := models.WebhookEndpoint{
		OrganizationID: orgID,
		URL:            input.URL,
		Events:         events,
		Description:    input.Description,
		Secret:         secret,
		IsActive:       true,
	}
	if err := wc.DB.Create(&endpoint).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create webhook", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"webhook": endpoint,
		"secret":  secret,
	}))
}

// GetWebhooks lists the organization's webhook endpoints with masked secrets
func (wc *WebhookController) GetWebhooks(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var endpoints []models.WebhookEndpoint
	if err := wc.DB.Where("organization_id = ?", orgID).Order("created_at DESC").Find(&endpoints).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch webhooks", err)
	}

	type webhookView struct {
		models.WebhookEndpoint
		SecretPreview string `json:"secret_preview"`
	}
	views := make([]webhookView, 0, len(endpoints))
	for _, endpoint := range endpoints {
		views = append(views, webhookView{
			WebhookEndpoint: endpoint,
			SecretPreview:   maskSecret(endpoint.Secret),
		})
	}

	return c.JSON(utils.SuccessResponse(views))
}

// GetWebhook returns one webhook endpoint with a masked secret
func (wc *WebhookController) GetWebhook(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var endpoint models.WebhookEndpoint
	if err := wc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&endpoint).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Webhook not found", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"webhook":        endpoint,
		"secret_preview": maskSecret(endpoint.Secret),
	}))
}

// UpdateWebhook modifies a webhook's URL, events, description or active flag
func (wc *WebhookController) UpdateWebhook(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var endpoint models.WebhookEndpoint
	if err := wc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&endpoint).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Webhook not found", nil)
	}

	var input struct {
		URL         *string  `json:"url" validate:"omitempty,url"`
		Events      []string `json:"events"`
		Description *string  `json:"description" validate:"omitempty,max=500"`
		IsActive    *bool    `json:"is_active"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if input.URL != nil {
		endpoint.URL = *input.URL
	}
	if input.Events != nil {
		events, err := validateEventList(input.Events)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		}
		endpoint.Events = events
	}
	if input.Description != nil {
		endpoint.Description = *input.Description
	}
	if input.IsActive != nil {
		endpoint.IsActive = *input.IsActive
	}

	if err := wc.DB.Save(&endpoint).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update webhook", err)
	}

	return c.JSON(utils.SuccessResponse(endpoint))
}

// RegenerateSecret rotates a webhook's signing secret. The new secret is
// returned exactly once.
func (wc *WebhookController) RegenerateSecret(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var endpoint models.WebhookEndpoint
	if err := wc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&endpoint).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Webhook not found", nil)
	}

	secret, err := generateWebhookSecret()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate webhook secret", err)
	}

	if err := wc.DB.Model(&endpoint).Update("secret", secret).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to rotate webhook secret", err)
	}

	wc.Logger.WithField("webhook_id", endpoint.ID).Info("Webhook secret rotated")

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"webhook_id": endpoint.ID,
		"secret":     secret,
	}))
}

// DeleteWebhook removes a webhook endpoint
func (wc *WebhookController) DeleteWebhook(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	result := wc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).Delete(&models.WebhookEndpoint{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete webhook", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Webhook not found", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}
