package controller

import (
	"errors"
	"strconv"
	"time"

	"pulsemail/models"
	"pulsemail/utils"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type BounceController struct {
	DB      *gorm.DB
	Logger  *logrus.Logger
	Handler *utils.BounceHandler
}

func NewBounceController(db *gorm.DB, logger *logrus.Logger) *BounceController {
	return &BounceController{
		DB:      db,
		Logger:  logger,
		Handler: utils.NewBounceHandler(db, logger),
	}
}

// HandleProviderWebhook ingests bounce notifications posted by email
// providers. The provider path segment selects the payload adapter; the
// generic adapter accepts the canonical bounce shape directly.
func (bc *BounceController) HandleProviderWebhook(c *fiber.Ctx) error {
	provider := c.Params("provider")
	body := c.Body()

	var inputs []utils.BounceInput

	switch provider {
	case "ses", "aws":
		inputs = utils.ParseSESBounce(body)
	case "sendgrid":
		if input := utils.ParseSendGridBounce(body); input != nil {
			inputs = append(inputs, *input)
		}
	case "generic":
		var input utils.BounceInput
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid bounce payload", err)
		}
		inputs = append(inputs, input)
	default:
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Unknown provider", nil)
	}

	if len(inputs) == 0 {
		// Providers retry on non-2xx; an unparseable or non-bounce payload is
		// acknowledged and dropped
		bc.Logger.WithField("provider", provider).Debug("Webhook payload carried no bounce records")
		return c.JSON(utils.SuccessResponse(fiber.Map{"processed": 0}))
	}

	processed := 0
	var results []utils.BounceResult
	for _, input := range inputs {
		result, err := bc.Handler.ProcessBounce(input)
		if err != nil {
			if errors.Is(err, utils.ErrContactNotFound) {
				// Bounces for unknown recipients are common after list cleanup
				bc.Logger.WithFields(logrus.Fields{
					"provider": provider,
					"email":    input.Email,
				}).Debug("Bounce for unknown contact ignored")
				continue
			}
			bc.Logger.WithError(err).WithField("provider", provider).Error("Failed to process bounce")
			sentry.CaptureException(err)
			continue
		}
		processed++
		results = append(results, *result)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"processed": processed,
		"results":   results,
	}))
}

// ReportBounce records a manually reported bounce for the caller's
// organization
func (bc *BounceController) ReportBounce(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var input struct {
		ContactID    uint   `json:"contact_id"`
		Email        string `json:"email" validate:"omitempty,email"`
		BounceType   string `json:"bounce_type" validate:"required,oneof=hard soft"`
		BounceReason string `json:"bounce_reason" validate:"omitempty,max=500"`
		CampaignID   *uint  `json:"campaign_id"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.ContactID == 0 && input.Email == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Either contact_id or email is required", nil)
	}

	// Resolve the contact within the caller's organization before handing off
	var contact models.Contact
	query := bc.DB.Where("organization_id = ?", orgID)
	if input.ContactID != 0 {
		query = query.Where("id = ?", input.ContactID)
	} else {
		query = query.Where("email = ?", input.Email)
	}
	if err := query.First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	result, err := bc.Handler.ProcessBounce(utils.BounceInput{
		ContactID:    contact.ID,
		BounceType:   input.BounceType,
		BounceReason: input.BounceReason,
		CampaignID:   input.CampaignID,
	})
	if err != nil {
		if errors.Is(err, utils.ErrInvalidBounceType) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		}
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process bounce", err)
	}

	return c.JSON(utils.SuccessResponse(result))
}

// GetBounceStats returns aggregated bounce stats, optionally date-bounded
// by start_date and end_date query params (YYYY-MM-DD)
func (bc *BounceController) GetBounceStats(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var startDate, endDate *time.Time
	if raw := c.Query("start_date"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD", err)
		}
		startDate = &ts
	}
	if raw := c.Query("end_date"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD", err)
		}
		// Make the end date inclusive of the whole day
		ts = ts.Add(24*time.Hour - time.Nanosecond)
		endDate = &ts
	}

	stats, err := bc.Handler.GetBounceStats(orgID, startDate, endDate)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute bounce stats", err)
	}

	return c.JSON(utils.SuccessResponse(stats))
}

// GetBouncedContacts lists bounced contacts. The type query param narrows
// to hard or soft bounces.
func (bc *BounceController) GetBouncedContacts(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	opts := utils.BouncedContactsOptions{
		Limit:       limit,
		Offset:      (page - 1) * limit,
		IncludeHard: true,
		IncludeSoft: true,
	}
	switch c.Query("type") {
	case "hard":
		opts.IncludeSoft = false
	case "soft":
		opts.IncludeHard = false
	}

	contacts, err := bc.Handler.GetBouncedContacts(orgID, opts)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch bounced contacts", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"contacts": contacts,
		"page":     page,
		"limit":    limit,
	}))
}

// GetRetryEligibleContacts lists soft-bounced contacts past the retry
// cooldown
func (bc *BounceController) GetRetryEligibleContacts(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	contacts, err := bc.Handler.GetRetryEligibleContacts(orgID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch retry-eligible contacts", err)
	}

	return c.JSON(utils.SuccessResponse(contacts))
}

// ResetBounce clears a contact's bounce state and resubscribes them
func (bc *BounceController) ResetBounce(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	// Scope the lookup so one tenant cannot reset another's contact
	var contact models.Contact
	if err := bc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	updated, err := bc.Handler.ResetBounceCount(contact.ID)
	if err != nil {
		if errors.Is(err, utils.ErrContactNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reset bounce state", err)
	}

	return c.JSON(utils.SuccessResponse(updated))
}

// CleanupBouncedContacts permanently removes bounced contacts older than
// days_old (default 90)
func (bc *BounceController) CleanupBouncedContacts(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var input struct {
		DaysOld int `json:"days_old" validate:"omitempty,min=1,max=3650"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.DaysOld == 0 {
		input.DaysOld = 90
	}

	result, err := bc.Handler.CleanupBouncedContacts(orgID, input.DaysOld)
	if err != nil {
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to clean up bounced contacts", err)
	}

	return c.JSON(utils.SuccessResponse(result))
}
