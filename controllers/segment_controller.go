package controller

import (
	"strconv"

	"pulsemail/models"
	"pulsemail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SegmentController struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Evaluator *utils.SegmentEvaluator
}

func NewSegmentController(db *gorm.DB, logger *logrus.Logger) *SegmentController {
	return &SegmentController{
		DB:        db,
		Logger:    logger,
		Evaluator: utils.NewSegmentEvaluator(db, logger),
	}
}

type segmentInput struct {
	Name        string                  `json:"name" validate:"required,max=200"`
	Description string                  `json:"description" validate:"omitempty,max=1000"`
	Criteria    *models.SegmentCriteria `json:"criteria"`
	IsDynamic   *bool                   `json:"is_dynamic"`
}

// CreateSegment creates a segment and eagerly computes its contact count
func (sc *SegmentController) CreateSegment(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var input segmentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	segment := models.Segment{
		OrganizationID: orgID,
		Name:           input.Name,
		Description:    input.Description,
		IsDynamic:      true,
	}
	if input.Criteria != nil {
		segment.Criteria = *input.Criteria
	}
	if input.IsDynamic != nil {
		segment.IsDynamic = *input.IsDynamic
	}

	count, err := sc.Evaluator.CountContacts(orgID, segment.Criteria)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to evaluate segment criteria", err)
	}
	segment.ContactCount = count

	if err := sc.DB.Create(&segment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create segment", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(segment))
}

// GetSegments lists all segments, refreshing cached counts of dynamic ones
func (sc *SegmentController) GetSegments(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var segments []models.Segment
	if err := sc.DB.Where("organization_id = ?", orgID).Order("created_at DESC").Find(&segments).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch segments", err)
	}

	for i := range segments {
		sc.Evaluator.RefreshIfDynamic(&segments[i])
	}

	return c.JSON(utils.SuccessResponse(segments))
}

// GetSegment returns one segment, refreshing its count if dynamic
func (sc *SegmentController) GetSegment(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var segment models.Segment
	if err := sc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&segment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Segment not found", nil)
	}

	sc.Evaluator.RefreshIfDynamic(&segment)

	return c.JSON(utils.SuccessResponse(segment))
}

// UpdateSegment updates a segment, recomputing the cached count whenever
// the criteria changes
func (sc *SegmentController) UpdateSegment(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var segment models.Segment
	if err := sc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&segment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Segment not found", nil)
	}

	var input struct {
		Name        *string                 `json:"name" validate:"omitempty,max=200"`
		Description *string                 `json:"description" validate:"omitempty,max=1000"`
		Criteria    *models.SegmentCriteria `json:"criteria"`
		IsDynamic   *bool                   `json:"is_dynamic"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if input.Name != nil {
		segment.Name = *input.Name
	}
	if input.Description != nil {
		segment.Description = *input.Description
	}
	if input.IsDynamic != nil {
		segment.IsDynamic = *input.IsDynamic
	}
	if input.Criteria != nil {
		segment.Criteria = *input.Criteria
		count, err := sc.Evaluator.CountContacts(orgID, segment.Criteria)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to evaluate segment criteria", err)
		}
		segment.ContactCount = count
	}

	if err := sc.DB.Save(&segment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update segment", err)
	}

	return c.JSON(utils.SuccessResponse(segment))
}

// DeleteSegment soft-deletes a segment
func (sc *SegmentController) DeleteSegment(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	result := sc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).Delete(&models.Segment{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete segment", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Segment not found", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}

// GetSegmentContacts returns a stable page of the contacts a segment
// currently matches
func (sc *SegmentController) GetSegmentContacts(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var segment models.Segment
	if err := sc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&segment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Segment not found", nil)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	total, err := sc.Evaluator.CountContacts(orgID, segment.Criteria)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count segment contacts", err)
	}

	contacts, err := sc.Evaluator.SampleContacts(orgID, segment.Criteria, limit, offset)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch segment contacts", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  contacts,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

// TestSegment evaluates ad-hoc criteria without saving a segment, returning
// the match count and a small sample
func (sc *SegmentController) TestSegment(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var input struct {
		Criteria models.SegmentCriteria `json:"criteria"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	count, err := sc.Evaluator.CountContacts(orgID, input.Criteria)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to evaluate criteria", err)
	}

	sample, err := sc.Evaluator.SampleContacts(orgID, input.Criteria, 10, 0)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to sample contacts", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"count":  count,
		"sample": sample,
	}))
}
