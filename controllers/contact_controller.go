package controller

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"pulsemail/models"
	"pulsemail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ContactController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewContactController(db *gorm.DB, logger *logrus.Logger) *ContactController {
	return &ContactController{
		DB:     db,
		Logger: logger,
	}
}

type contactInput struct {
	Email     string   `json:"email" validate:"required,email"`
	FirstName string   `json:"first_name" validate:"omitempty,max=100"`
	LastName  string   `json:"last_name" validate:"omitempty,max=100"`
	Phone     string   `json:"phone" validate:"omitempty,max=30"`
	Company   string   `json:"company" validate:"omitempty,max=200"`
	JobTitle  string   `json:"job_title" validate:"omitempty,max=200"`
	Source    string   `json:"source" validate:"omitempty,max=100"`
	Tags      []string `json:"tags"`
	LeadScore *int     `json:"lead_score"`
}

// CreateContact creates a new contact, unique per (email, organization)
func (cc *ContactController) CreateContact(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var input contactInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var existing models.Contact
	if err := cc.DB.Where("organization_id = ? AND email = ?", orgID, email).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Contact with this email already exists", nil)
	}

	contact := models.Contact{
		OrganizationID: orgID,
		Email:          email,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Phone:          input.Phone,
		Company:        input.Company,
		JobTitle:       input.JobTitle,
		Source:         input.Source,
		Status:         models.ContactStatusSubscribed,
		Tags:           pq.StringArray(utils.NormalizeTags(input.Tags)),
		Metadata:       models.JSONB{},
	}
	if input.LeadScore != nil {
		contact.LeadScore = utils.ClampLeadScore(*input.LeadScore)
	}

	if err := cc.DB.Create(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create contact", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(contact))
}

// GetContacts returns a paginated, filterable list of contacts
func (cc *ContactController) GetContacts(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	// Pagination
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := cc.DB.Model(&models.Contact{}).Where("organization_id = ?", orgID)

	if email := c.Query("email"); email != "" {
		query = query.Where("email ILIKE ?", "%"+email+"%")
	}
	if company := c.Query("company"); company != "" {
		query = query.Where("company ILIKE ?", "%"+company+"%")
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if tag := c.Query("tag"); tag != "" {
		query = query.Where("tags @> ?", pq.Array([]string{strings.ToLower(tag)}))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count contacts", err)
	}

	var contacts []models.Contact
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&contacts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch contacts", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  contacts,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

// GetContact returns a single contact by ID
func (cc *ContactController) GetContact(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var contact models.Contact
	if err := cc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	return c.JSON(utils.SuccessResponse(contact))
}

// UpdateContact updates mutable contact fields. Bounce state is owned by
// the bounce handler and cannot be edited here.
func (cc *ContactController) UpdateContact(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	var contact models.Contact
	if err := cc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	var input struct {
		FirstName *string  `json:"first_name" validate:"omitempty,max=100"`
		LastName  *string  `json:"last_name" validate:"omitempty,max=100"`
		Phone     *string  `json:"phone" validate:"omitempty,max=30"`
		Company   *string  `json:"company" validate:"omitempty,max=200"`
		JobTitle  *string  `json:"job_title" validate:"omitempty,max=200"`
		Status    *string  `json:"status" validate:"omitempty,oneof=subscribed unsubscribed"`
		Tags      []string `json:"tags"`
		LeadScore *int     `json:"lead_score"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if input.FirstName != nil {
		contact.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		contact.LastName = *input.LastName
	}
	if input.Phone != nil {
		contact.Phone = *input.Phone
	}
	if input.Company != nil {
		contact.Company = *input.Company
	}
	if input.JobTitle != nil {
		contact.JobTitle = *input.JobTitle
	}
	if input.Status != nil {
		// Resubscribing does not clear bounce history; only an explicit
		// bounce reset does that
		contact.Status = *input.Status
	}
	if input.Tags != nil {
		contact.Tags = pq.StringArray(utils.NormalizeTags(input.Tags))
	}
	if input.LeadScore != nil {
		contact.LeadScore = utils.ClampLeadScore(*input.LeadScore)
	}

	if err := cc.DB.Save(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update contact", err)
	}

	return c.JSON(utils.SuccessResponse(contact))
}

// DeleteContact soft-deletes a contact
func (cc *ContactController) DeleteContact(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	result := cc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).Delete(&models.Contact{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete contact", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}

// AddTags merges tags into a contact's tag set
func (cc *ContactController) AddTags(c *fiber.Ctx) error {
	return cc.mutateTags(c, utils.MergeTags)
}

// RemoveTags drops tags from a contact's tag set
func (cc *ContactController) RemoveTags(c *fiber.Ctx) error {
	return cc.mutateTags(c, utils.RemoveTags)
}

func (cc *ContactController) mutateTags(c *fiber.Ctx, apply func(current, given []string) []string) error {
	orgID := c.Locals("organizationID").(uint)

	var contact models.Contact
	if err := cc.DB.Where("id = ? AND organization_id = ?", c.Params("id"), orgID).First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	var input struct {
		Tags []string `json:"tags" validate:"required,min=1"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	contact.Tags = pq.StringArray(apply(contact.Tags, input.Tags))
	if err := cc.DB.Save(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update tags", err)
	}

	return c.JSON(utils.SuccessResponse(contact))
}

type contactImportRow struct {
	Line      int
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Company   string
	JobTitle  string
	Tags      []string
}

// parseContactImport reads contact rows from a CSV stream. A malformed row
// is skipped and recorded, never aborting the rest of the file; only a
// missing or unreadable header fails the whole import.
// Expected header: email,first_name,last_name,phone,company,job_title,tags
// where tags is a semicolon-separated list.
func parseContactImport(r io.Reader) (rows []contactImportRow, skipped int, importErrors []string, err error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["email"]; !ok {
		return nil, 0, nil, fmt.Errorf("CSV must have an email column")
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	for line := 2; ; line++ {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			skipped++
			importErrors = append(importErrors, fmt.Sprintf("line %d: %v", line, readErr))
			continue
		}

		email := strings.ToLower(field(record, "email"))
		if email == "" {
			skipped++
			continue
		}
		if check := utils.CheckEmailFormat(email); !check.FormatValid {
			skipped++
			importErrors = append(importErrors, fmt.Sprintf("line %d: invalid email %q", line, email))
			continue
		}

		var tags []string
		if raw := field(record, "tags"); raw != "" {
			tags = utils.NormalizeTags(strings.Split(raw, ";"))
		}

		rows = append(rows, contactImportRow{
			Line:      line,
			Email:     email,
			FirstName: field(record, "first_name"),
			LastName:  field(record, "last_name"),
			Phone:     field(record, "phone"),
			Company:   field(record, "company"),
			JobTitle:  field(record, "job_title"),
			Tags:      tags,
		})
	}

	return rows, skipped, importErrors, nil
}

// ImportContacts bulk-imports contacts from an uploaded CSV file
func (cc *ContactController) ImportContacts(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "CSV file is required", err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to open uploaded file", err)
	}
	defer file.Close()

	rows, skipped, importErrors, err := parseContactImport(file)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	imported := 0
	for _, row := range rows {
		contact := models.Contact{
			OrganizationID: orgID,
			Email:          row.Email,
			FirstName:      row.FirstName,
			LastName:       row.LastName,
			Phone:          row.Phone,
			Company:        row.Company,
			JobTitle:       row.JobTitle,
			Source:         "import",
			Status:         models.ContactStatusSubscribed,
			Tags:           pq.StringArray(row.Tags),
			Metadata:       models.JSONB{},
		}

		var existing models.Contact
		if err := cc.DB.Where("organization_id = ? AND email = ?", orgID, row.Email).First(&existing).Error; err == nil {
			skipped++
			continue
		}

		if err := cc.DB.Create(&contact).Error; err != nil {
			skipped++
			importErrors = append(importErrors, fmt.Sprintf("line %d: %v", row.Line, err))
			continue
		}
		imported++
	}

	cc.Logger.WithFields(logrus.Fields{
		"organization_id": orgID,
		"imported":        imported,
		"skipped":         skipped,
	}).Info("Contact import completed")

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"imported": imported,
		"skipped":  skipped,
		"errors":   importErrors,
	}))
}

// ExportContacts streams the organization's contacts as CSV
func (cc *ContactController) ExportContacts(c *fiber.Ctx) error {
	orgID := c.Locals("organizationID").(uint)

	query := cc.DB.Where("organization_id = ?", orgID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var contacts []models.Contact
	if err := query.Order("created_at ASC").Find(&contacts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch contacts", err)
	}

	var sb strings.Builder
	writer := csv.NewWriter(&sb)
	_ = writer.Write([]string{
		"email", "first_name", "last_name", "phone", "company", "job_title",
		"status", "tags", "lead_score", "bounce_count", "created_at",
	})
	for _, contact := range contacts {
		_ = writer.Write([]string{
			contact.Email,
			contact.FirstName,
			contact.LastName,
			contact.Phone,
			contact.Company,
			contact.JobTitle,
			contact.Status,
			strings.Join(contact.Tags, ";"),
			strconv.Itoa(contact.LeadScore),
			strconv.Itoa(contact.BounceCount),
			contact.CreatedAt.Format(time.RFC3339),
		})
	}
	writer.Flush()

	filename := fmt.Sprintf("contacts-%s.csv", time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.SendString(sb.String())
}

// ValidateEmail checks a single email address without creating a contact
func (cc *ContactController) ValidateEmail(c *fiber.Ctx) error {
	var input struct {
		Email        string `json:"email" validate:"required"`
		IncludeWHOIS bool   `json:"include_whois"`
		FormatOnly   bool   `json:"format_only"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var result *utils.EmailCheckResult
	if input.FormatOnly {
		result = utils.CheckEmailFormat(input.Email)
	} else {
		result = utils.CheckEmail(input.Email, input.IncludeWHOIS)
	}

	return c.JSON(utils.SuccessResponse(result))
}
