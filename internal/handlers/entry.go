package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillhealth/quill/internal/apierror"
	"github.com/quillhealth/quill/internal/migrate"
	"github.com/quillhealth/quill/internal/models"
	"github.com/quillhealth/quill/internal/repository"
	"github.com/quillhealth/quill/internal/store"
)

type EntryHandler struct {
	repo repository.EntryRepository
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(repo repository.EntryRepository) *EntryHandler {
	return &EntryHandler{repo: repo}
}

// CreateEntry handles POST /api/v1/entries
func (h *EntryHandler) CreateEntry(c *gin.Context) {
	var req models.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, err.Error(), "Invalid JSON format"))
		return
	}

	entry, err := h.repo.Append(c.Request.Context(), &req)
	if err != nil {
		writeEntryError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// GetEntry handles GET /api/v1/entries/:id
func (h *EntryHandler) GetEntry(c *gin.Context) {
	id := c.Param("id")

	entry, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		writeEntryError(c, err, id)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ListEntries handles GET /api/v1/entries. The optional `since` query
// parameter bounds the list below; excluded records are reported
// alongside the entries rather than failing the whole read.
func (h *EntryHandler) ListEntries(c *gin.Context) {
	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			requestID := apierror.GetRequestID(c)
			apierror.WriteProblem(c, apierror.NewBadRequestError(requestID,
				"since must be a valid RFC3339 timestamp",
				"Invalid since parameter"))
			return
		}
		since = &parsed
	}

	entries, issues, err := h.repo.ListSince(c.Request.Context(), since)
	if err != nil {
		writeEntryError(c, err, "")
		return
	}

	excluded := make([]string, 0, len(issues))
	for _, issue := range issues {
		excluded = append(excluded, issue.ID)
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":  entries,
		"count":    len(entries),
		"excluded": excluded,
	})
}

// SupersedeEntry handles POST /api/v1/entries/:id/supersede. The
// original entry is retained for audit; the correction logically
// replaces it for display. The body is a partial correction: fields
// left out keep the original's values, a null note clears it.
func (h *EntryHandler) SupersedeEntry(c *gin.Context) {
	id := c.Param("id")

	var req models.SupersedeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, err.Error(), "Invalid JSON format"))
		return
	}

	entry, err := h.repo.Supersede(c.Request.Context(), id, &req)
	if err != nil {
		writeEntryError(c, err, id)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// DeleteEntry handles DELETE /api/v1/entries/:id
func (h *EntryHandler) DeleteEntry(c *gin.Context) {
	id := c.Param("id")

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		writeEntryError(c, err, id)
		return
	}

	c.Status(http.StatusNoContent)
}

// writeEntryError maps domain errors onto problem responses.
func writeEntryError(c *gin.Context, err error, id string) {
	requestID := apierror.GetRequestID(c)

	var validation *repository.ValidationError
	if errors.As(err, &validation) {
		fieldErrors := make([]apierror.FieldError, 0, len(validation.Fields))
		for _, f := range validation.Fields {
			fieldErrors = append(fieldErrors, apierror.FieldError{
				Field:   f.Field,
				Message: f.Message,
			})
		}
		apierror.WriteProblem(c, apierror.NewValidationError(requestID, fieldErrors))
		return
	}

	var corrupt *store.CorruptRecordError
	if errors.As(err, &corrupt) {
		apierror.WriteProblem(c, apierror.NewCorruptRecordError(requestID, corrupt.ID))
		return
	}

	var failed *migrate.FailedError
	if errors.As(err, &failed) {
		apierror.WriteProblem(c, apierror.NewMigrationFailedError(requestID, id))
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		apierror.WriteProblem(c, apierror.NewNotFoundError(requestID, id))
	case errors.Is(err, store.ErrQuotaExceeded):
		apierror.WriteProblem(c, apierror.NewQuotaExceededError(requestID))
	default:
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
	}
}
