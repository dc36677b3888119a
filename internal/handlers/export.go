package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillhealth/quill/internal/apierror"
	"github.com/quillhealth/quill/internal/models"
	"github.com/quillhealth/quill/internal/repository"
)

type ExportHandler struct {
	repo repository.EntryRepository
}

// NewExportHandler creates a new export handler
func NewExportHandler(repo repository.EntryRepository) *ExportHandler {
	return &ExportHandler{repo: repo}
}

// ExportSnapshot handles GET /api/v1/export. This is the only route
// that hands decrypted data out of the core, and it only runs on an
// explicit user request. Field selection defaults to everything;
// individual groups can be dropped with include_* query parameters.
func (h *ExportHandler) ExportSnapshot(c *gin.Context) {
	requestID := apierror.GetRequestID(c)

	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apierror.WriteProblem(c, apierror.NewBadRequestError(requestID,
				"from must be a valid RFC3339 timestamp", "Invalid from parameter"))
			return
		}
		from = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apierror.WriteProblem(c, apierror.NewBadRequestError(requestID,
				"to must be a valid RFC3339 timestamp", "Invalid to parameter"))
			return
		}
		to = &parsed
	}
	if from != nil && to != nil && from.After(*to) {
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID,
			"from must be before or equal to to", "Invalid date range"))
		return
	}

	sel := models.FullExport()
	var parseErr error
	sel.IncludeNotes, parseErr = boolQuery(c, "include_notes", sel.IncludeNotes, parseErr)
	sel.IncludeTags, parseErr = boolQuery(c, "include_tags", sel.IncludeTags, parseErr)
	sel.IncludeInterventions, parseErr = boolQuery(c, "include_interventions", sel.IncludeInterventions, parseErr)
	sel.IncludeContext, parseErr = boolQuery(c, "include_context", sel.IncludeContext, parseErr)
	if parseErr != nil {
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID,
			parseErr.Error(), "Invalid field selection parameter"))
		return
	}

	entries, err := h.repo.ExportSnapshot(c.Request.Context(), from, to, sel)
	if err != nil {
		writeEntryError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":     entries,
		"count":       len(entries),
		"exported_at": time.Now().UTC(),
	})
}

func boolQuery(c *gin.Context, name string, fallback bool, prior error) (bool, error) {
	if prior != nil {
		return fallback, prior
	}
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, err
	}
	return v, nil
}
