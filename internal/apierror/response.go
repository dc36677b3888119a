package apierror

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContentTypeProblemJSON is the MIME type for RFC 9457 Problem Details.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes a ProblemDetails response to the gin context
// with the correct Content-Type header.
func WriteProblem(c *gin.Context, problem *ProblemDetails) {
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(problem.Status, problem)
}

// GetRequestID extracts the request ID from the gin context, falling
// back to the X-Request-ID header.
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return c.GetHeader("X-Request-ID")
}

// NewValidationError creates a 400 response for draft validation
// failures. Multiple field errors can be included to report all issues
// at once.
func NewValidationError(requestID string, errors []FieldError) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeValidation,
		Title:       TitleValidation,
		Status:      http.StatusBadRequest,
		Detail:      "One or more fields failed validation",
		RequestID:   requestID,
		UserMessage: "Please check your input and try again",
		Errors:      errors,
	}
}

// NewNotFoundError creates a 404 response.
func NewNotFoundError(requestID, id string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeNotFound,
		Title:       TitleNotFound,
		Status:      http.StatusNotFound,
		Detail:      fmt.Sprintf("Entry with ID '%s' was not found", id),
		RequestID:   requestID,
		UserMessage: "The requested entry could not be found",
	}
}

// NewCorruptRecordError creates a 422 response for a record that
// failed its integrity check. The record id is included so the client
// can offer to quarantine or report it.
func NewCorruptRecordError(requestID, recordID string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeCorruptRecord,
		Title:       TitleCorruptRecord,
		Status:      http.StatusUnprocessableEntity,
		Detail:      fmt.Sprintf("Record '%s' could not be authenticated and was excluded", recordID),
		RequestID:   requestID,
		UserMessage: "One of your entries could not be read",
		RecordID:    recordID,
	}
}

// NewQuotaExceededError creates a 507 response for a full storage
// medium, with an action hint so the client can offer an
// export-then-free-space flow.
func NewQuotaExceededError(requestID string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeQuotaExceeded,
		Title:       TitleQuotaExceeded,
		Status:      http.StatusInsufficientStorage,
		Detail:      "The on-device store is out of space",
		RequestID:   requestID,
		UserMessage: "Storage is full. Export your journal, then free up space.",
		Action:      "export_then_free_space",
	}
}

// NewMigrationFailedError creates a 422 response for a record whose
// schema upgrade errored. The original record is preserved untouched.
func NewMigrationFailedError(requestID, recordID string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeMigrationFailed,
		Title:       TitleMigrationFailed,
		Status:      http.StatusUnprocessableEntity,
		Detail:      fmt.Sprintf("Record '%s' could not be upgraded to the current schema", recordID),
		RequestID:   requestID,
		UserMessage: "One of your entries could not be upgraded and was excluded",
		RecordID:    recordID,
	}
}

// NewBadRequestError creates a 400 response for malformed requests.
func NewBadRequestError(requestID, detail, userMessage string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeBadRequest,
		Title:       TitleBadRequest,
		Status:      http.StatusBadRequest,
		Detail:      detail,
		RequestID:   requestID,
		UserMessage: userMessage,
	}
}

// NewInternalError creates a 500 response. Internal error details are
// intentionally hidden from the client; the actual error should be
// logged instead.
func NewInternalError(requestID string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeInternal,
		Title:       TitleInternal,
		Status:      http.StatusInternalServerError,
		Detail:      "An unexpected error occurred",
		RequestID:   requestID,
		UserMessage: "Something went wrong. Please try again later.",
	}
}
