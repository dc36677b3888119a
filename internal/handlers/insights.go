package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quillhealth/quill/internal/apierror"
	"github.com/quillhealth/quill/internal/service"
)

type InsightsHandler struct {
	insights service.InsightsService
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(insights service.InsightsService) *InsightsHandler {
	return &InsightsHandler{insights: insights}
}

// GetInsights handles GET /api/v1/insights. Engines without enough
// data appear as insufficiency notes in the body, never as errors.
func (h *InsightsHandler) GetInsights(c *gin.Context) {
	resp, err := h.insights.GetInsights(c.Request.Context())
	if err != nil {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetCrisisSignal handles GET /api/v1/insights/crisis
func (h *InsightsHandler) GetCrisisSignal(c *gin.Context) {
	signal, err := h.insights.GetCrisisSignal(c.Request.Context())
	if err != nil {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewInternalError(requestID))
		return
	}
	c.JSON(http.StatusOK, signal)
}

// GetTrend handles GET /api/v1/insights/trend. The optional
// `lookback_days` query parameter overrides the configured default.
// Insufficient data returns 200 with the progress note: it is a
// normal state for a new user, not a failure.
func (h *InsightsHandler) GetTrend(c *gin.Context) {
	lookback := 0
	if raw := c.Query("lookback_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			requestID := apierror.GetRequestID(c)
			apierror.WriteProblem(c, apierror.NewBadRequestError(requestID,
				"lookback_days must be a positive integer",
				"Invalid lookback_days parameter"))
			return
		}
		lookback = parsed
	}

	trend, err := h.insights.GetTrend(c.Request.Context(), lookback)
	if err != nil {
		writeInsightError(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

// GetPrediction handles GET /api/v1/insights/prediction
func (h *InsightsHandler) GetPrediction(c *gin.Context) {
	prediction, err := h.insights.GetPrediction(c.Request.Context())
	if err != nil {
		writeInsightError(c, err)
		return
	}
	c.JSON(http.StatusOK, prediction)
}

// GetMultiVariate handles GET /api/v1/insights/multivariate
func (h *InsightsHandler) GetMultiVariate(c *gin.Context) {
	result, err := h.insights.GetMultiVariate(c.Request.Context())
	if err != nil {
		writeInsightError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func writeInsightError(c *gin.Context, err error) {
	var insufficient *service.InsufficientDataError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusOK, gin.H{"insufficient_data": insufficient.Note()})
		return
	}
	requestID := apierror.GetRequestID(c)
	apierror.WriteProblem(c, apierror.NewInternalError(requestID))
}
