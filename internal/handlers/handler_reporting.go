package handlers

import (
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/entererp/finance_core_app/internal/core/ports/services"
	"github.com/entererp/finance_core_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reportingHandler handles HTTP requests for financial reports.
type reportingHandler struct {
	reportingService portssvc.ReportingService
}

func newReportingHandler(reportingService portssvc.ReportingService) *reportingHandler {
	return &reportingHandler{reportingService: reportingService}
}

// parseAsOf reads the asOf query parameter, defaulting to now.
func parseAsOf(c *gin.Context) (time.Time, bool) {
	raw := c.Query("asOf")
	if raw == "" {
		return time.Now().UTC(), true
	}
	asOf, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Accept plain dates too
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asOf date, expected RFC3339 or YYYY-MM-DD"})
			return time.Time{}, false
		}
	}
	return asOf, true
}

func (h *reportingHandler) trialBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("companyID")

	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	report, err := h.reportingService.TrialBalance(c.Request.Context(), companyID, asOf)
	if err != nil {
		logger.Error("Failed to generate trial balance", slog.String("error", err.Error()), slog.String("company_id", companyID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate trial balance"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *reportingHandler) agedReceivables(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("companyID")

	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	report, err := h.reportingService.AgedReceivables(c.Request.Context(), companyID, asOf)
	if err != nil {
		logger.Error("Failed to generate aged receivables", slog.String("error", err.Error()), slog.String("company_id", companyID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate aged receivables"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// registerReportingRoutes registers reporting specific routes under a company.
func registerReportingRoutes(group *gin.RouterGroup, reportingService portssvc.ReportingService) {
	h := newReportingHandler(reportingService)

	reports := group.Group("/reports")
	{
		reports.GET("/trial-balance", h.trialBalance)
		reports.GET("/aged-receivables", h.agedReceivables)
	}
}
