package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/coopmetrics/internal/domain/models"
	"github.com/mamadbah2/coopmetrics/internal/scheduler"
	"github.com/mamadbah2/coopmetrics/internal/service/reporting"
)

// AnalyticsHandler exposes the reporting and scheduling services over HTTP.
type AnalyticsHandler struct {
	reporting *reporting.Service
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
}

// NewAnalyticsHandler constructs the HTTP handler adapter.
func NewAnalyticsHandler(reportingSvc *reporting.Service, sched *scheduler.Scheduler, logger *zap.Logger) *AnalyticsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsHandler{reporting: reportingSvc, scheduler: sched, logger: logger}
}

// Dashboard returns headline production numbers for the trailing window.
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	orgID := c.Param("orgID")
	days := queryInt(c, "days", 7)

	stats, err := h.reporting.GetDashboardStats(c.Request.Context(), orgID, days, time.Now())
	if err != nil {
		h.respondError(c, "dashboard stats failed", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ProductionTrend returns per-day production metrics for the trailing window.
func (h *AnalyticsHandler) ProductionTrend(c *gin.Context) {
	orgID := c.Param("orgID")
	days := queryInt(c, "days", 30)

	trend, err := h.reporting.GetProductionTrend(c.Request.Context(), orgID, days, time.Now())
	if err != nil {
		h.respondError(c, "production trend failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "trend": trend})
}

// ShedPerformance returns per-shed rollups for the trailing window.
func (h *AnalyticsHandler) ShedPerformance(c *gin.Context) {
	orgID := c.Param("orgID")
	days := queryInt(c, "days", 30)

	sheds, err := h.reporting.GetShedPerformance(c.Request.Context(), orgID, days, time.Now())
	if err != nil {
		h.respondError(c, "shed performance failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "sheds": sheds})
}

// AttendanceSummary returns workforce attendance for the trailing window.
func (h *AnalyticsHandler) AttendanceSummary(c *gin.Context) {
	orgID := c.Param("orgID")
	days := queryInt(c, "days", 7)

	summary, err := h.reporting.GetAttendanceSummary(c.Request.Context(), orgID, days, time.Now())
	if err != nil {
		h.respondError(c, "attendance summary failed", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Alerts returns current classified alerts for the organization.
func (h *AnalyticsHandler) Alerts(c *gin.Context) {
	orgID := c.Param("orgID")

	alerts, err := h.reporting.GetProductionAlerts(c.Request.Context(), orgID, time.Now())
	if err != nil {
		h.respondError(c, "alert classification failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(alerts), "alerts": alerts})
}

// CurrentWeek resolves the active flock cycle's position for today.
func (h *AnalyticsHandler) CurrentWeek(c *gin.Context) {
	orgID := c.Param("orgID")
	farmID := c.Query("farm_id")

	status, err := h.reporting.GetCurrentWeekStatus(c.Request.Context(), orgID, farmID, time.Now())
	if err != nil {
		h.respondError(c, "cycle resolution failed", err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// WeeklyProduction returns the recent cycle-week production summary.
func (h *AnalyticsHandler) WeeklyProduction(c *gin.Context) {
	orgID := c.Param("orgID")
	weeks := queryInt(c, "weeks", 8)

	summary, err := h.reporting.GetWeeklyProductionSummary(c.Request.Context(), orgID, weeks, time.Now())
	if err != nil {
		h.respondError(c, "weekly summary failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"weeks": summary})
}

type compileRequest struct {
	ReportType  string       `json:"report_type"`
	Start       string       `json:"start" binding:"required"`
	End         string       `json:"end" binding:"required"`
	Scope       models.Scope `json:"scope"`
	RequestedBy string       `json:"requested_by"`
}

// CompileReport builds an on-demand report for an explicit range and scope.
func (h *AnalyticsHandler) CompileReport(c *gin.Context) {
	orgID := c.Param("orgID")

	var req compileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid report request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse("2006-01-02", req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
		return
	}

	reportType := req.ReportType
	if reportType == "" {
		reportType = "on_demand"
	}

	report, err := h.reporting.Compile(c.Request.Context(), orgID, reportType, models.NewDateRange(start, end), req.Scope, req.RequestedBy)
	if err != nil {
		h.respondError(c, "report compilation failed", err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// RunDueReports triggers one scheduler pass over due report definitions.
func (h *AnalyticsHandler) RunDueReports(c *gin.Context) {
	summary, err := h.scheduler.ProcessDueReports(c.Request.Context())
	if err != nil {
		h.logger.Error("manual scheduler run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scheduler run failed"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// NotifyAlerts pushes the organization's current alerts to its recipients.
func (h *AnalyticsHandler) NotifyAlerts(c *gin.Context) {
	orgID := c.Param("orgID")

	summary, err := h.scheduler.SendAlertNotifications(c.Request.Context(), orgID)
	if err != nil {
		h.respondError(c, "alert notification failed", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *AnalyticsHandler) respondError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidScope):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrRangeTooLarge):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidCycleDate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNoActiveCycle):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
