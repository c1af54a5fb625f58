package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/coopmetrics/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.AnalyticsHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	orgs := r.Group("/orgs/:orgID")
	{
		orgs.GET("/dashboard", handler.Dashboard)
		orgs.GET("/production/trend", handler.ProductionTrend)
		orgs.GET("/production/weekly", handler.WeeklyProduction)
		orgs.GET("/sheds/performance", handler.ShedPerformance)
		orgs.GET("/attendance/summary", handler.AttendanceSummary)
		orgs.GET("/alerts", handler.Alerts)
		orgs.GET("/cycle/current", handler.CurrentWeek)
		orgs.POST("/reports", handler.CompileReport)
		orgs.POST("/alerts/notify", handler.NotifyAlerts)
	}

	r.POST("/scheduler/reports/run", handler.RunDueReports)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
