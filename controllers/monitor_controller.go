package controllers

import (
	"net/http"
	"time"

	"stock_alert_backend/services"

	"github.com/gin-gonic/gin"
)

// MonitorController exposes the price monitor's invocation surface: the
// market-open predicate, last-cycle status, and the manual cycle trigger.
type MonitorController struct {
	monitor *services.PriceMonitor
}

// NewMonitorController creates a new monitor controller
func NewMonitorController(monitor *services.PriceMonitor) *MonitorController {
	return &MonitorController{monitor: monitor}
}

// GetMarketStatus reports whether the market is currently open
// GET /api/v1/monitor/market
func (mc *MonitorController) GetMarketStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"is_open":    mc.monitor.MarketOpen(),
		"checked_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetStatus returns stats from the most recent check cycle
// GET /api/v1/monitor/status
func (mc *MonitorController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, mc.monitor.Status())
}

// RunCheck triggers one check cycle immediately. The cycle gates on market
// hours itself, so a closed-market trigger is a no-op.
// POST /api/v1/monitor/check
func (mc *MonitorController) RunCheck(c *gin.Context) {
	go mc.monitor.RunCycle()

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Price check cycle started",
	})
}
