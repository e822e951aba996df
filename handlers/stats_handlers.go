package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"erpsite/api/campaign"
	"erpsite/api/funnel"
	"erpsite/api/logger"
)

// StatsHandlers serve the dashboard reports read from the event warehouse.
type StatsHandlers struct {
	Store  StatsStore
	Config *campaign.Config
}

func NewStatsHandlers(s StatsStore, cfg *campaign.Config) *StatsHandlers {
	return &StatsHandlers{Store: s, Config: cfg}
}

func (h *StatsHandlers) GetEventCountsOverTime(c *gin.Context) {
	interval := c.Query("interval")
	if interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'Day', 'Hour')"})
		return
	}
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsQueryTimeout)
	defer cancel()

	results, err := h.Store.GetEventCountsOverTime(ctx, interval, start, end, c.Query("event"))
	if err != nil {
		logger.Error("Error getting event counts over time", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) GetAverageEventDuration(c *gin.Context) {
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsQueryTimeout)
	defer cancel()

	avg, err := h.Store.GetAverageEventDuration(ctx, c.Query("event"), start, end)
	if err != nil {
		logger.Error("Error getting average event duration", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve average event duration statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"averageDurationMs": avg})
}

func (h *StatsHandlers) GetAverageCustomEventParameter(c *gin.Context) {
	eventName := c.Query("event")
	paramName := c.Query("param")
	if eventName == "" || paramName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event and param query parameters are required"})
		return
	}
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsQueryTimeout)
	defer cancel()

	avg, err := h.Store.GetAverageCustomEventParameter(ctx, eventName, paramName, start, end)
	if err != nil {
		logger.Error("Error getting average custom parameter", "event", eventName, "param", paramName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve custom parameter statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": eventName, "param": paramName, "average": avg})
}

func (h *StatsHandlers) GetUniqueVisitorsOverTime(c *gin.Context) {
	interval := c.Query("interval")
	if interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'Day', 'Hour')"})
		return
	}
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsQueryTimeout)
	defer cancel()

	results, err := h.Store.GetUniqueVisitorsOverTime(ctx, interval, start, end)
	if err != nil {
		logger.Error("Error getting unique visitors", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve unique visitor statistics"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) GetTopNPagePaths(c *gin.Context) {
	limit, ok := parseLimit(c, 10)
	if !ok {
		return
	}
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsQueryTimeout)
	defer cancel()

	results, err := h.Store.GetTopNPagePaths(ctx, start, end, limit)
	if err != nil {
		logger.Error("Error getting top page paths", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve top page paths"})
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetCampaignPerformance ranks utm campaigns by the conversion events of the event catalog.
func (h *StatsHandlers) GetCampaignPerformance(c *gin.Context) {
	limit, ok := parseLimit(c, 50)
	if !ok {
		return
	}
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsQueryTimeout)
	defer cancel()

	results, err := h.Store.GetCampaignPerformance(ctx, start, end, h.Config.ConversionEvents(), limit)
	if err != nil {
		logger.Error("Error getting campaign performance", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve campaign performance"})
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetFunnelReport evaluates a configured funnel over session counts, optionally for one
// utm campaign (?campaign=).
func (h *StatsHandlers) GetFunnelReport(c *gin.Context) {
	def, err := h.Config.Funnel(c.Param("name"))
	if err != nil {
		if errors.Is(err, campaign.ErrFunnelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load funnel"})
		return
	}
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsQueryTimeout)
	defer cancel()

	counts, err := h.Store.GetEventSessionCounts(ctx, funnel.Events(def), start, end, c.Query("campaign"))
	if err != nil {
		logger.Error("Error getting funnel counts", "funnel", def.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve funnel statistics"})
		return
	}
	c.JSON(http.StatusOK, funnel.Evaluate(def, counts))
}

func parseLimit(c *gin.Context, def uint64) (uint64, bool) {
	v := c.Query("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 || n > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 1000"})
		return 0, false
	}
	return n, true
}
