package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"erpsite/api/logger"
	"erpsite/api/models"
	"erpsite/api/roi"
	"erpsite/api/tracker"
)

type ROIHandlers struct {
	calc *roi.Calculator
}

// NewROIHandlers reports every calculation to t as a roi_calculated event. t may be nil.
func NewROIHandlers(t EventTracker) *ROIHandlers {
	var opts []roi.Option
	if t != nil {
		opts = append(opts, roi.WithReporter(func(ctx context.Context, in models.ROIInputs, res models.ROIResults) {
			err := t.Track(ctx, "roi_calculated", "", map[string]any{
				"employees":         in.Employees,
				"current_erp_users": in.CurrentERPUsers,
				"annual_savings":    res.AnnualSavings,
				"three_year_roi":    res.ThreeYearROI,
				"payback_reachable": res.PaybackReachable,
			})
			if err != nil {
				logger.Warn("Failed to track ROI calculation", "error", err)
			}
		}))
	}
	return &ROIHandlers{calc: roi.NewCalculator(opts...)}
}

// visitFunc supplies the tracking context for a request; nil means an anonymous visit.
type visitFunc func(c *gin.Context) tracker.Visit

func (h *ROIHandlers) Calculate(visit visitFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in models.ROIInputs
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}

		ctx := c.Request.Context()
		if visit != nil {
			ctx = tracker.WithVisit(ctx, visit(c))
		}

		res, err := h.calc.Calculate(ctx, in)
		if err != nil {
			if errors.Is(err, roi.ErrInvalidInputs) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate ROI"})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
