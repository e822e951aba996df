package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"erpsite/api/models"
	"erpsite/api/store"
)

// UserRepository is the part of store.UserStore the auth handlers use.
type UserRepository interface {
	CreateUser(ctx context.Context, email, name, role string, hashedPassword []byte) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

// StatsStore is the read side of store.AnalyticsStore.
type StatsStore interface {
	GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventFilter string) ([]store.EventTypeCountByTime, error)
	GetAverageEventDuration(ctx context.Context, eventFilter string, start, end time.Time) (float64, error)
	GetAverageCustomEventParameter(ctx context.Context, eventName, paramName string, start, end time.Time) (float64, error)
	GetUniqueVisitorsOverTime(ctx context.Context, interval string, start, end time.Time) ([]store.EventTypeCountByTime, error)
	GetTopNPagePaths(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopPathResult, error)
	GetCampaignPerformance(ctx context.Context, start, end time.Time, conversionEvents []string, limit uint64) ([]models.CampaignPerformance, error)
	GetEventSessionCounts(ctx context.Context, eventNames []string, start, end time.Time, utmCampaign string) (map[string]uint64, error)
}

// EventTracker is the part of tracker.Tracker the handlers use.
type EventTracker interface {
	Track(ctx context.Context, name, category string, properties map[string]any) error
	Enqueue(ev models.AnalyticsEvent) error
}

const (
	statsQueryTimeout = 10 * time.Second
	defaultStatsRange = 7 * 24 * time.Hour
)

// parseTimeRange reads the optional RFC3339 start/end query parameters, defaulting to the
// last seven days. On failure it writes the 400 response and returns ok=false.
func parseTimeRange(c *gin.Context) (start, end time.Time, ok bool) {
	now := time.Now().UTC()
	end = now
	start = now.Add(-defaultStatsRange)

	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return start, end, false
		}
		start = t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return start, end, false
		}
		end = t
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'end' must not be before 'start'"})
		return start, end, false
	}
	return start, end, true
}
