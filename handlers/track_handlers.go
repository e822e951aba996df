// api/handlers/track_handlers.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"erpsite/api/logger"
	"erpsite/api/models"
	"erpsite/api/tracker"
)

// maxTrackBatch bounds the events accepted in one request.
const maxTrackBatch = 500

type TrackHandlers struct {
	Tracker EventTracker
	Visit   visitFunc
}

func NewTrackHandlers(t EventTracker, visit visitFunc) *TrackHandlers {
	return &TrackHandlers{Tracker: t, Visit: visit}
}

type rejectedEvent struct {
	Index int    `json:"index"`
	Event string `json:"eventName"`
	Error string `json:"error"`
}

// TrackEvents accepts a JSON array of events from the site. Visitor, session, UTM and client
// details the page did not send are filled from the attribution cookies and the request.
// Events failing the catalog check are reported back individually.
func (h *TrackHandlers) TrackEvents(c *gin.Context) {
	var incoming []models.AnalyticsEvent
	if err := c.ShouldBindJSON(&incoming); err != nil {
		logger.Debug("Invalid analytics payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(incoming) == 0 {
		c.JSON(http.StatusOK, gin.H{"accepted": 0})
		return
	}
	if len(incoming) > maxTrackBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Too many events in one request"})
		return
	}

	var visit tracker.Visit
	if h.Visit != nil {
		visit = h.Visit(c)
	}

	accepted := 0
	rejected := []rejectedEvent{}
	for i, ev := range incoming {
		// ids and timestamps are assigned server side
		ev.EventID = ""
		ev.Timestamp = time.Time{}
		ev.IPAddress = c.ClientIP()
		if ev.UserAgent == "" {
			ev.UserAgent = visit.UserAgent
		}
		if ev.VisitorID == "" {
			ev.VisitorID = visit.VisitorID
		}
		if ev.SessionID == "" {
			ev.SessionID = visit.SessionID
		}
		if ev.UTM.IsEmpty() {
			ev.UTM = visit.UTM
		}

		err := h.Tracker.Enqueue(ev)
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, tracker.ErrQueueFull), errors.Is(err, tracker.ErrClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event pipeline is busy, retry later", "accepted": accepted})
			return
		default:
			rejected = append(rejected, rejectedEvent{Index: i, Event: ev.EventName, Error: err.Error()})
		}
	}

	status := http.StatusAccepted
	if accepted == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"accepted": accepted, "rejected": rejected})
}
