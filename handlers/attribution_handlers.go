package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"erpsite/api/attribution"
	"erpsite/api/logger"
	"erpsite/api/models"
	"erpsite/api/tracker"
	"erpsite/api/utils"
)

// Attribution cookies. The visitor cookie is durable; the session cookie has no max-age so it
// ends with the browser session.
const (
	VisitorCookie = "erp_vid"
	SessionCookie = "erp_sid"
)

const attributionTimeout = 5 * time.Second

type AttributionHandlers struct {
	Scopes        attribution.Scopes
	Tracker       EventTracker
	VisitorTTL    time.Duration
	SecureCookies bool
}

func NewAttributionHandlers(scopes attribution.Scopes, t EventTracker, visitorTTL time.Duration, secureCookies bool) *AttributionHandlers {
	return &AttributionHandlers{Scopes: scopes, Tracker: t, VisitorTTL: visitorTTL, SecureCookies: secureCookies}
}

type touchRequest struct {
	PageURL  string `json:"pageUrl" binding:"required"`
	Referrer string `json:"referrer"`
}

// Touch records the UTM parameters of a landing page for the calling visitor and returns the
// resulting attribution snapshot.
func (h *AttributionHandlers) Touch(c *gin.Context) {
	var req touchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	visitorID, sessionScope := h.ensureCookies(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), attributionTimeout)
	defer cancel()

	st := h.store(visitorID, sessionScope)
	snap := st.Init(ctx, req.PageURL)

	if snap.Current != nil && h.Tracker != nil {
		visit := tracker.Visit{
			VisitorID: visitorID,
			SessionID: snap.SessionID,
			PagePath:  pagePath(req.PageURL),
			Referrer:  req.Referrer,
			UserAgent: c.Request.UserAgent(),
			IPAddress: c.ClientIP(),
			UTM:       *snap.Current,
		}
		props := map[string]any{}
		for k, v := range snap.Current.Map() {
			props[k] = v
		}
		if err := h.Tracker.Track(tracker.WithVisit(ctx, visit), "utm_captured", "", props); err != nil {
			logger.Warn("Failed to track utm capture", "visitor_id", visitorID, "error", err)
		}
	}

	c.JSON(http.StatusOK, snap)
}

// Get returns the stored attribution of the calling visitor.
func (h *AttributionHandlers) Get(c *gin.Context) {
	visitorID, sessionScope := h.ensureCookies(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), attributionTimeout)
	defer cancel()

	st := h.store(visitorID, sessionScope)
	st.Load(ctx)
	_ = st.SessionID(ctx)
	c.JSON(http.StatusOK, st.Snapshot())
}

// Clear drops every stored touch of the calling visitor. The session id survives.
func (h *AttributionHandlers) Clear(c *gin.Context) {
	visitorID, err := c.Cookie(VisitorCookie)
	if err != nil || !validScopeID(visitorID) {
		c.Status(http.StatusNoContent)
		return
	}
	sessionScope, _ := c.Cookie(SessionCookie)
	if !validScopeID(sessionScope) {
		sessionScope = ""
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), attributionTimeout)
	defer cancel()

	h.store(visitorID, sessionScope).Clear(ctx)
	c.Status(http.StatusNoContent)
}

// VisitFromRequest assembles the tracking context for a request carrying attribution cookies.
// The stored session id and current attribution fill what the client did not send.
func (h *AttributionHandlers) VisitFromRequest(c *gin.Context) tracker.Visit {
	v := tracker.Visit{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
		Referrer:  c.Request.Referer(),
	}
	visitorID, err := c.Cookie(VisitorCookie)
	if err != nil || !validScopeID(visitorID) {
		return v
	}
	v.VisitorID = visitorID
	sessionScope, _ := c.Cookie(SessionCookie)
	if !validScopeID(sessionScope) {
		sessionScope = ""
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), attributionTimeout)
	defer cancel()

	st := h.store(visitorID, sessionScope)
	st.Load(ctx)
	v.SessionID = st.SessionID(ctx)
	if utm, ok := st.Current(); ok {
		v.UTM = utm
	}
	return v
}

func (h *AttributionHandlers) store(visitorID, sessionScope string) *attribution.Store {
	local := h.Scopes.Visitor(visitorID)
	if sessionScope == "" {
		// no session cookie: an ephemeral scope keeps session data out of the visitor scope
		return attribution.NewStore(local, attribution.NewMemoryStorage())
	}
	return attribution.NewStore(local, h.Scopes.Session(sessionScope))
}

func (h *AttributionHandlers) ensureCookies(c *gin.Context) (visitorID, sessionScope string) {
	c.SetSameSite(http.SameSiteLaxMode)

	visitorID, err := c.Cookie(VisitorCookie)
	if err != nil || !validScopeID(visitorID) {
		visitorID = uuid.NewString()
	}
	// refreshed on every visit so the lifetime counts from the last visit
	c.SetCookie(VisitorCookie, visitorID, int(h.VisitorTTL.Seconds()), "/", "", h.SecureCookies, true)

	sessionScope, err = c.Cookie(SessionCookie)
	if err != nil || !validScopeID(sessionScope) {
		sessionScope = uuid.NewString()
		c.SetCookie(SessionCookie, sessionScope, 0, "/", "", h.SecureCookies, true)
	}
	return visitorID, sessionScope
}

// validScopeID keeps client-chosen ids from addressing arbitrary Redis keys.
func validScopeID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// touchUTM is the body shape shared by validate and match: either a URL to parse or explicit
// parameters.
type touchUTM struct {
	URL string            `json:"url"`
	UTM *models.UTMParams `json:"utm"`
}

func (t touchUTM) params() (models.UTMParams, bool) {
	if t.UTM != nil {
		return *t.UTM, true
	}
	if t.URL != "" {
		return utils.ParseUTM(t.URL), true
	}
	return models.UTMParams{}, false
}
