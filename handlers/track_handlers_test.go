package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erpsite/api/campaign"
	"erpsite/api/models"
	"erpsite/api/tracker"
)

func TestTrackEvents_FillsVisitFromCookies(t *testing.T) {
	env := newTestEnv(t)

	touch := env.do(http.MethodPost, "/api/attribution/touch", map[string]string{"pageUrl": landing})
	vid, sid := cookieNamed(touch, VisitorCookie), cookieNamed(touch, SessionCookie)
	sessionID := decode[models.AttributionSnapshot](t, touch).SessionID

	rec := env.do(http.MethodPost, "/api/track", []map[string]any{
		{"eventName": "page_view", "pagePath": "/pricing"},
		{"eventName": "cta_click", "pagePath": "/pricing", "properties": map[string]string{"cta_id": "hero_demo"}},
		{"eventName": "pricing_view", "utm": map[string]string{"utm_source": "bing"}},
	}, vid, sid)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"accepted": 3, "rejected": []}`, rec.Body.String())

	env.flush(t)
	views := env.sink.named("page_view")
	require.Len(t, views, 1)
	assert.Equal(t, vid.Value, views[0].VisitorID)
	assert.Equal(t, sessionID, views[0].SessionID)
	assert.Equal(t, "google", views[0].UTM.Source)
	assert.NotEmpty(t, views[0].EventID)
	assert.Equal(t, "192.0.2.1", views[0].IPAddress)

	pricing := env.sink.named("pricing_view")
	require.Len(t, pricing, 1)
	assert.Equal(t, "bing", pricing[0].UTM.Source, "client supplied UTM wins")
}

func TestTrackEvents_ServerAssignsIDAndTimestamp(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/track", []map[string]any{
		{"eventName": "page_view", "eventId": "client-id", "timestamp": "2001-02-03T04:05:06Z"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	env.flush(t)
	views := env.sink.named("page_view")
	require.Len(t, views, 1)
	assert.NotEqual(t, "client-id", views[0].EventID)
	assert.NotEqual(t, 2001, views[0].Timestamp.Year())
	assert.False(t, views[0].Timestamp.IsZero())
}

func TestTrackEvents_ReportsRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/track", []map[string]any{
		{"eventName": "page_view"},
		{"eventName": "laser_show"},
		{"eventName": "form_submit"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decode[struct {
		Accepted int             `json:"accepted"`
		Rejected []rejectedEvent `json:"rejected"`
	}](t, rec)
	assert.Equal(t, 1, body.Accepted)
	require.Len(t, body.Rejected, 2)
	assert.Equal(t, 1, body.Rejected[0].Index)
	assert.Contains(t, body.Rejected[0].Error, "unknown event")
	assert.Equal(t, "form_submit", body.Rejected[1].Event)
	assert.Contains(t, body.Rejected[1].Error, "form_id")
}

func TestTrackEvents_BadPayloads(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/track", `{"eventName": "page_view"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/track", `[{"pagePath": "/"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "eventName is required")

	rec = env.do(http.MethodPost, "/api/track", `[]`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/track", []map[string]any{{"eventName": "laser_show"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrackEvents_ClosedTracker(t *testing.T) {
	tr := tracker.New(campaign.Default(), &recordingSink{}, tracker.Options{})
	require.NoError(t, tr.Close(context.Background()))

	env := newTestEnv(t)
	env.router = NewRouter(RouterDeps{
		Tracker:   tr,
		Scopes:    env.scopes,
		Marketing: campaign.Default(),
		Tokens:    env.tokens,
	})

	rec := env.do(http.MethodPost, "/api/track", []map[string]any{{"eventName": "page_view"}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
