package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erpsite/api/models"
)

const landing = "https://erp.example.com/pricing?utm_source=google&utm_medium=cpc&utm_campaign=spring_sale"

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAttributionTouch_FirstVisit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/attribution/touch", map[string]string{"pageUrl": landing})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	vid := cookieNamed(rec, VisitorCookie)
	sid := cookieNamed(rec, SessionCookie)
	require.NotNil(t, vid)
	require.NotNil(t, sid)
	assert.Equal(t, int((24 * time.Hour).Seconds()), vid.MaxAge)
	assert.Zero(t, sid.MaxAge, "session cookie has no max-age")
	assert.True(t, vid.HttpOnly)

	snap := decode[models.AttributionSnapshot](t, rec)
	want := models.UTMParams{Source: "google", Medium: "cpc", Campaign: "spring_sale"}
	require.NotNil(t, snap.Current)
	assert.Equal(t, want, *snap.Current)
	assert.Equal(t, want, *snap.FirstTouch)
	assert.Equal(t, want, *snap.LastTouch)
	assert.Equal(t, want, *snap.SessionTouch)
	assert.Len(t, snap.History, 3)
	assert.NotEmpty(t, snap.SessionID)

	env.flush(t)
	captured := env.sink.named("utm_captured")
	require.Len(t, captured, 1)
	assert.Equal(t, vid.Value, captured[0].VisitorID)
	assert.Equal(t, "/pricing", captured[0].PagePath)
	assert.Equal(t, "spring_sale", captured[0].UTM.Campaign)
	assert.Equal(t, "attribution", captured[0].Category)
}

func TestAttributionTouch_ReturnVisitKeepsFirstTouch(t *testing.T) {
	env := newTestEnv(t)

	first := env.do(http.MethodPost, "/api/attribution/touch", map[string]string{"pageUrl": landing})
	require.Equal(t, http.StatusOK, first.Code)
	vid := cookieNamed(first, VisitorCookie)

	// new browser session, same visitor
	rec := env.do(http.MethodPost, "/api/attribution/touch",
		map[string]string{"pageUrl": "https://erp.example.com/?utm_source=linkedin&utm_medium=paid_social"}, vid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vid.Value, cookieNamed(rec, VisitorCookie).Value)

	snap := decode[models.AttributionSnapshot](t, rec)
	assert.Equal(t, "google", snap.FirstTouch.Source)
	assert.Equal(t, "linkedin", snap.LastTouch.Source)
	assert.Equal(t, "linkedin", snap.SessionTouch.Source)
	assert.Len(t, snap.History, 5)
}

func TestAttributionTouch_PageWithoutUTM(t *testing.T) {
	env := newTestEnv(t)

	first := env.do(http.MethodPost, "/api/attribution/touch", map[string]string{"pageUrl": landing})
	vid, sid := cookieNamed(first, VisitorCookie), cookieNamed(first, SessionCookie)

	rec := env.do(http.MethodPost, "/api/attribution/touch", map[string]string{"pageUrl": "https://erp.example.com/features"}, vid, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, cookieNamed(rec, SessionCookie), "existing session cookie is kept")

	snap := decode[models.AttributionSnapshot](t, rec)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "google", snap.Current.Source, "current falls back to the last touch")
	assert.Len(t, snap.History, 3)
}

func TestAttributionTouch_BadBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/attribution/touch", `{"pageUrl": 12}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/attribution/touch", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttributionTouch_ForgedCookieIsReplaced(t *testing.T) {
	env := newTestEnv(t)
	forged := &http.Cookie{Name: VisitorCookie, Value: "*"}

	rec := env.do(http.MethodPost, "/api/attribution/touch", map[string]string{"pageUrl": landing}, forged)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "*", cookieNamed(rec, VisitorCookie).Value)
}

func TestAttributionGetAndClear(t *testing.T) {
	env := newTestEnv(t)

	first := env.do(http.MethodPost, "/api/attribution/touch", map[string]string{"pageUrl": landing})
	vid, sid := cookieNamed(first, VisitorCookie), cookieNamed(first, SessionCookie)
	sessionID := decode[models.AttributionSnapshot](t, first).SessionID

	rec := env.do(http.MethodGet, "/api/attribution", nil, vid, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[models.AttributionSnapshot](t, rec)
	assert.Equal(t, "google", snap.FirstTouch.Source)
	assert.Equal(t, sessionID, snap.SessionID)

	rec = env.do(http.MethodDelete, "/api/attribution", nil, vid, sid)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/api/attribution", nil, vid, sid)
	snap = decode[models.AttributionSnapshot](t, rec)
	assert.Nil(t, snap.FirstTouch)
	assert.Nil(t, snap.LastTouch)
	assert.Nil(t, snap.SessionTouch)
	assert.Empty(t, snap.History)
	assert.Equal(t, sessionID, snap.SessionID, "clearing keeps the session id")
}

func TestAttributionClear_NoCookie(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodDelete, "/api/attribution", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
