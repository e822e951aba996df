package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erpsite/api/models"
)

func TestROIEndpoint(t *testing.T) {
	env := newTestEnv(t)

	touch := env.do(http.MethodPost, "/api/attribution/touch", map[string]string{"pageUrl": landing})
	vid, sid := cookieNamed(touch, VisitorCookie), cookieNamed(touch, SessionCookie)

	rec := env.do(http.MethodPost, "/api/roi", models.ROIInputs{
		CurrentERPCost:         50000,
		CurrentERPUsers:        50,
		CurrentERPSupportCost:  20000,
		Employees:              100,
		ExpectedEfficiencyGain: 15,
		ImplementationTimeline: 3,
	}, vid, sid)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[models.ROIResults](t, rec)
	assert.InDelta(t, 866412, res.AnnualSavings, 1e-6)
	assert.True(t, res.PaybackReachable)

	env.flush(t)
	events := env.sink.named("roi_calculated")
	require.Len(t, events, 1)
	assert.Equal(t, vid.Value, events[0].VisitorID)
	assert.Equal(t, "google", events[0].UTM.Source, "the visitor's attribution rides along")
	assert.Equal(t, 866412.0, events[0].PropertyMap()["annual_savings"])
}

func TestROIEndpoint_Unreachable(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/roi", models.ROIInputs{CurrentERPCost: 100, ImplementationTimeline: 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"annualSavings": -3488,
		"threeYearROI": -21228,
		"paybackPeriod": 0,
		"efficiencyValue": 0,
		"totalSavings": -10464,
		"paybackReachable": false
	}`, rec.Body.String())
}

func TestROIEndpoint_Invalid(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/roi", map[string]float64{"expectedEfficiencyGain": 120})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/roi", `{"employees": "many"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/roi", `{"currentERPCost": 1e308, "currentERPUsers": 10, "currentERPSupportCost": 1e308, "employees": 1e305, "expectedEfficiencyGain": 10, "implementationTimeline": 3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")

	env.flush(t)
	assert.Empty(t, env.sink.named("roi_calculated"))
}
