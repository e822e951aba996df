package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"erpsite/api/attribution"
	"erpsite/api/campaign"
	"erpsite/api/middleware"
	"erpsite/api/utils"
)

// RouterDeps collects what the HTTP surface needs. Stats may be nil when no warehouse is
// configured; the stats routes then answer 503.
type RouterDeps struct {
	Users         UserRepository
	Stats         StatsStore
	Tracker       EventTracker
	Scopes        attribution.Scopes
	Marketing     *campaign.Config
	Tokens        *utils.TokenIssuer
	APIKey        string
	FEOrigin      string
	VisitorTTL    time.Duration
	SecureCookies bool
	// Ready reports whether backing services are reachable; nil means always ready.
	Ready func() error
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(), middleware.CORSMiddleware(d.FEOrigin))

	r.GET("/healthz", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	attributionHandlers := NewAttributionHandlers(d.Scopes, d.Tracker, d.VisitorTTL, d.SecureCookies)
	campaignHandlers := NewCampaignHandlers(d.Marketing)
	roiHandlers := NewROIHandlers(d.Tracker)
	trackHandlers := NewTrackHandlers(d.Tracker, attributionHandlers.VisitFromRequest)
	authHandlers := NewAuthHandlers(d.Users, d.Tokens, d.SecureCookies)

	api := r.Group("/api")
	{
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)

		api.POST("/attribution/touch", attributionHandlers.Touch)
		api.GET("/attribution", attributionHandlers.Get)
		api.DELETE("/attribution", attributionHandlers.Clear)

		api.GET("/utm/parse", campaignHandlers.ParseUTM)
		api.POST("/utm/validate", campaignHandlers.ValidateUTM)
		api.POST("/campaigns/match", campaignHandlers.MatchTemplate)
		api.GET("/campaigns/templates", campaignHandlers.ListTemplates)
		api.GET("/campaigns/templates/:name/url", campaignHandlers.TemplateURL)
		api.GET("/taxonomy", campaignHandlers.Taxonomy)
		api.GET("/events", campaignHandlers.Events)
		api.GET("/funnels", campaignHandlers.Funnels)

		api.POST("/roi", roiHandlers.Calculate(attributionHandlers.VisitFromRequest))
		api.POST("/track", trackHandlers.TrackEvents)

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(d.Tokens, d.APIKey))
		{
			protected.GET("/profile", authHandlers.Profile)

			statsGroup := protected.Group("/stats")
			if d.Stats == nil {
				statsGroup.Use(func(c *gin.Context) {
					c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Analytics warehouse is not configured"})
				})
			}
			statsHandlers := NewStatsHandlers(d.Stats, d.Marketing)
			{
				statsGroup.GET("/event-counts", statsHandlers.GetEventCountsOverTime)
				statsGroup.GET("/average-event-duration", statsHandlers.GetAverageEventDuration)
				statsGroup.GET("/average-custom-param", statsHandlers.GetAverageCustomEventParameter)
				statsGroup.GET("/unique-users", statsHandlers.GetUniqueVisitorsOverTime)
				statsGroup.GET("/top-paths", statsHandlers.GetTopNPagePaths)
				statsGroup.GET("/campaigns", statsHandlers.GetCampaignPerformance)
				statsGroup.GET("/funnels/:name", statsHandlers.GetFunnelReport)
			}
		}
	}

	return r
}
