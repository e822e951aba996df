package campaign

// Default returns the built-in marketing configuration used when no file is configured.
func Default() *Config {
	cfg := &Config{
		Taxonomy: Taxonomy{
			Sources: []string{
				"google", "bing", "facebook", "linkedin", "twitter", "youtube",
				"newsletter", "email", "partner", "g2", "capterra", "direct",
			},
			Mediums: []string{
				"cpc", "display", "social", "paid_social", "email", "organic",
				"referral", "affiliate", "video", "webinar",
			},
			CampaignPattern: `^[a-z0-9]+(_[a-z0-9]+)*$`,
		},
		Templates: []CampaignTemplate{
			{Name: "brand_search_erp", Source: "google", Medium: "cpc", Description: "Branded search on the product name"},
			{Name: "spring_sale_search", Source: "google", Medium: "cpc", Content: "text_ad", Description: "Seasonal discount on annual plans"},
			{Name: "competitor_conquest", Source: "google", Medium: "cpc", Term: "erp alternative", Description: "Competitor keyword bidding"},
			{Name: "manufacturing_retargeting", Source: "google", Medium: "display", Description: "Retargeting visitors of industry pages"},
			{Name: "cfo_thought_leadership", Source: "linkedin", Medium: "paid_social", Description: "Sponsored content for finance leaders"},
			{Name: "product_launch_social", Source: "linkedin", Medium: "social", Description: "Organic launch posts"},
			{Name: "monthly_newsletter", Source: "newsletter", Medium: "email", Description: "Monthly product newsletter"},
			{Name: "trial_nurture_sequence", Source: "email", Medium: "email", Description: "Trial onboarding drip"},
			{Name: "partner_referral_program", Source: "partner", Medium: "referral", Description: "Implementation partner referrals"},
			{Name: "review_site_listing", Source: "g2", Medium: "referral", Description: "Review site profile clicks"},
			{Name: "erp_demo_webinar", Source: "youtube", Medium: "webinar", Description: "Live demo webinar series"},
		},
		Events: []EventDefinition{
			{Name: "page_view", Category: "engagement"},
			{Name: "cta_click", Category: "engagement", Required: []string{"cta_id"}},
			{Name: "pricing_view", Category: "consideration"},
			{Name: "video_play", Category: "engagement", Required: []string{"video_id"}},
			{Name: "resource_download", Category: "consideration", Required: []string{"resource_id"}},
			{Name: "roi_calculated", Category: "consideration"},
			{Name: "form_submit", Category: "conversion", Required: []string{"form_id"}},
			{Name: "newsletter_signup", Category: "conversion", Conversion: true},
			{Name: "demo_request", Category: "conversion", Conversion: true},
			{Name: "contact_sales", Category: "conversion", Conversion: true},
			{Name: "trial_signup", Category: "conversion", Conversion: true},
			{Name: "purchase", Category: "revenue", Required: []string{"plan"}, Conversion: true},
			{Name: "utm_captured", Category: "attribution"},
		},
		Funnels: []FunnelDefinition{
			{
				Name: "trial",
				Stages: []FunnelStage{
					{Name: "awareness", Event: "page_view", TargetRate: 1},
					{Name: "interest", Event: "pricing_view", TargetRate: 0.25},
					{Name: "consideration", Event: "roi_calculated", TargetRate: 0.3},
					{Name: "intent", Event: "trial_signup", TargetRate: 0.2},
					{Name: "purchase", Event: "purchase", TargetRate: 0.15},
				},
			},
			{
				Name: "demo",
				Stages: []FunnelStage{
					{Name: "awareness", Event: "page_view", TargetRate: 1},
					{Name: "engagement", Event: "cta_click", TargetRate: 0.1},
					{Name: "intent", Event: "demo_request", TargetRate: 0.2},
					{Name: "purchase", Event: "purchase", TargetRate: 0.25},
				},
			},
		},
	}
	// the defaults are known to compile
	_ = cfg.Taxonomy.compile()
	return cfg
}
