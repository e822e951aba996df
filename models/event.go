// api/models/event.go
package models

import (
	"encoding/json"
	"time"
)

// AnalyticsEvent is a single tracked event as it is written to the sinks.
type AnalyticsEvent struct {
	EventID    string          `json:"eventId"`
	EventName  string          `json:"eventName" binding:"required"`
	Category   string          `json:"category"`
	VisitorID  string          `json:"visitorId"`
	SessionID  string          `json:"sessionId"`
	Timestamp  time.Time       `json:"timestamp"`
	PagePath   string          `json:"pagePath"`
	Referrer   string          `json:"referrer"`
	UserAgent  string          `json:"userAgent"`
	IPAddress  string          `json:"ipAddress"`
	DurationMs int64           `json:"durationMs"`
	UTM        UTMParams       `json:"utm"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

// PropertyMap decodes Properties into a map; empty or invalid payloads yield an empty map.
func (e AnalyticsEvent) PropertyMap() map[string]any {
	out := map[string]any{}
	if len(e.Properties) == 0 {
		return out
	}
	_ = json.Unmarshal(e.Properties, &out)
	return out
}

type TopPathResult struct {
	PagePath string `json:"pagePath"`
	Count    uint64 `json:"count"`
}

// CampaignPerformance aggregates events per UTM source/medium/campaign.
type CampaignPerformance struct {
	UTMSource      string `json:"utm_source"`
	UTMMedium      string `json:"utm_medium"`
	UTMCampaign    string `json:"utm_campaign"`
	Events         uint64 `json:"events"`
	UniqueVisitors uint64 `json:"uniqueVisitors"`
	Conversions    uint64 `json:"conversions"`
}
