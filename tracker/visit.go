package tracker

import (
	"context"

	"erpsite/api/models"
)

// Visit is the request-scoped context attached to every tracked event.
type Visit struct {
	VisitorID string
	SessionID string
	PagePath  string
	Referrer  string
	UserAgent string
	IPAddress string
	UTM       models.UTMParams
}

type visitKey struct{}

func WithVisit(ctx context.Context, v Visit) context.Context {
	return context.WithValue(ctx, visitKey{}, v)
}

// VisitFrom returns the visit stored in ctx, or the zero Visit.
func VisitFrom(ctx context.Context) Visit {
	v, _ := ctx.Value(visitKey{}).(Visit)
	return v
}

func (v Visit) event() models.AnalyticsEvent {
	return models.AnalyticsEvent{
		VisitorID: v.VisitorID,
		SessionID: v.SessionID,
		PagePath:  v.PagePath,
		Referrer:  v.Referrer,
		UserAgent: v.UserAgent,
		IPAddress: v.IPAddress,
		UTM:       v.UTM,
	}
}
