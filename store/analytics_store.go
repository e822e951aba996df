// api/store/analytics_store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"erpsite/api/database"
	"erpsite/api/logger"
	"erpsite/api/models"
	"erpsite/api/utils"
)

type AnalyticsStore struct {
	DB *database.ClickHouseClient
}

type EventTypeCountByTime struct {
	Time      time.Time `json:"time"`
	EventName *string   `json:"eventName,omitempty"`
	Count     uint64    `json:"count"`
}

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{
		DB: chClient,
	}
}

// Name identifies the store as a tracker sink.
func (s *AnalyticsStore) Name() string { return "clickhouse" }

// Send lets the tracker deliver batches straight into ClickHouse.
func (s *AnalyticsStore) Send(ctx context.Context, events []models.AnalyticsEvent) error {
	return s.InsertAnalyticsEvents(ctx, events)
}

func (s *AnalyticsStore) InsertAnalyticsEvents(ctx context.Context, events []models.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO analytics_events (
			event_id, event_name, category, visitor_id, session_id, timestamp, page_path, referrer,
			user_agent, ip_address, duration_ms, utm_source, utm_medium, utm_campaign, utm_content,
			utm_term, properties
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	appended := 0
	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.EventName,
			event.Category,
			event.VisitorID,
			event.SessionID,
			event.Timestamp,
			event.PagePath,
			event.Referrer,
			event.UserAgent,
			event.IPAddress,
			event.DurationMs,
			event.UTM.Source,
			event.UTM.Medium,
			event.UTM.Campaign,
			event.UTM.Content,
			event.UTM.Term,
			string(event.Properties),
		)
		if err != nil {
			logger.Warn("Error appending event to batch", "event_id", event.EventID, "error", err)
			continue
		}
		appended++
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	logger.Debug("Inserted analytics events", "count", appended)
	return nil
}

// buildEventCountsQuery groups events into interval buckets, optionally split by event name.
func buildEventCountsQuery(interval string, start, end time.Time, eventFilter string) (string, []interface{}, error) {
	if !utils.IsValidInterval(interval) {
		return "", nil, fmt.Errorf("invalid interval: %s", interval)
	}

	args := []interface{}{start, end}
	selectCols := fmt.Sprintf("toStartOf%s(timestamp) AS time_bucket, count() AS total_events", interval)
	groupByCols := "time_bucket"
	whereClause := "WHERE timestamp >= ? AND timestamp <= ?"
	orderByCols := "time_bucket ASC"

	if eventFilter != "" {
		selectCols += ", event_name"
		groupByCols += ", event_name"
		whereClause += " AND event_name = ?"
		args = append(args, eventFilter)
		orderByCols += ", event_name ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM analytics_events
		%s
		GROUP BY %s
		ORDER BY %s
	`, selectCols, whereClause, groupByCols, orderByCols)
	return query, args, nil
}

func (s *AnalyticsStore) GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventFilter string) ([]EventTypeCountByTime, error) {
	query, args, err := buildEventCountsQuery(interval, start, end, eventFilter)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	results := []EventTypeCountByTime{}
	for rows.Next() {
		var (
			timeBucket time.Time
			count      uint64
			eventName  string
			current    EventTypeCountByTime
		)

		if eventFilter != "" {
			if err := rows.Scan(&timeBucket, &count, &eventName); err != nil {
				logger.Warn("Error scanning event counts row", "error", err)
				continue
			}
			current.EventName = &eventName
		} else {
			if err := rows.Scan(&timeBucket, &count); err != nil {
				logger.Warn("Error scanning event counts row", "error", err)
				continue
			}
		}

		current.Time = timeBucket
		current.Count = count
		results = append(results, current)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts over time query: %w", err)
	}

	return results, nil
}

func (s *AnalyticsStore) GetAverageEventDuration(ctx context.Context, eventFilter string, start, end time.Time) (float64, error) {
	query := `SELECT avg(duration_ms) FROM analytics_events WHERE timestamp >= ? AND timestamp <= ?`
	args := []interface{}{start, end}

	if eventFilter != "" {
		query += ` AND event_name = ?`
		args = append(args, eventFilter)
	}

	var avgDuration float64
	if err := s.DB.Conn.QueryRow(ctx, query, args...).Scan(&avgDuration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query average event duration: %w", err)
	}

	return finiteOrZero(avgDuration), nil
}

// GetAverageCustomEventParameter averages a numeric property across events of one name.
func (s *AnalyticsStore) GetAverageCustomEventParameter(ctx context.Context, eventName, paramName string, start, end time.Time) (float64, error) {
	if paramName == "" {
		return 0, errors.New("parameter name for average calculation cannot be empty")
	}

	query := `
		SELECT avg(JSONExtractFloat(properties, ?))
		FROM analytics_events
		WHERE event_name = ? AND timestamp >= ? AND timestamp <= ?
	`

	var avgValue float64
	err := s.DB.Conn.QueryRow(ctx, query, paramName, eventName, start, end).Scan(&avgValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query average of custom event parameter '%s': %w", paramName, err)
	}

	// avg() over no rows is NaN, which JSON cannot carry
	return finiteOrZero(avgValue), nil
}

func (s *AnalyticsStore) GetUniqueVisitorsOverTime(ctx context.Context, interval string, start, end time.Time) ([]EventTypeCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(timestamp) AS time_bucket, uniq(visitor_id) AS unique_visitors
		FROM analytics_events
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval)

	rows, err := s.DB.Conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique visitors over time: %w", err)
	}
	defer rows.Close()

	results := []EventTypeCountByTime{}
	for rows.Next() {
		var timeBucket time.Time
		var unique uint64
		if err := rows.Scan(&timeBucket, &unique); err != nil {
			logger.Warn("Error scanning unique visitors row", "error", err)
			continue
		}
		results = append(results, EventTypeCountByTime{Time: timeBucket, Count: unique})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for unique visitors: %w", err)
	}

	return results, nil
}

func (s *AnalyticsStore) GetTopNPagePaths(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopPathResult, error) {
	if limit == 0 {
		limit = 10
	}

	query := `
		SELECT page_path, count() AS view_count
		FROM analytics_events
		WHERE event_name = 'page_view' AND timestamp >= ? AND timestamp <= ?
		GROUP BY page_path
		ORDER BY view_count DESC
		LIMIT ?
	`
	rows, err := s.DB.Conn.Query(ctx, query, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top page paths: %w", err)
	}
	defer rows.Close()

	results := []models.TopPathResult{}
	for rows.Next() {
		var r models.TopPathResult
		if err := rows.Scan(&r.PagePath, &r.Count); err != nil {
			logger.Warn("Error scanning top page paths row", "error", err)
			continue
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top page paths: %w", err)
	}

	return results, nil
}

// buildCampaignPerformanceQuery groups tagged traffic by source/medium/campaign. Conversions
// count events whose name is in conversionEvents.
func buildCampaignPerformanceQuery(start, end time.Time, conversionEvents []string, limit uint64) (string, []interface{}) {
	if limit == 0 {
		limit = 50
	}
	convExpr := "0"
	args := []interface{}{}
	if len(conversionEvents) > 0 {
		convExpr = "countIf(event_name IN (?))"
		args = append(args, conversionEvents)
	}
	args = append(args, start, end, limit)

	query := fmt.Sprintf(`
		SELECT utm_source, utm_medium, utm_campaign, count() AS events,
			uniq(visitor_id) AS visitors, %s AS conversions
		FROM analytics_events
		WHERE utm_source != '' AND timestamp >= ? AND timestamp <= ?
		GROUP BY utm_source, utm_medium, utm_campaign
		ORDER BY conversions DESC, events DESC
		LIMIT ?
	`, convExpr)
	return query, args
}

func (s *AnalyticsStore) GetCampaignPerformance(ctx context.Context, start, end time.Time, conversionEvents []string, limit uint64) ([]models.CampaignPerformance, error) {
	query, args := buildCampaignPerformanceQuery(start, end, conversionEvents, limit)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign performance: %w", err)
	}
	defer rows.Close()

	results := []models.CampaignPerformance{}
	for rows.Next() {
		var r models.CampaignPerformance
		if err := rows.Scan(&r.UTMSource, &r.UTMMedium, &r.UTMCampaign, &r.Events, &r.UniqueVisitors, &r.Conversions); err != nil {
			logger.Warn("Error scanning campaign performance row", "error", err)
			continue
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for campaign performance: %w", err)
	}
	return results, nil
}

// buildSessionCountsQuery counts distinct sessions per event name, optionally restricted to a
// utm campaign.
func buildSessionCountsQuery(eventNames []string, start, end time.Time, utmCampaign string) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(`
		SELECT event_name, uniq(session_id) AS sessions
		FROM analytics_events
		WHERE event_name IN (?) AND timestamp >= ? AND timestamp <= ?`)
	args := []interface{}{eventNames, start, end}
	if utmCampaign != "" {
		b.WriteString(" AND utm_campaign = ?")
		args = append(args, utmCampaign)
	}
	b.WriteString(`
		GROUP BY event_name
	`)
	return b.String(), args
}

// GetEventSessionCounts feeds funnel reports.
func (s *AnalyticsStore) GetEventSessionCounts(ctx context.Context, eventNames []string, start, end time.Time, utmCampaign string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(eventNames))
	if len(eventNames) == 0 {
		return out, nil
	}

	query, args := buildSessionCountsQuery(eventNames, start, end, utmCampaign)
	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event session counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var n uint64
		if err := rows.Scan(&name, &n); err != nil {
			logger.Warn("Error scanning session counts row", "error", err)
			continue
		}
		out[name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for session counts: %w", err)
	}
	return out, nil
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
