package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"erpsite/api/config"
	"erpsite/api/logger"
)

type ClickHouseClient struct {
	Conn clickhouse.Conn
}

const analyticsEventsSchema = `
CREATE TABLE IF NOT EXISTS analytics_events (
	event_id     String,
	event_name   LowCardinality(String),
	category     LowCardinality(String),
	visitor_id   String,
	session_id   String,
	timestamp    DateTime64(3, 'UTC'),
	page_path    String,
	referrer     String,
	user_agent   String,
	ip_address   String,
	duration_ms  Int64,
	utm_source   LowCardinality(String),
	utm_medium   LowCardinality(String),
	utm_campaign String,
	utm_content  String,
	utm_term     String,
	properties   String
) ENGINE = MergeTree
PARTITION BY toYYYYMM(timestamp)
ORDER BY (event_name, timestamp)
`

func NewClickHouseDB(cfg config.ClickHouseConfig, appName, appVersion string) (*ClickHouseClient, error) {
	if cfg.Host == "" || cfg.Database == "" {
		return nil, fmt.Errorf("CLICKHOUSE_HOST or CLICKHOUSE_DB_NAME is not set")
	}

	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: appName, Version: appVersion}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: time.Second * 5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, analyticsEventsSchema); err != nil {
		return nil, fmt.Errorf("failed to create analytics_events table: %w", err)
	}

	logger.Info("Successfully connected to ClickHouse", "addr", options.Addr[0], "database", cfg.Database)
	return &ClickHouseClient{Conn: conn}, nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn != nil {
		c.Conn.Close()
		logger.Info("ClickHouse connection closed")
	}
}
