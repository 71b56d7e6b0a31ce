package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when no live cache entry exists for a report
var ErrCacheMiss = errors.New("report cache entry not found")

const keyPrefix = "report:"

// DetailRow is an ephemeral detail row inside a cache payload. It has no
// stable identity; identity is assigned only on promotion.
type DetailRow struct {
	Group          string `json:"group"`
	PersonCount    int    `json:"person_count"`
	SecondaryCount int    `json:"secondary_count"`
	TertiaryCount  int    `json:"tertiary_count"`
}

// ReportPayload is the computed report result stored under the report id
type ReportPayload struct {
	ReportID   string      `json:"report_id"`
	Kind       string      `json:"kind"`
	Parameters string      `json:"parameters"`
	Summary    string      `json:"summary"`
	Details    []DetailRow `json:"details"`
	CreatedAt  time.Time   `json:"created_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// Expired reports whether the payload's expiry timestamp has passed
func (p *ReportPayload) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// ReportCache stores computed report payloads in Redis with a fixed TTL
type ReportCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewReportCache creates a new report result cache
func NewReportCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *ReportCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ReportCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// TTL returns the configured cache entry lifetime
func (c *ReportCache) TTL() time.Duration {
	return c.ttl
}

// SetReport writes the payload under the report id, stamping created-at and
// expires-at from the configured TTL. A rewrite overwrites the previous entry.
func (c *ReportCache) SetReport(ctx context.Context, payload *ReportPayload) error {
	now := time.Now().UTC()
	payload.CreatedAt = now
	payload.ExpiresAt = now.Add(c.ttl)

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}

	if err := c.rdb.Set(ctx, reportKey(payload.ReportID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	c.logger.Debug("Report payload cached",
		slog.String("report_id", payload.ReportID),
		slog.Time("expires_at", payload.ExpiresAt),
	)

	return nil
}

// GetReport reads the payload for a report id. A missing key or an entry whose
// expires-at has passed is a miss; a stale entry is deleted on read.
func (c *ReportCache) GetReport(ctx context.Context, reportID string) (*ReportPayload, error) {
	data, err := c.rdb.Get(ctx, reportKey(reportID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var payload ReportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache payload: %w", err)
	}

	if payload.Expired(time.Now().UTC()) {
		// Redis normally expires the key itself; the guard covers clock skew
		// between the writer's stamp and the key TTL.
		if delErr := c.rdb.Del(ctx, reportKey(reportID)).Err(); delErr != nil {
			c.logger.Warn("Failed to delete stale cache entry",
				slog.String("report_id", reportID),
				slog.Any("error", delErr),
			)
		}
		return nil, ErrCacheMiss
	}

	return &payload, nil
}

// DeleteReport removes the cache entry for a report id
func (c *ReportCache) DeleteReport(ctx context.Context, reportID string) error {
	if err := c.rdb.Del(ctx, reportKey(reportID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func reportKey(reportID string) string {
	return keyPrefix + reportID
}
