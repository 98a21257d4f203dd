package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/shule-ratiba-api/internal/dto"
)

const (
	latestReportKey = "timetable:report:latest"
	generationKey   = "timetable:generation"
)

// TimetableCache stores the latest generation report and per-class timetable
// views in Redis. Class view keys embed a generation counter, so bumping the
// counter after a run invalidates every cached view at once.
type TimetableCache struct {
	client    *redis.Client
	viewTTL   time.Duration
	retention time.Duration
}

// NewTimetableCache constructs the cache.
func NewTimetableCache(client *redis.Client, viewTTL, reportRetention time.Duration) *TimetableCache {
	if viewTTL <= 0 {
		viewTTL = 10 * time.Minute
	}
	if reportRetention <= 0 {
		reportRetention = 24 * time.Hour
	}
	return &TimetableCache{client: client, viewTTL: viewTTL, retention: reportRetention}
}

// StoreReport keeps the run report available for later retrieval.
func (c *TimetableCache) StoreReport(ctx context.Context, report *dto.TimetableReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode generation report: %w", err)
	}
	if err := c.client.Set(ctx, latestReportKey, payload, c.retention).Err(); err != nil {
		return fmt.Errorf("store generation report: %w", err)
	}
	return nil
}

// LatestReport loads the stored run report. The second return value is false
// when no report has been stored yet.
func (c *TimetableCache) LatestReport(ctx context.Context) (*dto.TimetableReport, bool, error) {
	payload, err := c.client.Get(ctx, latestReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load generation report: %w", err)
	}
	var report dto.TimetableReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode generation report: %w", err)
	}
	return &report, true, nil
}

// BumpGeneration invalidates all cached class views.
func (c *TimetableCache) BumpGeneration(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("bump timetable generation: %w", err)
	}
	return nil
}

// ClassView returns a cached view for the current generation.
func (c *TimetableCache) ClassView(ctx context.Context, classGroupID string) (*dto.ClassTimetableView, bool) {
	key, err := c.classViewKey(ctx, classGroupID)
	if err != nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var view dto.ClassTimetableView
	if err := json.Unmarshal(payload, &view); err != nil {
		return nil, false
	}
	return &view, true
}

// SetClassView caches a view under the current generation.
func (c *TimetableCache) SetClassView(ctx context.Context, classGroupID string, view *dto.ClassTimetableView) error {
	key, err := c.classViewKey(ctx, classGroupID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode class timetable view: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.viewTTL).Err(); err != nil {
		return fmt.Errorf("cache class timetable view: %w", err)
	}
	return nil
}

func (c *TimetableCache) classViewKey(ctx context.Context, classGroupID string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("read timetable generation: %w", err)
	}
	return fmt.Sprintf("timetable:class:%s:g%d", classGroupID, gen), nil
}
