package relay

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statsTTL      = 7 * 24 * time.Hour
	maxStatsHours = 7 * 24
)

// Stats keeps hourly usage counters in redis hashes.
type Stats struct {
	redis *redis.Client
	now   func() time.Time
}

func NewStats(redisClient *redis.Client) *Stats {
	return &Stats{
		redis: redisClient,
		now:   time.Now,
	}
}

func StatsKey(date string, hour int) string {
	return "detect:stats:" + date + ":" + strconv.Itoa(hour)
}

func (s *Stats) enabled() bool {
	return s != nil && s.redis != nil
}

func (s *Stats) incr(ctx context.Context, fields map[string]int64) error {
	if !s.enabled() {
		return nil
	}
	now := s.now().UTC()
	key := StatsKey(now.Format("2006-01-02"), now.Hour())

	pipe := s.redis.Pipeline()
	for field, value := range fields {
		pipe.HIncrBy(ctx, key, field, value)
	}
	pipe.Expire(ctx, key, statsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Stats) RecordSuccess(ctx context.Context, detections int, latency time.Duration, cached bool) error {
	fields := map[string]int64{
		"requests":         1,
		"detections":       int64(detections),
		"total_latency_ms": latency.Milliseconds(),
		"latency_count":    1,
	}
	if cached {
		fields["cache_hits"] = 1
	}
	return s.incr(ctx, fields)
}

func (s *Stats) RecordError(ctx context.Context) error {
	return s.incr(ctx, map[string]int64{
		"requests": 1,
		"errors":   1,
	})
}

// Hourly returns the non-empty buckets of the last hours hours, newest first.
func (s *Stats) Hourly(ctx context.Context, hours int) ([]HourlyStats, error) {
	if !s.enabled() {
		return nil, nil
	}
	now := s.now().UTC()
	var buckets []HourlyStats

	for i := 0; i < hours; i++ {
		t := now.Add(-time.Duration(i) * time.Hour)
		date := t.Format("2006-01-02")

		data, err := s.redis.HGetAll(ctx, StatsKey(date, t.Hour())).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}

		b := HourlyStats{Date: date, Hour: t.Hour()}
		b.Requests, _ = strconv.ParseInt(data["requests"], 10, 64)
		b.Detections, _ = strconv.ParseInt(data["detections"], 10, 64)
		b.Errors, _ = strconv.ParseInt(data["errors"], 10, 64)
		b.CacheHits, _ = strconv.ParseInt(data["cache_hits"], 10, 64)

		totalLatency, _ := strconv.ParseInt(data["total_latency_ms"], 10, 64)
		latencyCount, _ := strconv.ParseInt(data["latency_count"], 10, 64)
		if latencyCount > 0 {
			b.AvgLatencyMs = totalLatency / latencyCount
		}

		buckets = append(buckets, b)
	}

	return buckets, nil
}

func summarize(buckets []HourlyStats) StatsSummary {
	var sum StatsSummary
	var weighted, successes int64
	for _, b := range buckets {
		sum.Requests += b.Requests
		sum.Detections += b.Detections
		sum.Errors += b.Errors
		sum.CacheHits += b.CacheHits

		n := b.Requests - b.Errors
		weighted += b.AvgLatencyMs * n
		successes += n
	}
	if successes > 0 {
		sum.AvgLatencyMs = weighted / successes
	}
	return sum
}
