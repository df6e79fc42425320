package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/dashboard"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/qrtoken"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Service caches the two expensive aggregates: the dashboard summary
// and the unwindowed QR statistics. Both entries expire on a TTL; a
// cache miss returns (nil, nil) so callers fall through to Mongo.
type Service interface {
	GetDashboardSummary(ctx context.Context) (*dashboard.Summary, error)
	SaveDashboardSummary(ctx context.Context, summary *dashboard.Summary) error
	GetQRStats(ctx context.Context) (*qrtoken.Stats, error)
	SaveQRStats(ctx context.Context, stats *qrtoken.Stats) error
}

type cacheService struct {
	client *redis.Client
	cfg    *config.CacheConfig
}

func NewCacheService(client *redis.Client, cfg *config.Configuration) Service {
	return &cacheService{
		client: client,
		cfg:    &cfg.Cache}
}

func (c *cacheService) GetDashboardSummary(ctx context.Context) (*dashboard.Summary, error) {
	data, err := c.client.Get(ctx, c.cfg.DashboardKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.Debug("Dashboard summary not found in cache")
			return nil, nil
		}
		logrus.WithError(err).Error("Failed to get dashboard summary from cache")
		return nil, models.ErrRedisGet
	}

	var summary dashboard.Summary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal dashboard summary from cache")
		return nil, models.ErrRedisGet
	}

	logrus.Debug("Dashboard summary retrieved from cache successfully")
	return &summary, nil
}

func (c *cacheService) SaveDashboardSummary(ctx context.Context, summary *dashboard.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal dashboard summary for cache")
		return models.ErrRedisSet
	}

	expiration := time.Duration(c.cfg.DashboardExpirationMinutes) * time.Minute
	if err := c.client.Set(ctx, c.cfg.DashboardKey, data, expiration).Err(); err != nil {
		logrus.WithError(err).Error("Failed to cache dashboard summary")
		return models.ErrRedisSet
	}
	return nil
}

func (c *cacheService) GetQRStats(ctx context.Context) (*qrtoken.Stats, error) {
	data, err := c.client.Get(ctx, c.cfg.QRStatsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.Debug("QR stats not found in cache")
			return nil, nil
		}
		logrus.WithError(err).Error("Failed to get QR stats from cache")
		return nil, models.ErrRedisGet
	}

	var stats qrtoken.Stats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal QR stats from cache")
		return nil, models.ErrRedisGet
	}

	logrus.Debug("QR stats retrieved from cache successfully")
	return &stats, nil
}

func (c *cacheService) SaveQRStats(ctx context.Context, stats *qrtoken.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal QR stats for cache")
		return models.ErrRedisSet
	}

	expiration := time.Duration(c.cfg.QRStatsExpirationMinutes) * time.Minute
	if err := c.client.Set(ctx, c.cfg.QRStatsKey, data, expiration).Err(); err != nil {
		logrus.WithError(err).Error("Failed to cache QR stats")
		return models.ErrRedisSet
	}
	return nil
}
