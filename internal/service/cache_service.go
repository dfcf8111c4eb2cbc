package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	appErrors "github.com/noah-isme/santri-dokumen-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches resolved requirement lists per student and reference day.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

func requirementsKey(studentID string, refDate time.Time) string {
	return fmt.Sprintf("requirements:%s:%s", studentID, refDate.Format("2006-01-02"))
}

// GetRequirements returns the cached list for studentID on refDate's day.
// Errors are logged and reported as a miss.
func (s *CacheService) GetRequirements(ctx context.Context, studentID string, refDate time.Time) ([]models.DocumentRequirement, bool) {
	if !s.Enabled() {
		return nil, false
	}
	var reqs []models.DocumentRequirement
	start := time.Now()
	err := s.repo.Get(ctx, requirementsKey(studentID, refDate), &reqs)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("requirements cache get failed", zap.String("student_id", studentID), zap.Error(err))
		}
		return nil, false
	}
	return reqs, true
}

// SetRequirements stores a resolved list. Failures are logged only.
func (s *CacheService) SetRequirements(ctx context.Context, studentID string, refDate time.Time, reqs []models.DocumentRequirement) {
	if !s.Enabled() {
		return
	}
	start := time.Now()
	err := s.repo.Set(ctx, requirementsKey(studentID, refDate), reqs, s.defaultTTL)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("requirements cache set failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

// InvalidateStudent drops every cached day for studentID.
func (s *CacheService) InvalidateStudent(ctx context.Context, studentID string) error {
	if !s.Enabled() {
		return nil
	}
	pattern := fmt.Sprintf("requirements:%s:*", studentID)
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("requirements cache invalidate failed", zap.String("student_id", studentID), zap.Error(err))
		return err
	}
	return nil
}
