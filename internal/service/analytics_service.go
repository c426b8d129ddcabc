package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vigilo-edu/vigilo-go-api/internal/dto"
	"github.com/vigilo-edu/vigilo-go-api/internal/repository"
)

const analyticsCacheKey = "security:analytics:summary"

// AnalyticsService aggregates violation and session records for reporting.
type AnalyticsService interface {
	GetSummary(ctx context.Context) (dto.SecurityAnalyticsResponse, error)
}

type analyticsService struct {
	repo     repository.AnalyticsRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewAnalyticsService constructs the analytics aggregator.
func NewAnalyticsService(repo repository.AnalyticsRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AnalyticsService {
	return &analyticsService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "analytics_service").Logger(),
		tracer:   otel.Tracer("github.com/vigilo-edu/vigilo-go-api/internal/service/analytics"),
		now:      time.Now,
	}
}

func (s *analyticsService) GetSummary(ctx context.Context) (dto.SecurityAnalyticsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "security.analytics.aggregate")
	span.SetAttributes(attribute.String("analytics.cache_key", analyticsCacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, analyticsCacheKey).Result()
		if err == nil {
			var response dto.SecurityAnalyticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
		}
	}

	response, err := s.buildSummary(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "aggregation failed")
		span.RecordError(err)
		return dto.SecurityAnalyticsResponse{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, analyticsCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store analytics cache")
			}
		}
	}

	return response, nil
}

func (s *analyticsService) buildSummary(ctx context.Context) (dto.SecurityAnalyticsResponse, error) {
	total, err := s.repo.TotalSessions(ctx)
	if err != nil {
		return dto.SecurityAnalyticsResponse{}, err
	}

	byStatus, err := s.repo.SessionsByStatus(ctx)
	if err != nil {
		return dto.SecurityAnalyticsResponse{}, err
	}

	byType, err := s.repo.ViolationsByType(ctx)
	if err != nil {
		return dto.SecurityAnalyticsResponse{}, err
	}

	bySeverity, err := s.repo.ViolationsBySeverity(ctx)
	if err != nil {
		return dto.SecurityAnalyticsResponse{}, err
	}

	flagged, err := s.repo.SessionsWithViolations(ctx)
	if err != nil {
		return dto.SecurityAnalyticsResponse{}, err
	}

	response := dto.SecurityAnalyticsResponse{
		TotalSessions:    total,
		SessionsByStatus: make(map[string]int64, len(byStatus)),
		ViolationsByType: make(map[string]int64, len(byType)),
		ViolationsBySev:  make(map[string]int64, len(bySeverity)),
		GeneratedAt:      s.now().UTC(),
	}

	for _, row := range byStatus {
		response.SessionsByStatus[string(row.Status)] = row.Count
	}
	for _, row := range byType {
		response.ViolationsByType[string(row.Type)] = row.Count
		response.TotalViolations += row.Count
	}
	for _, row := range bySeverity {
		response.ViolationsBySev[string(row.Severity)] = row.Count
	}

	if total > 0 {
		response.ComplianceRate = (float64(total-flagged) / float64(total)) * 100
	}

	return response, nil
}
