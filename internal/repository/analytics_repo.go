package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/vigilo-edu/vigilo-go-api/internal/models"
)

// ViolationTypeCount is an aggregate row of violations grouped by type.
type ViolationTypeCount struct {
	Type  models.ViolationType `json:"type"`
	Count int64                `json:"count"`
}

// ViolationSeverityCount is an aggregate row of violations grouped by severity.
type ViolationSeverityCount struct {
	Severity models.Severity `json:"severity"`
	Count    int64           `json:"count"`
}

// SessionStatusCount is an aggregate row of sessions grouped by status.
type SessionStatusCount struct {
	Status models.SessionStatus `json:"status"`
	Count  int64                `json:"count"`
}

// AnalyticsRepository scans violation and session records for reporting.
// Aggregation is an external reporting concern layered on the engine's data.
type AnalyticsRepository interface {
	ViolationsByType(ctx context.Context) ([]ViolationTypeCount, error)
	ViolationsBySeverity(ctx context.Context) ([]ViolationSeverityCount, error)
	SessionsByStatus(ctx context.Context) ([]SessionStatusCount, error)
	TotalSessions(ctx context.Context) (int64, error)
	SessionsWithViolations(ctx context.Context) (int64, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository instantiates a GORM-backed analytics repository.
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) ViolationsByType(ctx context.Context) ([]ViolationTypeCount, error) {
	var rows []ViolationTypeCount
	err := r.db.WithContext(ctx).Model(&models.SecurityViolation{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *analyticsRepository) ViolationsBySeverity(ctx context.Context) ([]ViolationSeverityCount, error) {
	var rows []ViolationSeverityCount
	err := r.db.WithContext(ctx).Model(&models.SecurityViolation{}).
		Select("severity, COUNT(*) AS count").
		Group("severity").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *analyticsRepository) SessionsByStatus(ctx context.Context) ([]SessionStatusCount, error) {
	var rows []SessionStatusCount
	err := r.db.WithContext(ctx).Model(&models.SecuritySession{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *analyticsRepository) TotalSessions(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.SecuritySession{}).Count(&total).Error
	return total, err
}

func (r *analyticsRepository) SessionsWithViolations(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.SecuritySession{}).
		Where("total_violations > 0").
		Count(&total).Error
	return total, err
}
