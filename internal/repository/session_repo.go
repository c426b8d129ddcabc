package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vigilo-edu/vigilo-go-api/internal/models"
	"github.com/vigilo-edu/vigilo-go-api/internal/security"
)

// SessionRepository persists security sessions and their violation records.
// It satisfies the engine's security.Store contract.
type SessionRepository interface {
	Create(ctx context.Context, session *models.SecuritySession) error
	Get(ctx context.Context, id string) (models.SecuritySession, error)
	Update(ctx context.Context, session *models.SecuritySession) error
	AppendViolation(ctx context.Context, violation *models.SecurityViolation) error
	ActiveSessionIDs(ctx context.Context) ([]string, error)
	ViolationsBySession(ctx context.Context, sessionID string) ([]models.SecurityViolation, error)
	ResolveViolation(ctx context.Context, violationID uint) error
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository instantiates a GORM-backed session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.SecuritySession) error {
	var existing models.SecuritySession
	err := r.db.WithContext(ctx).Select("id").First(&existing, "id = ?", session.ID).Error
	if err == nil {
		return security.ErrDuplicateSession
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return security.ErrDuplicateSession
		}
		return err
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id string) (models.SecuritySession, error) {
	var session models.SecuritySession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.SecuritySession{}, security.ErrSessionNotFound
		}
		return models.SecuritySession{}, err
	}
	return session, nil
}

func (r *sessionRepository) Update(ctx context.Context, session *models.SecuritySession) error {
	result := r.db.WithContext(ctx).Model(&models.SecuritySession{}).
		Where("id = ?", session.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(session)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return security.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) AppendViolation(ctx context.Context, violation *models.SecurityViolation) error {
	return r.db.WithContext(ctx).Create(violation).Error
}

func (r *sessionRepository) ActiveSessionIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.SecuritySession{}).
		Where("status IN ?", []models.SessionStatus{models.SessionActive, models.SessionSuspended}).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *sessionRepository) ViolationsBySession(ctx context.Context, sessionID string) ([]models.SecurityViolation, error) {
	var violations []models.SecurityViolation
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("occurred_at ASC").
		Find(&violations).Error
	if err != nil {
		return nil, err
	}
	return violations, nil
}

func (r *sessionRepository) ResolveViolation(ctx context.Context, violationID uint) error {
	result := r.db.WithContext(ctx).Model(&models.SecurityViolation{}).
		Where("id = ?", violationID).
		Updates(map[string]interface{}{"resolved": true, "resolved_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
