package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vigilo-edu/vigilo-go-api/internal/models"
)

// PolicyRepository persists per-quiz security policies.
type PolicyRepository interface {
	GetByQuizID(ctx context.Context, quizID uint) (models.SecurityPolicy, error)
	Upsert(ctx context.Context, policy *models.SecurityPolicy) error
}

type policyRepository struct {
	db *gorm.DB
}

// NewPolicyRepository instantiates a GORM-backed policy repository.
func NewPolicyRepository(db *gorm.DB) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) GetByQuizID(ctx context.Context, quizID uint) (models.SecurityPolicy, error) {
	var policy models.SecurityPolicy
	if err := r.db.WithContext(ctx).First(&policy, "quiz_id = ?", quizID).Error; err != nil {
		return models.SecurityPolicy{}, err
	}
	return policy, nil
}

func (r *policyRepository) Upsert(ctx context.Context, policy *models.SecurityPolicy) error {
	var existing models.SecurityPolicy
	err := r.db.WithContext(ctx).First(&existing, "quiz_id = ?", policy.QuizID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(policy).Error
		}
		return err
	}

	policy.ID = existing.ID
	policy.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(policy).Error
}
