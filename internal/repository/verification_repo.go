package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vigilo-edu/vigilo-go-api/internal/models"
	"github.com/vigilo-edu/vigilo-go-api/internal/security"
)

// VerificationRepository persists teacher presence grants. Latest satisfies
// the engine's security.VerificationSource contract.
type VerificationRepository interface {
	Create(ctx context.Context, verification *models.TeacherVerification) error
	Latest(ctx context.Context, quizID uint) (models.TeacherVerification, error)
}

type verificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository instantiates a GORM-backed verification repository.
func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Create(ctx context.Context, verification *models.TeacherVerification) error {
	return r.db.WithContext(ctx).Create(verification).Error
}

func (r *verificationRepository) Latest(ctx context.Context, quizID uint) (models.TeacherVerification, error) {
	var verification models.TeacherVerification
	err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("created_at DESC").
		First(&verification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TeacherVerification{}, security.ErrVerificationNotFound
		}
		return models.TeacherVerification{}, err
	}
	return verification, nil
}
