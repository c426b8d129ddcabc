package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vigilo-edu/vigilo-go-api/internal/dto"
	"github.com/vigilo-edu/vigilo-go-api/internal/repository"
)

// PolicyService manages per-quiz security policies. Edits only affect
// sessions started afterwards; running sessions keep their snapshot.
type PolicyService interface {
	Upsert(ctx context.Context, quizID uint, payload dto.PolicyUpsertRequest) (dto.PolicyResponse, error)
	GetByQuizID(ctx context.Context, quizID uint) (dto.PolicyResponse, error)
}

type policyService struct {
	policies  repository.PolicyRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPolicyService constructs a PolicyService instance.
func NewPolicyService(policies repository.PolicyRepository, validate *validator.Validate, logger zerolog.Logger) PolicyService {
	return &policyService{
		policies:  policies,
		validator: validate,
		logger:    logger.With().Str("component", "policy_service").Logger(),
		now:       time.Now,
	}
}

func (s *policyService) Upsert(ctx context.Context, quizID uint, payload dto.PolicyUpsertRequest) (dto.PolicyResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PolicyResponse{}, err
	}

	policy := payload.ToModel(quizID)
	if err := policy.Validate(); err != nil {
		return dto.PolicyResponse{}, err
	}

	if err := s.policies.Upsert(ctx, &policy); err != nil {
		return dto.PolicyResponse{}, err
	}

	s.logger.Info().Uint("quiz_id", quizID).Bool("geofencing", policy.GeofencingEnabled).Msg("security policy saved")

	return dto.NewPolicyResponse(policy), nil
}

func (s *policyService) GetByQuizID(ctx context.Context, quizID uint) (dto.PolicyResponse, error) {
	policy, err := s.policies.GetByQuizID(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PolicyResponse{}, ErrPolicyNotFound
		}
		return dto.PolicyResponse{}, err
	}
	return dto.NewPolicyResponse(policy), nil
}
