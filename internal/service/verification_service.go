package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vigilo-edu/vigilo-go-api/internal/dto"
	"github.com/vigilo-edu/vigilo-go-api/internal/geo"
	"github.com/vigilo-edu/vigilo-go-api/internal/repository"
	"github.com/vigilo-edu/vigilo-go-api/internal/security"
)

// ErrGeofencingDisabled indicates presence verification was requested for a
// quiz whose policy has no geofence to verify against.
var ErrGeofencingDisabled = errors.New("quiz has no geofence configured")

// VerificationService records teacher presence grants.
type VerificationService interface {
	Verify(ctx context.Context, teacherID uint, payload dto.VerificationRequest) (dto.VerificationResponse, error)
	Latest(ctx context.Context, quizID uint) (dto.VerificationResponse, error)
}

type verificationService struct {
	verifier      *security.Verifier
	verifications repository.VerificationRepository
	policies      repository.PolicyRepository
	validator     *validator.Validate
	logger        zerolog.Logger
	now           func() time.Time
}

// NewVerificationService constructs a VerificationService instance.
func NewVerificationService(verifier *security.Verifier, verifications repository.VerificationRepository, policies repository.PolicyRepository, validate *validator.Validate, logger zerolog.Logger) VerificationService {
	return &verificationService{
		verifier:      verifier,
		verifications: verifications,
		policies:      policies,
		validator:     validate,
		logger:        logger.With().Str("component", "verification_service").Logger(),
		now:           time.Now,
	}
}

func (s *verificationService) Verify(ctx context.Context, teacherID uint, payload dto.VerificationRequest) (dto.VerificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.VerificationResponse{}, err
	}

	policy, err := s.policies.GetByQuizID(ctx, payload.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.VerificationResponse{}, ErrPolicyNotFound
		}
		return dto.VerificationResponse{}, err
	}
	if !policy.GeofencingEnabled || policy.AllowedLat == nil || policy.AllowedLon == nil {
		return dto.VerificationResponse{}, ErrGeofencingDisabled
	}

	location := geo.Point{Lat: payload.Lat, Lon: payload.Lon}
	center := geo.Point{Lat: *policy.AllowedLat, Lon: *policy.AllowedLon}

	verification, err := s.verifier.Verify(teacherID, payload.QuizID, location, center, policy.AllowedRadiusMeters)
	if err != nil {
		return dto.VerificationResponse{}, err
	}

	if err := s.verifications.Create(ctx, &verification); err != nil {
		return dto.VerificationResponse{}, err
	}

	s.logger.Info().
		Uint("quiz_id", payload.QuizID).
		Uint("teacher_id", teacherID).
		Bool("verified", verification.Verified).
		Float64("distance_m", verification.DistanceMeters).
		Msg("teacher presence recorded")

	return dto.NewVerificationResponse(verification, s.now().UTC()), nil
}

func (s *verificationService) Latest(ctx context.Context, quizID uint) (dto.VerificationResponse, error) {
	verification, err := s.verifications.Latest(ctx, quizID)
	if err != nil {
		return dto.VerificationResponse{}, err
	}
	return dto.NewVerificationResponse(verification, s.now().UTC()), nil
}
