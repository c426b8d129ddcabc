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
	"github.com/vigilo-edu/vigilo-go-api/internal/models"
	"github.com/vigilo-edu/vigilo-go-api/internal/repository"
	"github.com/vigilo-edu/vigilo-go-api/internal/security"
)

// ErrPolicyNotFound indicates a quiz has no security policy configured.
var ErrPolicyNotFound = errors.New("security policy not found")

// ErrSessionForbidden indicates the caller does not own the session.
var ErrSessionForbidden = errors.New("session belongs to another user")

// SessionEngine is the slice of the security engine the session service
// consumes, narrowed for stubbing in tests.
type SessionEngine interface {
	Start(ctx context.Context, params security.StartParams) (models.SecuritySession, error)
	Process(ctx context.Context, sessionID string, event security.Event) (models.SecuritySession, security.Decision, error)
	Complete(ctx context.Context, sessionID string) (models.SecuritySession, error)
	Resume(ctx context.Context, sessionID string) (models.SecuritySession, error)
}

// ClientMeta carries raw HTTP metadata attached at session start.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// SessionService orchestrates the session lifecycle over the security engine.
type SessionService interface {
	Start(ctx context.Context, userID uint, payload dto.SessionStartRequest, meta ClientMeta) (dto.SessionResponse, error)
	ReportLocation(ctx context.Context, sessionID string, userID uint, payload dto.LocationEventRequest) (dto.DecisionResponse, error)
	ReportBehavior(ctx context.Context, sessionID string, userID uint, payload dto.BehaviorEventRequest) (dto.DecisionResponse, error)
	Complete(ctx context.Context, sessionID string, userID uint) (dto.SessionResponse, error)
	Resume(ctx context.Context, sessionID string) (dto.SessionResponse, error)
	Get(ctx context.Context, sessionID string) (dto.SessionResponse, error)
	Violations(ctx context.Context, sessionID string) ([]dto.ViolationResponse, error)
}

type sessionService struct {
	engine    SessionEngine
	sessions  repository.SessionRepository
	policies  repository.PolicyRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(engine SessionEngine, sessions repository.SessionRepository, policies repository.PolicyRepository, validate *validator.Validate, logger zerolog.Logger) SessionService {
	return &sessionService{
		engine:    engine,
		sessions:  sessions,
		policies:  policies,
		validator: validate,
		logger:    logger.With().Str("component", "session_service").Logger(),
		now:       time.Now,
	}
}

func (s *sessionService) Start(ctx context.Context, userID uint, payload dto.SessionStartRequest, meta ClientMeta) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	policy, err := s.policies.GetByQuizID(ctx, payload.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrPolicyNotFound
		}
		return dto.SessionResponse{}, err
	}

	session, err := s.engine.Start(ctx, security.StartParams{
		UserID:            userID,
		QuizID:            payload.QuizID,
		AssignmentID:      payload.AssignmentID,
		Policy:            policy,
		DeviceFingerprint: payload.DeviceFingerprint,
		IPAddress:         meta.IPAddress,
		UserAgent:         meta.UserAgent,
	})
	if err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().Str("session_id", session.ID).Uint("quiz_id", session.QuizID).Msg("session started")

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) ReportLocation(ctx context.Context, sessionID string, userID uint, payload dto.LocationEventRequest) (dto.DecisionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.DecisionResponse{}, err
	}
	if err := s.authorize(ctx, sessionID, userID); err != nil {
		return dto.DecisionResponse{}, err
	}

	event := security.Event{
		Kind:     security.EventLocation,
		Location: &geo.Point{Lat: payload.Lat, Lon: payload.Lon},
		Accuracy: payload.Accuracy,
		Source:   payload.Source,
	}
	if payload.Timestamp != nil {
		event.At = *payload.Timestamp
	}

	return s.process(ctx, sessionID, event)
}

func (s *sessionService) ReportBehavior(ctx context.Context, sessionID string, userID uint, payload dto.BehaviorEventRequest) (dto.DecisionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.DecisionResponse{}, err
	}
	if err := s.authorize(ctx, sessionID, userID); err != nil {
		return dto.DecisionResponse{}, err
	}

	event := security.Event{
		Kind:     security.EventBehavior,
		Behavior: models.ViolationType(payload.Type),
		Detail:   payload.Detail,
		Source:   payload.Source,
	}

	return s.process(ctx, sessionID, event)
}

// process runs the event through the engine. Events arriving after a
// terminal state are no-ops: the caller gets the closed snapshot back
// instead of an error, so client/event races never surface as failures.
func (s *sessionService) process(ctx context.Context, sessionID string, event security.Event) (dto.DecisionResponse, error) {
	session, decision, err := s.engine.Process(ctx, sessionID, event)
	if err != nil {
		if errors.Is(err, security.ErrSessionClosed) {
			s.logger.Debug().Str("session_id", sessionID).Msg("event ignored, session closed")
			return dto.NewDecisionResponse(session, decision), nil
		}
		return dto.DecisionResponse{}, err
	}
	return dto.NewDecisionResponse(session, decision), nil
}

func (s *sessionService) Complete(ctx context.Context, sessionID string, userID uint) (dto.SessionResponse, error) {
	if err := s.authorize(ctx, sessionID, userID); err != nil {
		return dto.SessionResponse{}, err
	}

	session, err := s.engine.Complete(ctx, sessionID)
	if err != nil {
		if errors.Is(err, security.ErrSessionClosed) {
			s.logger.Debug().Str("session_id", sessionID).Msg("complete ignored, session closed")
			return dto.NewSessionResponse(session), err
		}
		return dto.SessionResponse{}, err
	}

	s.logger.Info().Str("session_id", sessionID).Msg("session completed")

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Resume(ctx context.Context, sessionID string) (dto.SessionResponse, error) {
	session, err := s.engine.Resume(ctx, sessionID)
	if err != nil {
		return dto.NewSessionResponse(session), err
	}

	s.logger.Info().Str("session_id", sessionID).Msg("session resumed")

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (dto.SessionResponse, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Violations(ctx context.Context, sessionID string) ([]dto.ViolationResponse, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	violations, err := s.sessions.ViolationsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return dto.NewViolationResponseSlice(violations), nil
}

// authorize verifies the session belongs to the reporting student. A zero
// userID skips the check for trusted internal callers.
func (s *sessionService) authorize(ctx context.Context, sessionID string, userID uint) error {
	if userID == 0 {
		return nil
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return ErrSessionForbidden
	}
	return nil
}
