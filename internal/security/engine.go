package security

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vigilo-edu/vigilo-go-api/internal/models"
	"github.com/vigilo-edu/vigilo-go-api/internal/observability"
)

// Store is the persistence contract the engine requires. Create must fail
// with ErrDuplicateSession on id collision; Get with ErrSessionNotFound.
// Update must be atomic per session row. The engine never assumes
// multi-session atomicity.
type Store interface {
	Create(ctx context.Context, session *models.SecuritySession) error
	Get(ctx context.Context, id string) (models.SecuritySession, error)
	Update(ctx context.Context, session *models.SecuritySession) error
	AppendViolation(ctx context.Context, violation *models.SecurityViolation) error
	ActiveSessionIDs(ctx context.Context) ([]string, error)
}

// VerificationSource supplies the latest teacher verification for a quiz.
type VerificationSource interface {
	Latest(ctx context.Context, quizID uint) (models.TeacherVerification, error)
}

// Publisher receives every decision that resulted in an action, for fan-out
// to monitoring consumers. Implementations must not block the engine.
type Publisher interface {
	PublishDecision(ctx context.Context, session models.SecuritySession, decision Decision)
}

// Engine owns the per-attempt session state machine. Events for different
// sessions run fully in parallel; events for the same session are serialized
// by a keyed mutex whose scope spans the read-evaluate-persist cycle.
type Engine struct {
	store         Store
	verifications VerificationSource
	publisher     Publisher
	locks         *keyedMutex
	logger        zerolog.Logger
	now           func() time.Time
}

// NewEngine constructs the security engine. verifications and publisher may
// be nil when teacher presence or monitoring fan-out is not wired.
func NewEngine(store Store, verifications VerificationSource, publisher Publisher, logger zerolog.Logger) *Engine {
	return &Engine{
		store:         store,
		verifications: verifications,
		publisher:     publisher,
		locks:         newKeyedMutex(),
		logger:        logger.With().Str("component", "security_engine").Logger(),
		now:           time.Now,
	}
}

// StartParams describes a new session. SessionID is optional; a UUID is
// generated when empty.
type StartParams struct {
	SessionID         string
	UserID            uint
	QuizID            uint
	AssignmentID      *uint
	Policy            models.SecurityPolicy
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
}

// Start creates a new active session with an immutable snapshot of the
// policy. Later edits to the quiz policy never affect this session.
func (e *Engine) Start(ctx context.Context, params StartParams) (models.SecuritySession, error) {
	if err := params.Policy.Validate(); err != nil {
		return models.SecuritySession{}, err
	}

	id := params.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	now := e.now().UTC()
	session := models.SecuritySession{
		ID:                id,
		UserID:            params.UserID,
		QuizID:            params.QuizID,
		AssignmentID:      params.AssignmentID,
		Status:            models.SessionActive,
		DeviceFingerprint: params.DeviceFingerprint,
		IPAddress:         params.IPAddress,
		UserAgent:         params.UserAgent,
		StartedAt:         now,
		LastActivityAt:    now,
	}
	if err := session.SetPolicySnapshot(params.Policy.Snapshot()); err != nil {
		return models.SecuritySession{}, err
	}

	if err := e.store.Create(ctx, &session); err != nil {
		return models.SecuritySession{}, err
	}

	observability.SessionTransitions().WithLabelValues(string(models.SessionActive)).Inc()
	e.logger.Info().Str("session_id", session.ID).Uint("quiz_id", session.QuizID).Uint("user_id", session.UserID).Msg("security session started")

	return session, nil
}

// Process applies one event to a session under its lock and persists the
// outcome. Events for terminal sessions return ErrSessionClosed with no side
// effect. A store failure leaves the decision unapplied; the call is safe to
// retry because Process always re-reads current state under the lock.
func (e *Engine) Process(ctx context.Context, sessionID string, event Event) (models.SecuritySession, Decision, error) {
	release := e.locks.Lock(sessionID)
	defer release()

	start := e.now()
	now := start.UTC()
	if event.At.IsZero() {
		event.At = now
	}

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return models.SecuritySession{}, Decision{Action: models.ActionNone}, err
	}

	if session.Status.Terminal() {
		e.logger.Debug().Str("session_id", sessionID).Str("status", string(session.Status)).Msg("event rejected, session closed")
		return session, Decision{Action: models.ActionNone, Status: session.Status, Reason: "session closed"}, ErrSessionClosed
	}

	policy, err := session.PolicySnapshot()
	if err != nil {
		return models.SecuritySession{}, Decision{Action: models.ActionNone}, err
	}

	if policy.RequireTeacherLocation && e.verifications != nil {
		session = e.refreshTeacherPresence(ctx, session, policy)
	}

	previousStatus := session.Status
	updated, decision := Evaluate(session, policy, event, now)

	if err := e.store.Update(ctx, &updated); err != nil {
		return models.SecuritySession{}, decision, err
	}
	if decision.Violation != nil {
		if err := e.store.AppendViolation(ctx, decision.Violation); err != nil {
			return models.SecuritySession{}, decision, err
		}
	}

	e.record(event, decision, previousStatus, start)
	if e.publisher != nil && decision.Action != models.ActionNone {
		e.publisher.PublishDecision(ctx, updated, decision)
	}

	return updated, decision, nil
}

func (e *Engine) refreshTeacherPresence(ctx context.Context, session models.SecuritySession, policy models.PolicySnapshot) models.SecuritySession {
	verification, err := e.verifications.Latest(ctx, policy.QuizID)
	if err != nil {
		if !errors.Is(err, ErrVerificationNotFound) {
			e.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to read teacher verification")
		}
		session.TeacherVerified = false
		session.TeacherVerifiedExpiresAt = nil
		return session
	}

	session.TeacherVerified = verification.Verified
	expires := verification.ExpiresAt
	session.TeacherVerifiedExpiresAt = &expires
	return session
}

// Complete marks a session as completed on quiz submission. Terminal
// sessions reject the signal with ErrSessionClosed.
func (e *Engine) Complete(ctx context.Context, sessionID string) (models.SecuritySession, error) {
	release := e.locks.Lock(sessionID)
	defer release()

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return models.SecuritySession{}, err
	}
	if session.Status.Terminal() {
		return session, ErrSessionClosed
	}

	now := e.now().UTC()
	session.Status = models.SessionCompleted
	session.LastActivityAt = now
	session.EndedAt = &now

	if err := e.store.Update(ctx, &session); err != nil {
		return models.SecuritySession{}, err
	}

	observability.SessionTransitions().WithLabelValues(string(models.SessionCompleted)).Inc()
	e.logger.Info().Str("session_id", sessionID).Msg("security session completed")

	return session, nil
}

// Resume returns a suspended session to active, clearing any pending grace
// window. Only suspended sessions can be resumed.
func (e *Engine) Resume(ctx context.Context, sessionID string) (models.SecuritySession, error) {
	release := e.locks.Lock(sessionID)
	defer release()

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return models.SecuritySession{}, err
	}
	if session.Status.Terminal() {
		return session, ErrSessionClosed
	}
	if session.Status != models.SessionSuspended {
		return session, ErrSessionNotSuspended
	}

	now := e.now().UTC()
	session.Status = models.SessionActive
	session.OutOfBoundsSince = nil
	session.SweepConfirmedAt = nil
	session.LastActivityAt = now

	if err := e.store.Update(ctx, &session); err != nil {
		return models.SecuritySession{}, err
	}

	observability.SessionTransitions().WithLabelValues(string(models.SessionActive)).Inc()
	e.logger.Info().Str("session_id", sessionID).Msg("security session resumed")

	return session, nil
}

// Sweep force-evaluates grace-period expiry for every active session using a
// synthetic event, bounding staleness when clients stop reporting. It returns
// the number of sessions on which an action was taken.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	ids, err := e.store.ActiveSessionIDs(ctx)
	if err != nil {
		return 0, err
	}

	actions := 0
	for _, id := range ids {
		_, decision, err := e.Process(ctx, id, Event{Kind: EventSweep})
		if err != nil {
			if errors.Is(err, ErrSessionClosed) {
				continue
			}
			e.logger.Warn().Err(err).Str("session_id", id).Msg("sweep failed for session")
			continue
		}
		if decision.Action != models.ActionNone {
			actions++
		}
	}

	return actions, nil
}

func (e *Engine) record(event Event, decision Decision, previousStatus models.SessionStatus, start time.Time) {
	observability.SecurityEvents().WithLabelValues(string(event.Kind), string(decision.Action)).Inc()
	observability.EvaluationLatency().WithLabelValues(string(event.Kind)).Observe(time.Since(start).Seconds())
	if decision.Violation != nil {
		observability.Violations().WithLabelValues(string(decision.Violation.Type), string(decision.Violation.Severity)).Inc()
	}
	if decision.Status != previousStatus {
		observability.SessionTransitions().WithLabelValues(string(decision.Status)).Inc()
	}
}
