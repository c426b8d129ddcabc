package dto

import (
	"time"

	"github.com/vigilo-edu/vigilo-go-api/internal/models"
	"github.com/vigilo-edu/vigilo-go-api/internal/security"
)

// SessionStartRequest opens a monitored session for a quiz attempt.
type SessionStartRequest struct {
	QuizID            uint   `json:"quiz_id" validate:"required,gt=0"`
	AssignmentID      *uint  `json:"assignment_id" validate:"omitempty,gt=0"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"required,min=8,max=255"`
}

// LocationEventRequest carries one GPS sample from the client. Coordinates
// are intentionally unvalidated here; garbage values are handled by the
// evaluator as low-severity violations rather than request errors.
type LocationEventRequest struct {
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	Accuracy  float64    `json:"accuracy" validate:"omitempty,gte=0"`
	Source    string     `json:"source" validate:"omitempty,max=32"`
	Timestamp *time.Time `json:"timestamp"`
}

// BehaviorEventRequest carries one discrete client-observed signal.
type BehaviorEventRequest struct {
	Type   string `json:"type" validate:"required,oneof=tab_change window_blur multi_login copy_paste right_click keyboard_shortcut device_change network_change"`
	Detail string `json:"detail" validate:"omitempty,max=512"`
	Source string `json:"source" validate:"omitempty,max=32"`
}

// SessionResponse is the session snapshot surfaced to clients and teachers.
type SessionResponse struct {
	ID                string     `json:"id"`
	UserID            uint       `json:"user_id"`
	QuizID            uint       `json:"quiz_id"`
	AssignmentID      *uint      `json:"assignment_id,omitempty"`
	Status            string     `json:"status"`
	TotalViolations   int        `json:"total_violations"`
	WarningsIssued    int        `json:"warnings_issued"`
	TeacherVerified   bool       `json:"teacher_verified"`
	CurrentLat        *float64   `json:"current_lat,omitempty"`
	CurrentLon        *float64   `json:"current_lon,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	LastActivityAt    time.Time  `json:"last_activity_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	DeviceFingerprint string     `json:"device_fingerprint"`
}

// DecisionResponse reports the engine's verdict for one submitted event.
type DecisionResponse struct {
	Action    string             `json:"action"`
	Status    string             `json:"status"`
	Reason    string             `json:"reason,omitempty"`
	Violation *ViolationResponse `json:"violation,omitempty"`
	Session   SessionResponse    `json:"session"`
}

// ViolationResponse serializes one appended violation record.
type ViolationResponse struct {
	ID          uint                   `json:"id"`
	SessionID   string                 `json:"session_id"`
	Type        string                 `json:"type"`
	Severity    string                 `json:"severity"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Context     map[string]interface{} `json:"context,omitempty"`
	ActionTaken string                 `json:"action_taken"`
	Resolved    bool                   `json:"resolved"`
}

// NewSessionResponse maps a session model to its API shape.
func NewSessionResponse(session models.SecuritySession) SessionResponse {
	return SessionResponse{
		ID:                session.ID,
		UserID:            session.UserID,
		QuizID:            session.QuizID,
		AssignmentID:      session.AssignmentID,
		Status:            string(session.Status),
		TotalViolations:   session.TotalViolations,
		WarningsIssued:    session.WarningsIssued,
		TeacherVerified:   session.TeacherVerified,
		CurrentLat:        session.CurrentLat,
		CurrentLon:        session.CurrentLon,
		StartedAt:         session.StartedAt,
		LastActivityAt:    session.LastActivityAt,
		EndedAt:           session.EndedAt,
		DeviceFingerprint: session.DeviceFingerprint,
	}
}

// NewViolationResponse maps a violation model to its API shape.
func NewViolationResponse(violation models.SecurityViolation) ViolationResponse {
	return ViolationResponse{
		ID:          violation.ID,
		SessionID:   violation.SessionID,
		Type:        string(violation.Type),
		Severity:    string(violation.Severity),
		OccurredAt:  violation.OccurredAt,
		Context:     violation.Context,
		ActionTaken: string(violation.ActionTaken),
		Resolved:    violation.Resolved,
	}
}

// NewViolationResponseSlice maps a list of violation models.
func NewViolationResponseSlice(violations []models.SecurityViolation) []ViolationResponse {
	result := make([]ViolationResponse, 0, len(violations))
	for _, violation := range violations {
		result = append(result, NewViolationResponse(violation))
	}
	return result
}

// NewDecisionResponse maps an engine decision plus the updated session.
func NewDecisionResponse(session models.SecuritySession, decision security.Decision) DecisionResponse {
	response := DecisionResponse{
		Action:  string(decision.Action),
		Status:  string(decision.Status),
		Reason:  decision.Reason,
		Session: NewSessionResponse(session),
	}
	if decision.Violation != nil {
		violation := NewViolationResponse(*decision.Violation)
		response.Violation = &violation
	}
	return response
}
