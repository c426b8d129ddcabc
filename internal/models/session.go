package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SessionStatus is the lifecycle state of a security session.
type SessionStatus string

const (
	SessionActive     SessionStatus = "active"
	SessionSuspended  SessionStatus = "suspended"
	SessionTerminated SessionStatus = "terminated"
	SessionCompleted  SessionStatus = "completed"
)

// Terminal reports whether the status is absorbing. Terminated and completed
// sessions reject all further events.
func (s SessionStatus) Terminal() bool {
	return s == SessionTerminated || s == SessionCompleted
}

// SecuritySession tracks one quiz attempt under security monitoring. The
// policy column holds the JSON snapshot captured at start; it is never
// re-read from the live SecurityPolicy row.
type SecuritySession struct {
	ID           string `gorm:"primaryKey;size:64" json:"id"`
	UserID       uint   `gorm:"index;not null" json:"user_id"`
	QuizID       uint   `gorm:"index;not null" json:"quiz_id"`
	AssignmentID *uint  `gorm:"index" json:"assignment_id,omitempty"`

	Status SessionStatus  `gorm:"size:16;index;not null" json:"status"`
	Policy datatypes.JSON `gorm:"type:json" json:"-"`

	DeviceFingerprint string `gorm:"size:255" json:"device_fingerprint"`
	IPAddress         string `gorm:"size:64" json:"ip_address"`
	UserAgent         string `gorm:"size:512" json:"user_agent"`

	InitialLat *float64 `json:"initial_lat,omitempty"`
	InitialLon *float64 `json:"initial_lon,omitempty"`
	CurrentLat *float64 `json:"current_lat,omitempty"`
	CurrentLon *float64 `json:"current_lon,omitempty"`

	LastLocationAt   *time.Time `json:"last_location_at,omitempty"`
	OutOfBoundsSince *time.Time `json:"out_of_bounds_since,omitempty"`
	SweepConfirmedAt *time.Time `json:"sweep_confirmed_at,omitempty"`

	TotalViolations int `gorm:"not null;default:0" json:"total_violations"`
	WarningsIssued  int `gorm:"not null;default:0" json:"warnings_issued"`

	TeacherVerified          bool       `json:"teacher_verified"`
	TeacherVerifiedExpiresAt *time.Time `json:"teacher_verified_expires_at,omitempty"`

	StartedAt      time.Time  `gorm:"not null" json:"started_at"`
	LastActivityAt time.Time  `gorm:"not null" json:"last_activity_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`

	Violations []SecurityViolation `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"violations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetPolicySnapshot serializes the captured policy onto the session row.
func (s *SecuritySession) SetPolicySnapshot(snapshot PolicySnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode policy snapshot: %w", err)
	}
	s.Policy = datatypes.JSON(raw)
	return nil
}

// PolicySnapshot decodes the policy captured at session start.
func (s SecuritySession) PolicySnapshot() (PolicySnapshot, error) {
	var snapshot PolicySnapshot
	if len(s.Policy) == 0 {
		return snapshot, fmt.Errorf("session %s has no policy snapshot", s.ID)
	}
	if err := json.Unmarshal(s.Policy, &snapshot); err != nil {
		return snapshot, fmt.Errorf("failed to decode policy snapshot: %w", err)
	}
	return snapshot, nil
}

// TeacherPresenceValid reports whether the cached teacher verification is
// still in force at the given instant. Expired grants count as unverified.
func (s SecuritySession) TeacherPresenceValid(now time.Time) bool {
	if !s.TeacherVerified || s.TeacherVerifiedExpiresAt == nil {
		return false
	}
	return now.Before(*s.TeacherVerifiedExpiresAt)
}
