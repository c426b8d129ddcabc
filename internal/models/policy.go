package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ErrInvalidPolicy indicates a security policy that fails construction-time validation.
var ErrInvalidPolicy = errors.New("invalid security policy")

// Default escalation tunables applied when a policy leaves them unset.
const (
	DefaultWarningsAllowed      = 2
	DefaultHighSeverityFactor   = 1.5
	DefaultCriticalRadiusFactor = 3.0
)

// SecurityPolicy is the per-quiz anti-cheating configuration. A running
// session never reads this row directly; it captures a PolicySnapshot at
// start so mid-quiz edits cannot change the rules of in-flight attempts.
type SecurityPolicy struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	QuizID uint `gorm:"uniqueIndex;not null" json:"quiz_id"`

	GeofencingEnabled    bool     `json:"geofencing_enabled"`
	AllowedLat           *float64 `json:"allowed_lat"`
	AllowedLon           *float64 `json:"allowed_lon"`
	AllowedRadiusMeters  float64  `json:"allowed_radius_meters"`
	LocationGraceSeconds int      `json:"location_grace_seconds"`
	LocationIntervalSecs int      `json:"location_check_interval_seconds"`

	RequireTeacherLocation bool `json:"require_teacher_location"`

	DetectTabSwitch        bool `json:"detect_tab_switch"`
	DetectWindowBlur       bool `json:"detect_window_blur"`
	DetectCopyPaste        bool `json:"detect_copy_paste"`
	DetectRightClick       bool `json:"detect_right_click"`
	DetectKeyboardShortcut bool `json:"detect_keyboard_shortcut"`
	DetectMultiDevice      bool `json:"detect_multi_device"`

	// WarningsAllowed is a pointer because zero is a meaningful budget: a
	// policy may demand that the first confirmed violation suspends. Nil
	// means unset, resolved to DefaultWarningsAllowed.
	WarningsAllowed       *int `json:"violation_warnings_allowed"`
	AutoSubmitOnViolation bool `json:"auto_submit_on_violation"`

	// Distance multipliers that map out-of-bounds excursions to severities.
	HighSeverityFactor   float64 `json:"high_severity_factor"`
	CriticalRadiusFactor float64 `json:"critical_radius_factor"`

	// Optional per-behavior severity overrides keyed by violation type.
	SeverityOverrides datatypes.JSONMap `gorm:"type:json" json:"severity_overrides"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate enforces the construction invariants before a policy is persisted
// or snapshotted onto a session.
func (p SecurityPolicy) Validate() error {
	if p.GeofencingEnabled {
		if p.AllowedLat == nil || p.AllowedLon == nil {
			return fmt.Errorf("%w: geofencing requires an allowed center", ErrInvalidPolicy)
		}
		if p.AllowedRadiusMeters <= 0 {
			return fmt.Errorf("%w: geofencing requires a positive radius", ErrInvalidPolicy)
		}
	}
	if p.LocationGraceSeconds < 0 {
		return fmt.Errorf("%w: grace period must be non-negative", ErrInvalidPolicy)
	}
	if p.LocationIntervalSecs < 0 {
		return fmt.Errorf("%w: location check interval must be non-negative", ErrInvalidPolicy)
	}
	if p.WarningsAllowed != nil && *p.WarningsAllowed < 0 {
		return fmt.Errorf("%w: warning budget must be non-negative", ErrInvalidPolicy)
	}
	if p.HighSeverityFactor < 0 || p.CriticalRadiusFactor < 0 {
		return fmt.Errorf("%w: severity factors must be non-negative", ErrInvalidPolicy)
	}
	for key, value := range p.SeverityOverrides {
		raw, ok := value.(string)
		if !ok || !Severity(raw).Valid() {
			return fmt.Errorf("%w: severity override for %q is not a valid severity", ErrInvalidPolicy, key)
		}
		if !ViolationType(key).Valid() {
			return fmt.Errorf("%w: severity override key %q is not a violation type", ErrInvalidPolicy, key)
		}
	}
	return nil
}

// ApplyDefaults fills unset tunables with their documented defaults. An
// explicit zero warning budget survives; only a nil budget is defaulted.
func (p *SecurityPolicy) ApplyDefaults() {
	if p.WarningsAllowed == nil {
		warnings := DefaultWarningsAllowed
		p.WarningsAllowed = &warnings
	}
	if p.HighSeverityFactor == 0 {
		p.HighSeverityFactor = DefaultHighSeverityFactor
	}
	if p.CriticalRadiusFactor == 0 {
		p.CriticalRadiusFactor = DefaultCriticalRadiusFactor
	}
}

// PolicySnapshot is the immutable copy of a SecurityPolicy captured by a
// session at start time. It is stored as a JSON column on the session row.
type PolicySnapshot struct {
	QuizID uint `json:"quiz_id"`

	GeofencingEnabled    bool     `json:"geofencing_enabled"`
	AllowedLat           *float64 `json:"allowed_lat,omitempty"`
	AllowedLon           *float64 `json:"allowed_lon,omitempty"`
	AllowedRadiusMeters  float64  `json:"allowed_radius_meters"`
	LocationGraceSeconds int      `json:"location_grace_seconds"`
	LocationIntervalSecs int      `json:"location_check_interval_seconds"`

	RequireTeacherLocation bool `json:"require_teacher_location"`

	DetectTabSwitch        bool `json:"detect_tab_switch"`
	DetectWindowBlur       bool `json:"detect_window_blur"`
	DetectCopyPaste        bool `json:"detect_copy_paste"`
	DetectRightClick       bool `json:"detect_right_click"`
	DetectKeyboardShortcut bool `json:"detect_keyboard_shortcut"`
	DetectMultiDevice      bool `json:"detect_multi_device"`

	WarningsAllowed       int  `json:"violation_warnings_allowed"`
	AutoSubmitOnViolation bool `json:"auto_submit_on_violation"`

	HighSeverityFactor   float64 `json:"high_severity_factor"`
	CriticalRadiusFactor float64 `json:"critical_radius_factor"`

	SeverityOverrides map[string]string `json:"severity_overrides,omitempty"`
}

// Snapshot produces the immutable copy attached to new sessions. Defaults are
// resolved here so snapshots are self-contained.
func (p SecurityPolicy) Snapshot() PolicySnapshot {
	p.ApplyDefaults()

	overrides := make(map[string]string, len(p.SeverityOverrides))
	for key, value := range p.SeverityOverrides {
		if raw, ok := value.(string); ok {
			overrides[key] = raw
		}
	}
	if len(overrides) == 0 {
		overrides = nil
	}

	return PolicySnapshot{
		QuizID:                 p.QuizID,
		GeofencingEnabled:      p.GeofencingEnabled,
		AllowedLat:             p.AllowedLat,
		AllowedLon:             p.AllowedLon,
		AllowedRadiusMeters:    p.AllowedRadiusMeters,
		LocationGraceSeconds:   p.LocationGraceSeconds,
		LocationIntervalSecs:   p.LocationIntervalSecs,
		RequireTeacherLocation: p.RequireTeacherLocation,
		DetectTabSwitch:        p.DetectTabSwitch,
		DetectWindowBlur:       p.DetectWindowBlur,
		DetectCopyPaste:        p.DetectCopyPaste,
		DetectRightClick:       p.DetectRightClick,
		DetectKeyboardShortcut: p.DetectKeyboardShortcut,
		DetectMultiDevice:      p.DetectMultiDevice,
		WarningsAllowed:        *p.WarningsAllowed,
		AutoSubmitOnViolation:  p.AutoSubmitOnViolation,
		HighSeverityFactor:     p.HighSeverityFactor,
		CriticalRadiusFactor:   p.CriticalRadiusFactor,
		SeverityOverrides:      overrides,
	}
}

// BehaviorEnabled reports whether the policy checks the given behavioral signal.
func (s PolicySnapshot) BehaviorEnabled(kind ViolationType) bool {
	switch kind {
	case ViolationTabChange:
		return s.DetectTabSwitch
	case ViolationWindowBlur:
		return s.DetectWindowBlur
	case ViolationCopyPaste:
		return s.DetectCopyPaste
	case ViolationRightClick:
		return s.DetectRightClick
	case ViolationKeyboardShortcut:
		return s.DetectKeyboardShortcut
	case ViolationMultiLogin, ViolationDeviceChange:
		return s.DetectMultiDevice
	default:
		return true
	}
}

// SeverityFor resolves the severity of a behavioral violation, honoring
// per-policy overrides before falling back to the built-in defaults.
func (s PolicySnapshot) SeverityFor(kind ViolationType) Severity {
	if raw, ok := s.SeverityOverrides[string(kind)]; ok {
		if severity := Severity(raw); severity.Valid() {
			return severity
		}
	}
	return kind.DefaultSeverity()
}
