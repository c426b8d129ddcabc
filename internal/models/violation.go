package models

import (
	"time"

	"gorm.io/datatypes"
)

// ViolationType is the closed set of signals the evaluator recognizes.
type ViolationType string

const (
	ViolationLocation         ViolationType = "location"
	ViolationTabChange        ViolationType = "tab_change"
	ViolationWindowBlur       ViolationType = "window_blur"
	ViolationMultiLogin       ViolationType = "multi_login"
	ViolationCopyPaste        ViolationType = "copy_paste"
	ViolationRightClick       ViolationType = "right_click"
	ViolationKeyboardShortcut ViolationType = "keyboard_shortcut"
	ViolationDeviceChange     ViolationType = "device_change"
	ViolationNetworkChange    ViolationType = "network_change"
)

// Valid reports whether the value is a member of the closed enumeration.
func (t ViolationType) Valid() bool {
	switch t {
	case ViolationLocation, ViolationTabChange, ViolationWindowBlur,
		ViolationMultiLogin, ViolationCopyPaste, ViolationRightClick,
		ViolationKeyboardShortcut, ViolationDeviceChange, ViolationNetworkChange:
		return true
	default:
		return false
	}
}

// DefaultSeverity is the built-in severity assigned to a behavioral signal
// when the policy does not override it. Multi-device logins are treated as
// unsalvageable; window blur and device changes rank above the rest.
func (t ViolationType) DefaultSeverity() Severity {
	switch t {
	case ViolationMultiLogin:
		return SeverityCritical
	case ViolationWindowBlur, ViolationDeviceChange:
		return SeverityHigh
	case ViolationNetworkChange:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Severity ranks how badly a violation compromises attempt integrity.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether the value is a member of the closed enumeration.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// Action is the engine's response to a confirmed violation.
type Action string

const (
	ActionNone        Action = "none"
	ActionWarning     Action = "warning"
	ActionSuspension  Action = "suspension"
	ActionTermination Action = "termination"
)

// SecurityViolation is an append-only record of a confirmed violation.
// Rows are never mutated after creation except to mark resolution.
type SecurityViolation struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID string `gorm:"size:64;index;not null" json:"session_id"`

	Type     ViolationType `gorm:"size:32;not null" json:"type"`
	Severity Severity      `gorm:"size:16;not null" json:"severity"`

	OccurredAt  time.Time         `gorm:"not null" json:"occurred_at"`
	Context     datatypes.JSONMap `gorm:"type:json" json:"context"`
	ActionTaken Action            `gorm:"size:16;not null" json:"action_taken"`

	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
