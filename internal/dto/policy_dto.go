package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/vigilo-edu/vigilo-go-api/internal/models"
)

// PolicyUpsertRequest creates or replaces the security policy for a quiz.
type PolicyUpsertRequest struct {
	GeofencingEnabled    bool     `json:"geofencing_enabled"`
	AllowedLat           *float64 `json:"allowed_lat" validate:"omitempty,gte=-90,lte=90"`
	AllowedLon           *float64 `json:"allowed_lon" validate:"omitempty,gte=-180,lte=180"`
	AllowedRadiusMeters  float64  `json:"allowed_radius_meters" validate:"omitempty,gt=0"`
	LocationGraceSeconds int      `json:"location_grace_seconds" validate:"gte=0"`
	LocationIntervalSecs int      `json:"location_check_interval_seconds" validate:"gte=0"`

	RequireTeacherLocation bool `json:"require_teacher_location"`

	DetectTabSwitch        bool `json:"detect_tab_switch"`
	DetectWindowBlur       bool `json:"detect_window_blur"`
	DetectCopyPaste        bool `json:"detect_copy_paste"`
	DetectRightClick       bool `json:"detect_right_click"`
	DetectKeyboardShortcut bool `json:"detect_keyboard_shortcut"`
	DetectMultiDevice      bool `json:"detect_multi_device"`

	WarningsAllowed       *int `json:"violation_warnings_allowed" validate:"omitempty,gte=0"`
	AutoSubmitOnViolation bool `json:"auto_submit_on_violation"`

	HighSeverityFactor   *float64 `json:"high_severity_factor" validate:"omitempty,gt=0"`
	CriticalRadiusFactor *float64 `json:"critical_radius_factor" validate:"omitempty,gt=0"`

	SeverityOverrides map[string]string `json:"severity_overrides" validate:"omitempty,dive,oneof=low medium high critical"`
}

// ToModel builds the policy model for the given quiz, resolving defaults.
func (r PolicyUpsertRequest) ToModel(quizID uint) models.SecurityPolicy {
	policy := models.SecurityPolicy{
		QuizID:                 quizID,
		GeofencingEnabled:      r.GeofencingEnabled,
		AllowedLat:             r.AllowedLat,
		AllowedLon:             r.AllowedLon,
		AllowedRadiusMeters:    r.AllowedRadiusMeters,
		LocationGraceSeconds:   r.LocationGraceSeconds,
		LocationIntervalSecs:   r.LocationIntervalSecs,
		RequireTeacherLocation: r.RequireTeacherLocation,
		DetectTabSwitch:        r.DetectTabSwitch,
		DetectWindowBlur:       r.DetectWindowBlur,
		DetectCopyPaste:        r.DetectCopyPaste,
		DetectRightClick:       r.DetectRightClick,
		DetectKeyboardShortcut: r.DetectKeyboardShortcut,
		DetectMultiDevice:      r.DetectMultiDevice,
		AutoSubmitOnViolation:  r.AutoSubmitOnViolation,
	}

	if r.WarningsAllowed != nil {
		warnings := *r.WarningsAllowed
		policy.WarningsAllowed = &warnings
	}
	if r.HighSeverityFactor != nil {
		policy.HighSeverityFactor = *r.HighSeverityFactor
	}
	if r.CriticalRadiusFactor != nil {
		policy.CriticalRadiusFactor = *r.CriticalRadiusFactor
	}
	if len(r.SeverityOverrides) > 0 {
		overrides := datatypes.JSONMap{}
		for key, value := range r.SeverityOverrides {
			overrides[key] = value
		}
		policy.SeverityOverrides = overrides
	}

	policy.ApplyDefaults()
	return policy
}

// PolicyResponse is the API shape of a stored policy.
type PolicyResponse struct {
	QuizID               uint     `json:"quiz_id"`
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

	HighSeverityFactor   float64           `json:"high_severity_factor"`
	CriticalRadiusFactor float64           `json:"critical_radius_factor"`
	SeverityOverrides    map[string]string `json:"severity_overrides,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewPolicyResponse maps a policy model to its API shape.
func NewPolicyResponse(policy models.SecurityPolicy) PolicyResponse {
	warnings := models.DefaultWarningsAllowed
	if policy.WarningsAllowed != nil {
		warnings = *policy.WarningsAllowed
	}

	overrides := make(map[string]string, len(policy.SeverityOverrides))
	for key, value := range policy.SeverityOverrides {
		if raw, ok := value.(string); ok {
			overrides[key] = raw
		}
	}
	if len(overrides) == 0 {
		overrides = nil
	}

	return PolicyResponse{
		QuizID:                 policy.QuizID,
		GeofencingEnabled:      policy.GeofencingEnabled,
		AllowedLat:             policy.AllowedLat,
		AllowedLon:             policy.AllowedLon,
		AllowedRadiusMeters:    policy.AllowedRadiusMeters,
		LocationGraceSeconds:   policy.LocationGraceSeconds,
		LocationIntervalSecs:   policy.LocationIntervalSecs,
		RequireTeacherLocation: policy.RequireTeacherLocation,
		DetectTabSwitch:        policy.DetectTabSwitch,
		DetectWindowBlur:       policy.DetectWindowBlur,
		DetectCopyPaste:        policy.DetectCopyPaste,
		DetectRightClick:       policy.DetectRightClick,
		DetectKeyboardShortcut: policy.DetectKeyboardShortcut,
		DetectMultiDevice:      policy.DetectMultiDevice,
		WarningsAllowed:        warnings,
		AutoSubmitOnViolation:  policy.AutoSubmitOnViolation,
		HighSeverityFactor:     policy.HighSeverityFactor,
		CriticalRadiusFactor:   policy.CriticalRadiusFactor,
		SeverityOverrides:      overrides,
		UpdatedAt:              policy.UpdatedAt,
	}
}
