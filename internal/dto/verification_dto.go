package dto

import (
	"time"

	"github.com/vigilo-edu/vigilo-go-api/internal/models"
)

// VerificationRequest records a teacher's presence check for a quiz.
type VerificationRequest struct {
	QuizID uint    `json:"quiz_id" validate:"required,gt=0"`
	Lat    float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon    float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// VerificationResponse is the API shape of a presence grant.
type VerificationResponse struct {
	TeacherID      uint      `json:"teacher_id"`
	QuizID         uint      `json:"quiz_id"`
	Verified       bool      `json:"verified"`
	DistanceMeters float64   `json:"distance_meters"`
	RadiusMeters   float64   `json:"radius_meters"`
	ExpiresAt      time.Time `json:"expires_at"`
	Expired        bool      `json:"expired"`
}

// NewVerificationResponse maps a verification grant to its API shape.
func NewVerificationResponse(verification models.TeacherVerification, now time.Time) VerificationResponse {
	return VerificationResponse{
		TeacherID:      verification.TeacherID,
		QuizID:         verification.QuizID,
		Verified:       verification.Verified,
		DistanceMeters: verification.DistanceMeters,
		RadiusMeters:   verification.RadiusMeters,
		ExpiresAt:      verification.ExpiresAt,
		Expired:        !now.Before(verification.ExpiresAt),
	}
}
