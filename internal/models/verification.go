package models

import "time"

// TeacherVerification is a time-boxed grant recording that a teacher was
// physically within the quiz bounds. An expired grant reads as "not verified".
type TeacherVerification struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	TeacherID uint `gorm:"index;not null" json:"teacher_id"`
	QuizID    uint `gorm:"index;not null" json:"quiz_id"`

	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	RadiusMeters float64 `json:"radius_meters"`

	Verified       bool    `json:"verified"`
	DistanceMeters float64 `json:"distance_meters"`

	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether the grant is both verified and unexpired.
func (v TeacherVerification) Valid(now time.Time) bool {
	return v.Verified && now.Before(v.ExpiresAt)
}
