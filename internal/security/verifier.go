package security

import (
	"time"

	"github.com/vigilo-edu/vigilo-go-api/internal/geo"
	"github.com/vigilo-edu/vigilo-go-api/internal/models"
)

// Verifier issues time-boxed teacher presence grants. A verification is a
// grant with an expiry, not a permanent state; the evaluator treats an
// expired grant exactly like a missing one.
type Verifier struct {
	ttl time.Duration
	now func() time.Time
}

// NewVerifier constructs a verifier with the configured grant TTL.
func NewVerifier(ttl time.Duration) *Verifier {
	return &Verifier{ttl: ttl, now: time.Now}
}

// Verify checks the teacher's reported location against the quiz bounds and
// produces the grant, verified or not. Invalid teacher coordinates are an
// input error here, unlike student samples which become violations.
func (v *Verifier) Verify(teacherID, quizID uint, location, center geo.Point, radiusMeters float64) (models.TeacherVerification, error) {
	within, distance, err := geo.WithinRadius(location, center, radiusMeters)
	if err != nil {
		return models.TeacherVerification{}, err
	}

	now := v.now().UTC()
	return models.TeacherVerification{
		TeacherID:      teacherID,
		QuizID:         quizID,
		Lat:            location.Lat,
		Lon:            location.Lon,
		RadiusMeters:   radiusMeters,
		Verified:       within,
		DistanceMeters: distance,
		ExpiresAt:      now.Add(v.ttl),
		CreatedAt:      now,
	}, nil
}
