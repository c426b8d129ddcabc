package security

import (
	"time"

	"gorm.io/datatypes"

	"github.com/vigilo-edu/vigilo-go-api/internal/geo"
	"github.com/vigilo-edu/vigilo-go-api/internal/models"
)

// Evaluate is the pure decision function at the core of the engine. It takes
// the current session state, the policy snapshot captured at session start,
// and one incoming event, and returns the updated session plus the decision.
// It never touches storage or the clock; the caller supplies `now` so grace
// windows are evaluated lazily against stored timestamps.
func Evaluate(session models.SecuritySession, policy models.PolicySnapshot, event Event, now time.Time) (models.SecuritySession, Decision) {
	decision := Decision{Action: models.ActionNone, Status: session.Status}
	if session.Status.Terminal() {
		decision.Reason = "session closed"
		return session, decision
	}

	// Sweeps are wall-clock checks, not client activity.
	if event.Kind != EventSweep {
		session.LastActivityAt = now
	}

	if event.Kind == EventLocation && event.Location != nil {
		if err := event.Location.Validate(); err != nil {
			// Garbage GPS input is a low-severity violation, not a crash.
			context := datatypes.JSONMap{
				"reason": "invalid_coordinate",
				"error":  err.Error(),
			}
			if event.Accuracy > 0 {
				context["accuracy_m"] = event.Accuracy
			}
			return escalate(session, policy, violationInput{
				kind:     models.ViolationNetworkChange,
				severity: models.SeverityLow,
				context:  context,
			}, now)
		}
		session = recordLocation(session, *event.Location, now)
	}

	// A lapsed teacher-presence requirement turns the next event of any kind
	// into an ordinary medium violation, composing with the warning budget.
	if policy.RequireTeacherLocation && event.Kind != EventSweep && !session.TeacherPresenceValid(now) {
		return escalate(session, policy, violationInput{
			kind:     models.ViolationLocation,
			severity: models.SeverityMedium,
			context:  datatypes.JSONMap{"reason": "teacher_presence_lapsed"},
		}, now)
	}

	switch event.Kind {
	case EventLocation:
		return evaluateLocation(session, policy, event, now)
	case EventBehavior:
		return evaluateBehavior(session, policy, event, now)
	case EventSweep:
		return evaluateSweep(session, policy, now)
	default:
		decision.Reason = "unknown event kind"
		return session, decision
	}
}

func recordLocation(session models.SecuritySession, point geo.Point, now time.Time) models.SecuritySession {
	lat, lon := point.Lat, point.Lon
	session.CurrentLat = &lat
	session.CurrentLon = &lon
	session.LastLocationAt = &now
	if session.InitialLat == nil || session.InitialLon == nil {
		session.InitialLat = &lat
		session.InitialLon = &lon
	}
	return session
}

func evaluateLocation(session models.SecuritySession, policy models.PolicySnapshot, event Event, now time.Time) (models.SecuritySession, Decision) {
	decision := Decision{Action: models.ActionNone, Status: session.Status}

	if !policy.GeofencingEnabled || session.CurrentLat == nil || session.CurrentLon == nil {
		return session, decision
	}

	point := geo.Point{Lat: *session.CurrentLat, Lon: *session.CurrentLon}
	center := geo.Point{Lat: *policy.AllowedLat, Lon: *policy.AllowedLon}
	within, distance, err := geo.WithinRadius(point, center, policy.AllowedRadiusMeters)
	if err != nil {
		return escalate(session, policy, violationInput{
			kind:     models.ViolationNetworkChange,
			severity: models.SeverityLow,
			context:  datatypes.JSONMap{"reason": "invalid_coordinate", "error": err.Error()},
		}, now)
	}

	if within {
		session.OutOfBoundsSince = nil
		session.SweepConfirmedAt = nil
		return session, decision
	}

	grace := time.Duration(policy.LocationGraceSeconds) * time.Second
	if session.OutOfBoundsSince == nil {
		since := now
		session.OutOfBoundsSince = &since
		if grace > 0 {
			decision.Reason = "out of bounds, grace window started"
			return session, decision
		}
	}

	if now.Sub(*session.OutOfBoundsSince) < grace {
		decision.Reason = "out of bounds, within grace window"
		return session, decision
	}

	context := datatypes.JSONMap{
		"lat":              point.Lat,
		"lon":              point.Lon,
		"allowed_lat":      center.Lat,
		"allowed_lon":      center.Lon,
		"allowed_radius_m": policy.AllowedRadiusMeters,
		"distance_m":       distance,
	}
	if event.Accuracy > 0 {
		context["accuracy_m"] = event.Accuracy
	}
	if !event.At.IsZero() {
		context["reported_at"] = event.At.UTC().Format(time.RFC3339)
	}

	return escalate(session, policy, violationInput{
		kind:     models.ViolationLocation,
		severity: distanceSeverity(distance, policy),
		context:  context,
	}, now)
}

func evaluateBehavior(session models.SecuritySession, policy models.PolicySnapshot, event Event, now time.Time) (models.SecuritySession, Decision) {
	decision := Decision{Action: models.ActionNone, Status: session.Status}

	if !event.Behavior.Valid() {
		decision.Reason = "unknown behavior signal"
		return session, decision
	}
	if !policy.BehaviorEnabled(event.Behavior) {
		decision.Reason = "check disabled by policy"
		return session, decision
	}

	context := datatypes.JSONMap{}
	if event.Detail != "" {
		context["detail"] = event.Detail
	}
	if event.Source != "" {
		context["source"] = event.Source
	}

	return escalate(session, policy, violationInput{
		kind:     event.Behavior,
		severity: policy.SeverityFor(event.Behavior),
		context:  context,
	}, now)
}

// evaluateSweep confirms a pending out-of-bounds grace window whose deadline
// passed with no further client reports. One excursion is confirmed by at
// most one sweep; repeat escalation requires fresh client samples.
func evaluateSweep(session models.SecuritySession, policy models.PolicySnapshot, now time.Time) (models.SecuritySession, Decision) {
	decision := Decision{Action: models.ActionNone, Status: session.Status}

	if !policy.GeofencingEnabled || session.OutOfBoundsSince == nil {
		return session, decision
	}
	if session.SweepConfirmedAt != nil && !session.SweepConfirmedAt.Before(*session.OutOfBoundsSince) {
		decision.Reason = "grace expiry already confirmed"
		return session, decision
	}

	grace := time.Duration(policy.LocationGraceSeconds) * time.Second
	if now.Sub(*session.OutOfBoundsSince) < grace {
		return session, decision
	}

	confirmed := now
	session.SweepConfirmedAt = &confirmed

	context := datatypes.JSONMap{
		"reason":           "grace_window_expired",
		"allowed_radius_m": policy.AllowedRadiusMeters,
	}
	severity := models.SeverityMedium
	if session.CurrentLat != nil && session.CurrentLon != nil && policy.AllowedLat != nil && policy.AllowedLon != nil {
		point := geo.Point{Lat: *session.CurrentLat, Lon: *session.CurrentLon}
		center := geo.Point{Lat: *policy.AllowedLat, Lon: *policy.AllowedLon}
		if distance, err := geo.Distance(point, center); err == nil {
			severity = distanceSeverity(distance, policy)
			context["lat"] = point.Lat
			context["lon"] = point.Lon
			context["allowed_lat"] = center.Lat
			context["allowed_lon"] = center.Lon
			context["distance_m"] = distance
		}
	}

	return escalate(session, policy, violationInput{
		kind:     models.ViolationLocation,
		severity: severity,
		context:  context,
	}, now)
}

// distanceSeverity maps how far outside the fence a sample landed to a
// severity, using the policy's tunable multipliers of the allowed radius.
func distanceSeverity(distance float64, policy models.PolicySnapshot) models.Severity {
	if policy.AllowedRadiusMeters <= 0 {
		return models.SeverityMedium
	}
	ratio := distance / policy.AllowedRadiusMeters
	switch {
	case ratio > policy.CriticalRadiusFactor:
		return models.SeverityCritical
	case ratio > policy.HighSeverityFactor:
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}

type violationInput struct {
	kind     models.ViolationType
	severity models.Severity
	context  datatypes.JSONMap
}

// escalate applies the uniform escalation policy to a confirmed violation:
// warnings while budget remains, then suspension or termination, with
// critical severity and violations-while-suspended forcing termination.
func escalate(session models.SecuritySession, policy models.PolicySnapshot, input violationInput, now time.Time) (models.SecuritySession, Decision) {
	session.TotalViolations++

	violation := &models.SecurityViolation{
		SessionID:  session.ID,
		Type:       input.kind,
		Severity:   input.severity,
		OccurredAt: now,
		Context:    input.context,
	}

	var action models.Action
	switch {
	case input.severity == models.SeverityCritical:
		action = models.ActionTermination
	case session.Status == models.SessionSuspended:
		// No second grace once suspended.
		action = models.ActionTermination
	case session.WarningsIssued < policy.WarningsAllowed:
		action = models.ActionWarning
		session.WarningsIssued++
	case policy.AutoSubmitOnViolation:
		action = models.ActionTermination
	default:
		action = models.ActionSuspension
	}

	switch action {
	case models.ActionTermination:
		session.Status = models.SessionTerminated
		ended := now
		session.EndedAt = &ended
	case models.ActionSuspension:
		session.Status = models.SessionSuspended
	}

	violation.ActionTaken = action

	return session, Decision{
		Action:    action,
		Status:    session.Status,
		Violation: violation,
		Reason:    string(input.kind),
	}
}
