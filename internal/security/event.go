package security

import (
	"time"

	"github.com/vigilo-edu/vigilo-go-api/internal/geo"
	"github.com/vigilo-edu/vigilo-go-api/internal/models"
)

// EventKind discriminates the inputs the evaluator understands.
type EventKind string

const (
	// EventLocation carries a GPS sample reported by the client.
	EventLocation EventKind = "location"
	// EventBehavior carries a discrete client-observed signal such as a tab switch.
	EventBehavior EventKind = "behavior"
	// EventSweep is the synthetic event used by the periodic sweep to
	// force-evaluate grace-period expiry without new client input.
	EventSweep EventKind = "sweep"
)

// Event is a single input to the evaluator. Location fields are set for
// EventLocation, Behavior/Detail for EventBehavior.
type Event struct {
	Kind EventKind

	Location *geo.Point
	Accuracy float64
	Source   string

	Behavior models.ViolationType
	Detail   string

	At time.Time
}

// Decision is the evaluator's verdict for one event: the resulting action,
// the session status after the transition, and at most one violation record.
type Decision struct {
	Action    models.Action
	Status    models.SessionStatus
	Violation *models.SecurityViolation
	Reason    string
}
