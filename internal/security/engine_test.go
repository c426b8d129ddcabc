package security

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vigilo-edu/vigilo-go-api/internal/models"
)

type memStore struct {
	mu         sync.Mutex
	sessions   map[string]models.SecuritySession
	violations []models.SecurityViolation
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]models.SecuritySession)}
}

func (m *memStore) Create(_ context.Context, session *models.SecuritySession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; ok {
		return ErrDuplicateSession
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (models.SecuritySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return models.SecuritySession{}, ErrSessionNotFound
	}
	return session, nil
}

func (m *memStore) Update(_ context.Context, session *models.SecuritySession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *memStore) AppendViolation(_ context.Context, violation *models.SecurityViolation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations = append(m.violations, *violation)
	return nil
}

func (m *memStore) ActiveSessionIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, session := range m.sessions {
		if !session.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) violationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.violations)
}

type capturingPublisher struct {
	mu        sync.Mutex
	published []Decision
}

func (p *capturingPublisher) PublishDecision(_ context.Context, _ models.SecuritySession, decision Decision) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, decision)
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func testEngine(store Store) *Engine {
	return NewEngine(store, nil, nil, zerolog.New(io.Discard))
}

func startTestSession(t *testing.T, engine *Engine, id string, policy models.SecurityPolicy) models.SecuritySession {
	t.Helper()
	session, err := engine.Start(context.Background(), StartParams{
		SessionID:         id,
		UserID:            42,
		QuizID:            7,
		Policy:            policy,
		DeviceFingerprint: "fp-0123456789",
	})
	require.NoError(t, err)
	return session
}

func TestEngineStartSnapshotsPolicy(t *testing.T) {
	store := newMemStore()
	engine := testEngine(store)

	session := startTestSession(t, engine, "sess-start", behaviorPolicy())
	require.Equal(t, models.SessionActive, session.Status)

	snapshot, err := session.PolicySnapshot()
	require.NoError(t, err)
	require.Equal(t, models.DefaultWarningsAllowed, snapshot.WarningsAllowed)
	require.True(t, snapshot.DetectTabSwitch)
}

func TestEngineStartGeneratesSessionID(t *testing.T) {
	store := newMemStore()
	engine := testEngine(store)

	session, err := engine.Start(context.Background(), StartParams{UserID: 1, QuizID: 7, Policy: behaviorPolicy()})
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
}

func TestEngineStartRejectsDuplicateID(t *testing.T) {
	store := newMemStore()
	engine := testEngine(store)

	startTestSession(t, engine, "sess-dup", behaviorPolicy())
	_, err := engine.Start(context.Background(), StartParams{SessionID: "sess-dup", UserID: 1, QuizID: 7, Policy: behaviorPolicy()})
	require.ErrorIs(t, err, ErrDuplicateSession)
}

func TestEngineStartRejectsInvalidPolicy(t *testing.T) {
	store := newMemStore()
	engine := testEngine(store)

	policy := models.SecurityPolicy{QuizID: 7, GeofencingEnabled: true}
	_, err := engine.Start(context.Background(), StartParams{UserID: 1, QuizID: 7, Policy: policy})
	require.ErrorIs(t, err, models.ErrInvalidPolicy)
}

func TestEngineProcessPersistsDecision(t *testing.T) {
	store := newMemStore()
	publisher := &capturingPublisher{}
	engine := NewEngine(store, nil, publisher, zerolog.New(io.Discard))

	startTestSession(t, engine, "sess-proc", behaviorPolicy())

	updated, decision, err := engine.Process(context.Background(), "sess-proc", Event{Kind: EventBehavior, Behavior: models.ViolationTabChange})
	require.NoError(t, err)
	require.Equal(t, models.ActionWarning, decision.Action)
	require.Equal(t, 1, updated.WarningsIssued)

	stored, err := store.Get(context.Background(), "sess-proc")
	require.NoError(t, err)
	require.Equal(t, 1, stored.WarningsIssued)
	require.Equal(t, 1, store.violationCount())
	require.Equal(t, 1, publisher.count())
}

func TestEngineProcessUnknownSession(t *testing.T) {
	engine := testEngine(newMemStore())

	_, _, err := engine.Process(context.Background(), "missing", Event{Kind: EventBehavior, Behavior: models.ViolationTabChange})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEngineProcessClosedSessionIsNoop(t *testing.T) {
	store := newMemStore()
	engine := testEngine(store)

	startTestSession(t, engine, "sess-closed", behaviorPolicy())
	_, err := engine.Complete(context.Background(), "sess-closed")
	require.NoError(t, err)

	_, decision, err := engine.Process(context.Background(), "sess-closed", Event{Kind: EventBehavior, Behavior: models.ViolationMultiLogin})
	require.ErrorIs(t, err, ErrSessionClosed)
	require.Equal(t, models.ActionNone, decision.Action)
	require.Zero(t, store.violationCount())
}

// Concurrent events for one session must serialize across the whole
// read-evaluate-persist cycle: with a warning budget of two, eight parallel
// tab switches produce exactly warning, warning, suspension, termination and
// four rejections against the then-closed session.
func TestEngineConcurrentEventsSerialized(t *testing.T) {
	store := newMemStore()
	engine := testEngine(store)

	startTestSession(t, engine, "sess-race", behaviorPolicy())

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := engine.Process(context.Background(), "sess-race", Event{Kind: EventBehavior, Behavior: models.ViolationTabChange})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var closed, processed int
	for err := range results {
		if errors.Is(err, ErrSessionClosed) {
			closed++
			continue
		}
		require.NoError(t, err)
		processed++
	}

	require.Equal(t, 4, processed)
	require.Equal(t, 4, closed)

	stored, err := store.Get(context.Background(), "sess-race")
	require.NoError(t, err)
	require.Equal(t, models.SessionTerminated, stored.Status)
	require.Equal(t, 4, stored.TotalViolations)
	require.Equal(t, 2, stored.WarningsIssued)
	require.Equal(t, 4, store.violationCount())
}

func TestEngineResumeRequiresSuspension(t *testing.T) {
	store := newMemStore()
	engine := testEngine(store)

	startTestSession(t, engine, "sess-resume", behaviorPolicy())
	_, err := engine.Resume(context.Background(), "sess-resume")
	require.ErrorIs(t, err, ErrSessionNotSuspended)

	// Exhaust the budget to reach suspension, then resume.
	for i := 0; i < 3; i++ {
		_, _, err = engine.Process(context.Background(), "sess-resume", Event{Kind: EventBehavior, Behavior: models.ViolationTabChange})
		require.NoError(t, err)
	}

	session, err := engine.Resume(context.Background(), "sess-resume")
	require.NoError(t, err)
	require.Equal(t, models.SessionActive, session.Status)
	require.Nil(t, session.OutOfBoundsSince)
}

func TestEngineCompleteIsAbsorbing(t *testing.T) {
	store := newMemStore()
	engine := testEngine(store)

	startTestSession(t, engine, "sess-done", behaviorPolicy())

	session, err := engine.Complete(context.Background(), "sess-done")
	require.NoError(t, err)
	require.Equal(t, models.SessionCompleted, session.Status)
	require.NotNil(t, session.EndedAt)

	_, err = engine.Complete(context.Background(), "sess-done")
	require.ErrorIs(t, err, ErrSessionClosed)

	_, err = engine.Resume(context.Background(), "sess-done")
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestEngineSweepConfirmsExpiredGraceWindows(t *testing.T) {
	store := newMemStore()
	engine := testEngine(store)

	policy := geofencePolicy(60)
	startTestSession(t, engine, "sess-expired", policy)
	startTestSession(t, engine, "sess-fresh", policy)

	// Push one session past its grace deadline directly in the store.
	expired, err := store.Get(context.Background(), "sess-expired")
	require.NoError(t, err)
	since := time.Now().UTC().Add(-2 * time.Minute)
	expired.OutOfBoundsSince = &since
	expired.CurrentLat = floatPtr(0)
	expired.CurrentLon = floatPtr(0.0012)
	require.NoError(t, store.Update(context.Background(), &expired))

	actions, err := engine.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, actions)

	swept, err := store.Get(context.Background(), "sess-expired")
	require.NoError(t, err)
	require.Equal(t, 1, swept.TotalViolations)

	untouched, err := store.Get(context.Background(), "sess-fresh")
	require.NoError(t, err)
	require.Zero(t, untouched.TotalViolations)
}

func TestKeyedMutexSerializesSameKeyOnly(t *testing.T) {
	locks := newKeyedMutex()

	release := locks.Lock("a")

	otherDone := make(chan struct{})
	go func() {
		releaseB := locks.Lock("b")
		releaseB()
		close(otherDone)
	}()

	select {
	case <-otherDone:
	case <-time.After(time.Second):
		t.Fatal("independent key blocked by held lock")
	}

	sameDone := make(chan struct{})
	go func() {
		releaseA := locks.Lock("a")
		releaseA()
		close(sameDone)
	}()

	select {
	case <-sameDone:
		t.Fatal("same key acquired while lock held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-sameDone:
	case <-time.After(time.Second):
		t.Fatal("lock not released")
	}
}
