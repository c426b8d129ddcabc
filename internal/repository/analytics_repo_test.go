package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vigilo-edu/vigilo-go-api/internal/models"
)

func seedAnalyticsData(t *testing.T, repo SessionRepository) {
	t.Helper()

	clean := testSession("sess-clean", models.SessionCompleted)
	require.NoError(t, repo.Create(context.Background(), &clean))

	flagged := testSession("sess-flagged", models.SessionTerminated)
	flagged.TotalViolations = 2
	require.NoError(t, repo.Create(context.Background(), &flagged))

	now := time.Now().UTC()
	violations := []models.SecurityViolation{
		{SessionID: "sess-flagged", Type: models.ViolationLocation, Severity: models.SeverityHigh, OccurredAt: now, ActionTaken: models.ActionWarning},
		{SessionID: "sess-flagged", Type: models.ViolationLocation, Severity: models.SeverityCritical, OccurredAt: now, ActionTaken: models.ActionTermination},
	}
	for i := range violations {
		require.NoError(t, repo.AppendViolation(context.Background(), &violations[i]))
	}
}

func TestAnalyticsRepositoryAggregates(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionRepository(db)
	repo := NewAnalyticsRepository(db)

	seedAnalyticsData(t, sessions)

	byType, err := repo.ViolationsByType(context.Background())
	require.NoError(t, err)
	require.Len(t, byType, 1)
	require.Equal(t, models.ViolationLocation, byType[0].Type)
	require.EqualValues(t, 2, byType[0].Count)

	bySeverity, err := repo.ViolationsBySeverity(context.Background())
	require.NoError(t, err)
	require.Len(t, bySeverity, 2)

	byStatus, err := repo.SessionsByStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, byStatus, 2)

	total, err := repo.TotalSessions(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, total)

	flagged, err := repo.SessionsWithViolations(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, flagged)
}

func TestAnalyticsRepositoryEmptyDatabase(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepository(db)

	total, err := repo.TotalSessions(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)

	byType, err := repo.ViolationsByType(context.Background())
	require.NoError(t, err)
	require.Empty(t, byType)
}
