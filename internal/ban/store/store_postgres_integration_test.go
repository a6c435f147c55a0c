//go:build integration

package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/sentinel"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("bans"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, string(schema))
	require.NoError(t, err)

	return db
}

func seedRefs(t *testing.T, db *sql.DB, personID, placeID string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO persons (id, name) VALUES ($1, 'John')`, personID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO places (id, name, city) VALUES ($1, 'Harbour Bar', 'sydney')`, placeID)
	require.NoError(t, err)
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	db := setupPostgres(t)
	st := NewPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	personID := uuid.NewString()
	placeID := uuid.NewString()
	seedRefs(t, db, personID, placeID)

	policeDate := now.AddDate(0, 0, -1)
	ban := &models.Ban{
		ID:             uuid.NewString(),
		IncidentNumber: 100,
		PersonID:       personID,
		StartingDate:   now.AddDate(0, 0, -1),
		EndingDate:     now.AddDate(0, 1, 0),
		HowLong:        models.HowLong{Months: 1, Days: 1},
		Motives:        []string{"fighting", "theft"},
		IncidentReport: "report text",
		Police: models.PoliceReport{
			Notified: true,
			Date:     &policeDate,
			Time:     "23:40",
			Event:    "E-1",
		},
		CreatedByUserID: uuid.NewString(),
		ViolationDates:  []time.Time{now},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, st.InsertBan(ctx, ban))

	got, err := st.GetBan(ctx, ban.ID)
	require.NoError(t, err)
	assert.Equal(t, ban.IncidentNumber, got.IncidentNumber)
	assert.Equal(t, ban.Motives, []string(got.Motives))
	assert.True(t, got.Police.Notified)
	assert.Equal(t, "23:40", got.Police.Time)
	require.Len(t, got.ViolationDates, 1)

	// unique incident number maps to the conflict sentinel
	dup := *ban
	dup.ID = uuid.NewString()
	err = st.InsertBan(ctx, &dup)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	_, err = st.GetBan(ctx, uuid.NewString())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresApprovalsAndHistory(t *testing.T) {
	db := setupPostgres(t)
	st := NewPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	personID := uuid.NewString()
	placeID := uuid.NewString()
	seedRefs(t, db, personID, placeID)

	ban := &models.Ban{
		ID:              uuid.NewString(),
		IncidentNumber: 200,
		PersonID:        personID,
		StartingDate:    now.AddDate(0, 0, -1),
		EndingDate:      now.AddDate(0, 1, 0),
		CreatedByUserID: uuid.NewString(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	actorID := uuid.NewString()

	err := st.RunInTx(ctx, func(ctx context.Context) error {
		if err := st.InsertBan(ctx, ban); err != nil {
			return err
		}
		at := now
		if err := st.UpsertApproval(ctx, models.PlaceApproval{
			BanID:            ban.ID,
			PlaceID:          placeID,
			Status:           models.StatusApproved,
			ApprovedByUserID: actorID,
			ApprovedAt:       &at,
		}); err != nil {
			return err
		}
		return st.AppendHistory(ctx, models.HistoryEntry{
			ID:                uuid.NewString(),
			BanID:             ban.ID,
			Action:            models.ActionCreated,
			PerformedByUserID: actorID,
			PerformedAt:       now,
			Details:           map[string]any{"incidentNumber": float64(200)},
		})
	})
	require.NoError(t, err)

	refs, err := st.ActiveApprovedBansAt(ctx, personID, []string{placeID}, now)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ban.ID, refs[0].BanID)
	assert.Equal(t, "Harbour Bar", refs[0].PlaceName)

	pending, err := st.ListBansPendingAtPlace(ctx, placeID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// history survives deletion, approvals cascade
	require.NoError(t, st.DeleteBan(ctx, ban.ID))
	_, err = st.GetBan(ctx, ban.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	approvals, err := st.ApprovalsByBan(ctx, ban.ID)
	require.NoError(t, err)
	assert.Empty(t, approvals)

	trail, err := st.HistoryByBan(ctx, ban.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, models.ActionCreated, trail[0].Action)
	assert.Equal(t, float64(200), trail[0].Details["incidentNumber"])
}
