package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newBan(personID string, incident int64) *models.Ban {
	return &models.Ban{
		ID:              uuid.NewString(),
		IncidentNumber:  incident,
		PersonID:        personID,
		StartingDate:    s.now.AddDate(0, 0, -1),
		EndingDate:      s.now.AddDate(0, 1, 0),
		Motives:         []string{"fighting"},
		CreatedByUserID: "user-1",
		CreatedAt:       s.now,
		UpdatedAt:       s.now,
	}
}

func (s *InMemoryStoreSuite) TestInsertAndGet() {
	ban := s.newBan("person-1", 1001)
	require.NoError(s.T(), s.store.InsertBan(s.ctx, ban))

	got, err := s.store.GetBan(s.ctx, ban.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), ban.IncidentNumber, got.IncidentNumber)
	assert.Equal(s.T(), ban.PersonID, got.PersonID)

	// returned ban is a copy
	got.Motives[0] = "mutated"
	again, err := s.store.GetBan(s.ctx, ban.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "fighting", again.Motives[0])
}

func (s *InMemoryStoreSuite) TestIncidentNumberUnique() {
	require.NoError(s.T(), s.store.InsertBan(s.ctx, s.newBan("person-1", 42)))

	err := s.store.InsertBan(s.ctx, s.newBan("person-2", 42))
	assert.ErrorIs(s.T(), err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestUpdateReleasesOldIncidentNumber() {
	ban := s.newBan("person-1", 10)
	require.NoError(s.T(), s.store.InsertBan(s.ctx, ban))

	ban.IncidentNumber = 11
	require.NoError(s.T(), s.store.UpdateBan(s.ctx, ban))

	// old number is reusable, new number is taken
	require.NoError(s.T(), s.store.InsertBan(s.ctx, s.newBan("person-2", 10)))
	assert.ErrorIs(s.T(), s.store.InsertBan(s.ctx, s.newBan("person-3", 11)), sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestGetMissing() {
	_, err := s.store.GetBan(s.ctx, uuid.NewString())
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestApprovalLifecycle() {
	ban := s.newBan("person-1", 1)
	require.NoError(s.T(), s.store.InsertBan(s.ctx, ban))

	require.NoError(s.T(), s.store.UpsertApproval(s.ctx, models.PlaceApproval{
		BanID: ban.ID, PlaceID: "place-a", Status: models.StatusPending,
	}))
	require.NoError(s.T(), s.store.UpsertApproval(s.ctx, models.PlaceApproval{
		BanID: ban.ID, PlaceID: "place-b", Status: models.StatusApproved,
	}))

	links, err := s.store.ApprovalsByBan(s.ctx, ban.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), links, 2)
	assert.Equal(s.T(), "place-a", links[0].PlaceID)

	// upsert flips status in place
	require.NoError(s.T(), s.store.UpsertApproval(s.ctx, models.PlaceApproval{
		BanID: ban.ID, PlaceID: "place-a", Status: models.StatusApproved,
	}))
	links, err = s.store.ApprovalsByBan(s.ctx, ban.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusApproved, links[0].Status)

	require.NoError(s.T(), s.store.DeleteApproval(s.ctx, ban.ID, "place-a"))
	links, err = s.store.ApprovalsByBan(s.ctx, ban.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), links, 1)

	assert.ErrorIs(s.T(), s.store.DeleteApproval(s.ctx, ban.ID, "place-a"), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestActiveApprovedBansAt() {
	active := s.newBan("person-1", 1)
	require.NoError(s.T(), s.store.InsertBan(s.ctx, active))
	require.NoError(s.T(), s.store.UpsertApproval(s.ctx, models.PlaceApproval{
		BanID: active.ID, PlaceID: "place-a", Status: models.StatusApproved,
	}))
	require.NoError(s.T(), s.store.UpsertApproval(s.ctx, models.PlaceApproval{
		BanID: active.ID, PlaceID: "place-b", Status: models.StatusPending,
	}))

	expired := s.newBan("person-1", 2)
	expired.StartingDate = s.now.AddDate(0, -2, 0)
	expired.EndingDate = s.now.AddDate(0, -1, 0)
	require.NoError(s.T(), s.store.InsertBan(s.ctx, expired))
	require.NoError(s.T(), s.store.UpsertApproval(s.ctx, models.PlaceApproval{
		BanID: expired.ID, PlaceID: "place-a", Status: models.StatusApproved,
	}))

	refs, err := s.store.ActiveApprovedBansAt(s.ctx, "person-1", []string{"place-a", "place-b"}, s.now)
	require.NoError(s.T(), err)
	require.Len(s.T(), refs, 1)
	assert.Equal(s.T(), active.ID, refs[0].BanID)
	assert.Equal(s.T(), "place-a", refs[0].PlaceID)

	// pending links never count
	refs, err = s.store.ActiveApprovedBansAt(s.ctx, "person-1", []string{"place-b"}, s.now)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), refs)
}

func (s *InMemoryStoreSuite) TestCountActiveIgnoresApprovalState() {
	ban := s.newBan("person-1", 1)
	require.NoError(s.T(), s.store.InsertBan(s.ctx, ban))
	require.NoError(s.T(), s.store.UpsertApproval(s.ctx, models.PlaceApproval{
		BanID: ban.ID, PlaceID: "place-a", Status: models.StatusPending,
	}))

	n, err := s.store.CountActiveBansByPerson(s.ctx, "person-1", s.now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, n)

	n, err = s.store.CountActiveBansByPerson(s.ctx, "person-1", s.now.AddDate(1, 0, 0))
	require.NoError(s.T(), err)
	assert.Zero(s.T(), n)
}

func (s *InMemoryStoreSuite) TestHistorySurvivesDeletion() {
	ban := s.newBan("person-1", 1)
	require.NoError(s.T(), s.store.InsertBan(s.ctx, ban))
	require.NoError(s.T(), s.store.AppendHistory(s.ctx, models.HistoryEntry{
		BanID:             ban.ID,
		Action:            models.ActionCreated,
		PerformedByUserID: "user-1",
		PerformedAt:       s.now,
	}))
	require.NoError(s.T(), s.store.AppendHistory(s.ctx, models.HistoryEntry{
		BanID:             ban.ID,
		Action:            models.ActionDeleted,
		PerformedByUserID: "user-1",
		PerformedAt:       s.now.Add(time.Hour),
	}))

	require.NoError(s.T(), s.store.DeleteBan(s.ctx, ban.ID))
	_, err := s.store.GetBan(s.ctx, ban.ID)
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)

	trail, err := s.store.HistoryByBan(s.ctx, ban.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), trail, 2)
	assert.Equal(s.T(), models.ActionDeleted, trail[0].Action)
	assert.Equal(s.T(), models.ActionCreated, trail[1].Action)
}

func (s *InMemoryStoreSuite) TestListBansPendingAtPlace() {
	pending := s.newBan("person-1", 1)
	require.NoError(s.T(), s.store.InsertBan(s.ctx, pending))
	require.NoError(s.T(), s.store.UpsertApproval(s.ctx, models.PlaceApproval{
		BanID: pending.ID, PlaceID: "place-a", Status: models.StatusPending,
	}))

	settled := s.newBan("person-2", 2)
	require.NoError(s.T(), s.store.InsertBan(s.ctx, settled))
	require.NoError(s.T(), s.store.UpsertApproval(s.ctx, models.PlaceApproval{
		BanID: settled.ID, PlaceID: "place-a", Status: models.StatusApproved,
	}))

	got, err := s.store.ListBansPendingAtPlace(s.ctx, "place-a")
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 1)
	assert.Equal(s.T(), pending.ID, got[0].ID)
}

func (s *InMemoryStoreSuite) TestRunInTxSeesOwnWrites() {
	ban := s.newBan("person-1", 1)
	err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
		if err := s.store.InsertBan(ctx, ban); err != nil {
			return err
		}
		_, err := s.store.GetBan(ctx, ban.ID)
		return err
	})
	require.NoError(s.T(), err)
}
