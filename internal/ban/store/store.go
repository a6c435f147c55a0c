// Package store persists the ban aggregate: ban rows, their per-place
// approval links, and the append-only history trail. Approvals have no life
// outside a ban, so one store owns all three.
package store

import (
	"context"
	"time"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
)

// Store is interface-driven so the service stays testable against the
// in-memory implementation while production runs on Postgres.
//
// Implementations return sentinel.ErrNotFound for missing rows and
// sentinel.ErrConflict for incident-number uniqueness violations.
type Store interface {
	// RunInTx wraps multi-step mutations so a failure partway through
	// leaves no orphaned approval or history rows. Store calls made with
	// the callback's context join the same transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	InsertBan(ctx context.Context, ban *models.Ban) error
	GetBan(ctx context.Context, id string) (*models.Ban, error)
	UpdateBan(ctx context.Context, ban *models.Ban) error
	// DeleteBan cascades the ban's approval rows. History rows are
	// retained: the trail outlives the ban it describes.
	DeleteBan(ctx context.Context, id string) error

	ListBans(ctx context.Context) ([]*models.Ban, error)
	ListBansByPerson(ctx context.Context, personID string) ([]*models.Ban, error)
	// ListBansByCreatorWithPending returns bans created by the given actor
	// that still have at least one pending approval.
	ListBansByCreatorWithPending(ctx context.Context, creatorID string) ([]*models.Ban, error)
	// ListBansPendingAtPlace returns bans with a pending approval at the
	// given place (the head-manager approval queue).
	ListBansPendingAtPlace(ctx context.Context, placeID string) ([]*models.Ban, error)
	// CountActiveBansByPerson counts bans whose time window contains now,
	// regardless of approval state.
	CountActiveBansByPerson(ctx context.Context, personID string, now time.Time) (int, error)

	UpsertApproval(ctx context.Context, approval models.PlaceApproval) error
	DeleteApproval(ctx context.Context, banID, placeID string) error
	ApprovalsByBan(ctx context.Context, banID string) ([]models.PlaceApproval, error)
	// ActiveApprovedBansAt returns, for each of the given places, approved
	// approval rows joined to bans of the person that are time-active.
	ActiveApprovedBansAt(ctx context.Context, personID string, placeIDs []string, now time.Time) ([]models.ActiveBanRef, error)

	AppendHistory(ctx context.Context, entry models.HistoryEntry) error
	// HistoryByBan returns entries newest first; same-instant entries come
	// back latest-appended first.
	HistoryByBan(ctx context.Context, banID string) ([]models.HistoryEntry, error)
}
