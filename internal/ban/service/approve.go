package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/audit"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/roles"
	dErrors "github.com/matiasgallardo196/multiPlatformVenue-back/pkg/domain-errors"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/sentinel"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/requestcontext"
)

const (
	defaultBulkBatchSize = 100
	maxBulkBatchSize     = 500
)

// ApprovePlace settles one place's approval. Only the head manager of that
// exact place decides; the role check is equality, not hierarchy, so admins
// do not approve on a place's behalf. Rejection deletes the approval row.
func (s *Service) ApprovePlace(ctx context.Context, banID, placeID string, approved bool, actorID string) error {
	ctx, span := s.tracer.Start(ctx, "ban.ApprovePlace")
	defer span.End()

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Role != roles.HeadManager {
		return dErrors.New(dErrors.CodeForbidden, "only head managers approve or reject places")
	}
	if actor.PlaceID == "" {
		return dErrors.New(dErrors.CodeForbidden, "your account has no assigned place")
	}
	if actor.PlaceID != placeID {
		return dErrors.New(dErrors.CodeForbidden, "you can only decide for your own place")
	}

	now := requestcontext.Now(ctx)
	var personID string
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		ban, err := s.loadBan(ctx, banID)
		if err != nil {
			return err
		}
		personID = ban.PersonID
		approvals, err := s.store.ApprovalsByBan(ctx, banID)
		if err != nil {
			return fmt.Errorf("load approvals: %w", err)
		}
		if !coversPlace(approvals, placeID) {
			return dErrors.New(dErrors.CodeNotFound, "this ban has no approval entry for your place")
		}

		if approved {
			at := now
			if err := s.store.UpsertApproval(ctx, models.PlaceApproval{
				BanID:            banID,
				PlaceID:          placeID,
				Status:           models.StatusApproved,
				ApprovedByUserID: actor.ID,
				ApprovedAt:       &at,
			}); err != nil {
				return fmt.Errorf("approve place: %w", err)
			}
			return s.store.AppendHistory(ctx, models.HistoryEntry{
				ID:                uuid.NewString(),
				BanID:             banID,
				Action:            models.ActionApproved,
				PerformedByUserID: actor.ID,
				PerformedAt:       now,
				PlaceID:           placeID,
			})
		}

		if err := s.store.DeleteApproval(ctx, banID, placeID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "this ban has no approval entry for your place")
			}
			return fmt.Errorf("reject place: %w", err)
		}
		return s.store.AppendHistory(ctx, models.HistoryEntry{
			ID:                uuid.NewString(),
			BanID:             banID,
			Action:            models.ActionRejected,
			PerformedByUserID: actor.ID,
			PerformedAt:       now,
			PlaceID:           placeID,
		})
	})
	if err != nil {
		return err
	}

	outcome := "approved"
	action := models.ActionApproved
	if !approved {
		outcome = "rejected"
		action = models.ActionRejected
	}
	s.metrics.ApprovalDecided(outcome)
	s.emit(ctx, audit.Event{
		BanID:    banID,
		PlaceID:  placeID,
		PersonID: personID,
		ActorID:  actor.ID,
		Action:   string(action),
	})
	return nil
}

type BulkApproveRequest struct {
	CreatedBy string
	Gender    string
	BanIDs    []string
	PlaceIDs  []string
	// MaxBatchSize caps how many bans one call settles; zero means the
	// default. Values above the hard cap are clamped.
	MaxBatchSize int
}

type SkippedBan struct {
	BanID  string `json:"banId"`
	Reason string `json:"reason"`
}

type BulkApproveResult struct {
	ApprovedIDs []string     `json:"approvedIds"`
	Skipped     []SkippedBan `json:"skipped"`
}

// BulkApprovePlaces approves the actor's place on every pending ban matching
// the filters. Each ban commits independently so one failure never rolls back
// the batch; failures come back in the skipped list.
func (s *Service) BulkApprovePlaces(ctx context.Context, req BulkApproveRequest, actorID string) (*BulkApproveResult, error) {
	ctx, span := s.tracer.Start(ctx, "ban.BulkApprovePlaces")
	defer span.End()

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != roles.HeadManager {
		return nil, dErrors.New(dErrors.CodeForbidden, "only head managers approve or reject places")
	}
	if actor.PlaceID == "" {
		return nil, dErrors.New(dErrors.CodeForbidden, "your account has no assigned place")
	}

	result := &BulkApproveResult{}
	// a placeIds filter that excludes the actor's own place matches nothing
	if len(req.PlaceIDs) > 0 && !containsString(req.PlaceIDs, actor.PlaceID) {
		return result, nil
	}

	candidates, err := s.store.ListBansPendingAtPlace(ctx, actor.PlaceID)
	if err != nil {
		return nil, fmt.Errorf("list pending bans: %w", err)
	}
	candidates, err = s.filterBulkCandidates(ctx, candidates, req)
	if err != nil {
		return nil, err
	}

	batch := req.MaxBatchSize
	if batch <= 0 {
		batch = defaultBulkBatchSize
	}
	if batch > maxBulkBatchSize {
		batch = maxBulkBatchSize
	}
	if len(candidates) > batch {
		candidates = candidates[:batch]
	}

	now := requestcontext.Now(ctx)
	for _, ban := range candidates {
		banID := ban.ID
		err := s.store.RunInTx(ctx, func(ctx context.Context) error {
			at := now
			if err := s.store.UpsertApproval(ctx, models.PlaceApproval{
				BanID:            banID,
				PlaceID:          actor.PlaceID,
				Status:           models.StatusApproved,
				ApprovedByUserID: actor.ID,
				ApprovedAt:       &at,
			}); err != nil {
				return err
			}
			return s.store.AppendHistory(ctx, models.HistoryEntry{
				ID:                uuid.NewString(),
				BanID:             banID,
				Action:            models.ActionApproved,
				PerformedByUserID: actor.ID,
				PerformedAt:       now,
				PlaceID:           actor.PlaceID,
				Details:           map[string]any{"bulk": true},
			})
		})
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedBan{BanID: banID, Reason: err.Error()})
			s.logger.WarnContext(ctx, "bulk approval skipped ban",
				"ban_id", banID, "error", err)
			continue
		}
		result.ApprovedIDs = append(result.ApprovedIDs, banID)
		s.metrics.ApprovalDecided("approved")
		s.emit(ctx, audit.Event{
			BanID:    banID,
			PlaceID:  actor.PlaceID,
			PersonID: ban.PersonID,
			ActorID:  actor.ID,
			Action:   string(models.ActionApproved),
			Reason:   "bulk",
		})
	}

	s.logger.InfoContext(ctx, "bulk approval finished",
		"place_id", actor.PlaceID,
		"approved", len(result.ApprovedIDs), "skipped", len(result.Skipped))
	return result, nil
}

func (s *Service) filterBulkCandidates(ctx context.Context, candidates []*models.Ban, req BulkApproveRequest) ([]*models.Ban, error) {
	wantedIDs := make(map[string]bool, len(req.BanIDs))
	for _, id := range req.BanIDs {
		wantedIDs[id] = true
	}
	persons := make(map[string]string) // person id -> gender, lazy
	out := candidates[:0]
	for _, ban := range candidates {
		if req.CreatedBy != "" && ban.CreatedByUserID != req.CreatedBy {
			continue
		}
		if len(wantedIDs) > 0 && !wantedIDs[ban.ID] {
			continue
		}
		if req.Gender != "" {
			gender, ok := persons[ban.PersonID]
			if !ok {
				person, err := s.dir.Person(ctx, ban.PersonID)
				if err != nil {
					if errors.Is(err, sentinel.ErrNotFound) {
						continue
					}
					return nil, fmt.Errorf("resolve person: %w", err)
				}
				gender = person.Gender
				persons[ban.PersonID] = gender
			}
			if gender != req.Gender {
				continue
			}
		}
		out = append(out, ban)
	}
	return out, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
