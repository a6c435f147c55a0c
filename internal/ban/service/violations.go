package service

import (
	"context"
	"fmt"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/audit"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/roles"
	dErrors "github.com/matiasgallardo196/multiPlatformVenue-back/pkg/domain-errors"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/requestcontext"
)

// AddViolation records that the banned person showed up anyway. The count
// and timestamp list only ever grow, and no history entry is written; the
// violation log lives on the ban itself.
func (s *Service) AddViolation(ctx context.Context, banID, actorID string) (*models.Ban, error) {
	ctx, span := s.tracer.Start(ctx, "ban.AddViolation")
	defer span.End()

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != roles.Manager && actor.Role != roles.HeadManager {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers and head managers record violations")
	}

	now := requestcontext.Now(ctx)
	var updated *models.Ban
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		ban, err := s.loadBan(ctx, banID)
		if err != nil {
			return err
		}
		approvals, err := s.store.ApprovalsByBan(ctx, banID)
		if err != nil {
			return fmt.Errorf("load approvals: %w", err)
		}
		if err := s.requireCityOverlap(ctx, actor, approvals); err != nil {
			return err
		}

		ban.ViolationsCount++
		ban.ViolationDates = append(ban.ViolationDates, now)
		ban.LastModifiedByUserID = actor.ID
		ban.UpdatedAt = now
		if err := s.store.UpdateBan(ctx, ban); err != nil {
			return fmt.Errorf("record violation: %w", err)
		}
		updated = ban
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ViolationRecorded()
	s.emit(ctx, audit.Event{
		BanID:    banID,
		PersonID: updated.PersonID,
		ActorID:  actor.ID,
		Action:   "violation_recorded",
	})
	s.logger.InfoContext(ctx, "violation recorded",
		"ban_id", banID, "count", updated.ViolationsCount)
	return updated, nil
}
