package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/audit"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/roles"
	dErrors "github.com/matiasgallardo196/multiPlatformVenue-back/pkg/domain-errors"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/requestcontext"
)

// RemoveBan deletes a ban and its approval rows. The history trail is kept
// and gains a final deleted entry, so the record of the ban having existed
// outlives the ban itself.
func (s *Service) RemoveBan(ctx context.Context, banID, actorID string) error {
	ctx, span := s.tracer.Start(ctx, "ban.RemoveBan")
	defer span.End()

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return err
	}
	if !roles.Satisfies(actor.Role, roles.Manager) {
		return dErrors.New(dErrors.CodeForbidden, "only managers and above can delete bans")
	}
	if err := requirePlaceScoped(actor); err != nil {
		return err
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
		if actor.Role != roles.Admin && !coversPlace(approvals, actor.PlaceID) {
			return dErrors.New(dErrors.CodeForbidden, "you can only delete bans that include your place")
		}

		// history first so the entry exists even though the ban row goes away
		if err := s.store.AppendHistory(ctx, models.HistoryEntry{
			ID:                uuid.NewString(),
			BanID:             banID,
			Action:            models.ActionDeleted,
			PerformedByUserID: actor.ID,
			PerformedAt:       now,
			Details: map[string]any{
				"incidentNumber": ban.IncidentNumber,
			},
		}); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return s.store.DeleteBan(ctx, banID)
	})
	if err != nil {
		return err
	}

	s.metrics.BanDeleted()
	s.emit(ctx, audit.Event{
		BanID:    banID,
		PersonID: personID,
		ActorID:  actor.ID,
		Action:   string(models.ActionDeleted),
	})
	s.logger.InfoContext(ctx, "ban deleted", "ban_id", banID, "actor_id", actor.ID)
	return nil
}
