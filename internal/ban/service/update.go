package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/audit"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/directory"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/roles"
	dErrors "github.com/matiasgallardo196/multiPlatformVenue-back/pkg/domain-errors"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/sentinel"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/requestcontext"
)

// UpdateBanRequest carries partial updates; nil fields are left untouched.
type UpdateBanRequest struct {
	IncidentNumber *int64
	StartingDate   *time.Time
	EndingDate     *time.Time
	Motives        *[]string
	PeopleInvolved *string
	IncidentReport *string
	ActionTaken    *string
	Police         *models.PoliceReport
	PlaceIDs       *[]string
}

// UpdateBan mutates a ban the actor's place is involved in. Changing the
// dates by a plain manager voids every approval; a head manager keeps their
// own place approved. Place list changes go through the same conflict filter
// as creation, and the resulting set must stay non-empty.
func (s *Service) UpdateBan(ctx context.Context, banID string, req UpdateBanRequest, actorID string) (*BanDetails, error) {
	ctx, span := s.tracer.Start(ctx, "ban.UpdateBan")
	defer span.End()

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !roles.Satisfies(actor.Role, roles.Manager) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers and above can modify bans")
	}
	if err := requirePlaceScoped(actor); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	details := &BanDetails{}
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		ban, err := s.loadBan(ctx, banID)
		if err != nil {
			return err
		}
		approvals, err := s.store.ApprovalsByBan(ctx, banID)
		if err != nil {
			return fmt.Errorf("load approvals: %w", err)
		}
		if actor.Role != roles.Admin && !coversPlace(approvals, actor.PlaceID) {
			return dErrors.New(dErrors.CodeForbidden, "you can only modify bans that include your place")
		}

		fieldsChanged := applyFieldChanges(ban, req)
		datesChanged, oldDates := applyDateChanges(ban, req)
		if datesChanged {
			ban.HowLong = models.HowLongBetween(ban.StartingDate, ban.EndingDate)
			if !ban.EndingDate.After(ban.StartingDate) {
				return dErrors.New(dErrors.CodeValidation, "endingDate must be after startingDate")
			}
			approvals, err = s.resetApprovalsForDateChange(ctx, ban, approvals, actor, now, oldDates)
			if err != nil {
				return err
			}
		}

		placesChanged := false
		if req.PlaceIDs != nil {
			approvals, placesChanged, err = s.reconcilePlaces(ctx, ban, approvals, dedupe(*req.PlaceIDs), actor, now)
			if err != nil {
				return err
			}
		}
		if len(approvals) == 0 {
			return dErrors.New(dErrors.CodeConflict, "a ban must cover at least one place")
		}

		if !fieldsChanged && !datesChanged && !placesChanged {
			details.Ban = ban
			details.Approvals = approvals
			return nil
		}

		ban.LastModifiedByUserID = actor.ID
		ban.UpdatedAt = now
		if err := s.store.UpdateBan(ctx, ban); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "incident number already exists")
			}
			return fmt.Errorf("update ban: %w", err)
		}

		if fieldsChanged && !datesChanged && !placesChanged {
			if err := s.store.AppendHistory(ctx, models.HistoryEntry{
				ID:                uuid.NewString(),
				BanID:             ban.ID,
				Action:            models.ActionUpdated,
				PerformedByUserID: actor.ID,
				PerformedAt:       now,
			}); err != nil {
				return fmt.Errorf("append history: %w", err)
			}
		}

		details.Ban = ban
		details.Approvals = approvals
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BanUpdated()
	s.emit(ctx, audit.Event{
		BanID:    banID,
		PersonID: details.Ban.PersonID,
		ActorID:  actor.ID,
		Action:   string(models.ActionUpdated),
	})
	return details, nil
}

func applyFieldChanges(ban *models.Ban, req UpdateBanRequest) bool {
	changed := false
	if req.IncidentNumber != nil && *req.IncidentNumber != ban.IncidentNumber {
		ban.IncidentNumber = *req.IncidentNumber
		changed = true
	}
	if req.Motives != nil {
		ban.Motives = *req.Motives
		changed = true
	}
	if req.PeopleInvolved != nil {
		ban.PeopleInvolved = *req.PeopleInvolved
		changed = true
	}
	if req.IncidentReport != nil {
		ban.IncidentReport = *req.IncidentReport
		changed = true
	}
	if req.ActionTaken != nil {
		ban.ActionTaken = *req.ActionTaken
		changed = true
	}
	if req.Police != nil {
		ban.Police = *req.Police
		if !ban.Police.Notified {
			ban.Police = models.PoliceReport{}
		}
		changed = true
	}
	return changed
}

type dateWindow struct {
	start time.Time
	end   time.Time
}

func applyDateChanges(ban *models.Ban, req UpdateBanRequest) (bool, dateWindow) {
	old := dateWindow{start: ban.StartingDate, end: ban.EndingDate}
	changed := false
	if req.StartingDate != nil && !req.StartingDate.Equal(ban.StartingDate) {
		ban.StartingDate = *req.StartingDate
		changed = true
	}
	if req.EndingDate != nil && !req.EndingDate.Equal(ban.EndingDate) {
		ban.EndingDate = *req.EndingDate
		changed = true
	}
	return changed, old
}

// resetApprovalsForDateChange voids prior approvals: new dates mean each
// place is consenting to a different ban than the one it approved. A head
// manager's own place re-approves in the same step.
func (s *Service) resetApprovalsForDateChange(ctx context.Context, ban *models.Ban, approvals []models.PlaceApproval, actor *directory.Actor, now time.Time, oldDates dateWindow) ([]models.PlaceApproval, error) {
	// Only a plain manager's change puts the ban back behind full approval:
	// a head manager re-approves their own place in the same step, and an
	// admin's change voids nothing.
	ban.RequiresApproval = actor.Role == roles.Manager
	out := make([]models.PlaceApproval, 0, len(approvals))
	for _, ap := range approvals {
		next := models.PlaceApproval{
			BanID:   ban.ID,
			PlaceID: ap.PlaceID,
			Status:  models.StatusPending,
		}
		if actor.Role == roles.Admin {
			// an admin's date change does not void approvals
			next = ap
		} else if autoApproves(actor, ap.PlaceID) {
			next.Status = models.StatusApproved
			next.ApprovedByUserID = actor.ID
			at := now
			next.ApprovedAt = &at
		}
		if err := s.store.UpsertApproval(ctx, next); err != nil {
			return nil, fmt.Errorf("reset approval: %w", err)
		}
		out = append(out, next)
	}
	if err := s.store.AppendHistory(ctx, models.HistoryEntry{
		ID:                uuid.NewString(),
		BanID:             ban.ID,
		Action:            models.ActionDatesChanged,
		PerformedByUserID: actor.ID,
		PerformedAt:       now,
		Details: map[string]any{
			"oldStartingDate": oldDates.start,
			"oldEndingDate":   oldDates.end,
			"newStartingDate": ban.StartingDate,
			"newEndingDate":   ban.EndingDate,
		},
	}); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	return out, nil
}

// reconcilePlaces diffs the requested place set against the current approval
// rows. Removals delete their row; additions pass the active-ban conflict
// filter and start pending unless the actor's own place auto-approves.
func (s *Service) reconcilePlaces(ctx context.Context, ban *models.Ban, approvals []models.PlaceApproval, wanted []string, actor *directory.Actor, now time.Time) ([]models.PlaceApproval, bool, error) {
	if len(wanted) == 0 {
		return nil, false, dErrors.New(dErrors.CodeValidation, "placeIds must not be empty")
	}
	current := make(map[string]models.PlaceApproval, len(approvals))
	for _, ap := range approvals {
		current[ap.PlaceID] = ap
	}
	wantedSet := make(map[string]bool, len(wanted))
	for _, id := range wanted {
		wantedSet[id] = true
	}

	var added []string
	for _, id := range wanted {
		if _, ok := current[id]; !ok {
			added = append(added, id)
		}
	}
	var removed []string
	for _, ap := range approvals {
		if !wantedSet[ap.PlaceID] {
			removed = append(removed, ap.PlaceID)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return approvals, false, nil
	}

	if len(added) > 0 {
		places, err := s.dir.Places(ctx, added)
		if err != nil {
			return nil, false, fmt.Errorf("resolve places: %w", err)
		}
		if len(places) != len(added) {
			return nil, false, dErrors.New(dErrors.CodeNotFound, "some places do not exist")
		}
	}

	for _, placeID := range removed {
		if err := s.store.DeleteApproval(ctx, ban.ID, placeID); err != nil {
			return nil, false, fmt.Errorf("remove approval: %w", err)
		}
		delete(current, placeID)
		if err := s.store.AppendHistory(ctx, models.HistoryEntry{
			ID:                uuid.NewString(),
			BanID:             ban.ID,
			Action:            models.ActionPlaceRemoved,
			PerformedByUserID: actor.ID,
			PerformedAt:       now,
			PlaceID:           placeID,
		}); err != nil {
			return nil, false, fmt.Errorf("append history: %w", err)
		}
	}

	allowed, skipped, err := s.filterConflictingPlaces(ctx, ban.PersonID, added, now)
	if err != nil {
		return nil, false, err
	}
	for _, placeID := range allowed {
		approval := models.PlaceApproval{
			BanID:   ban.ID,
			PlaceID: placeID,
			Status:  models.StatusPending,
		}
		auto := autoApproves(actor, placeID)
		if auto {
			approval.Status = models.StatusApproved
			approval.ApprovedByUserID = actor.ID
			at := now
			approval.ApprovedAt = &at
		}
		if err := s.store.UpsertApproval(ctx, approval); err != nil {
			return nil, false, fmt.Errorf("add approval: %w", err)
		}
		current[placeID] = approval
		if err := s.store.AppendHistory(ctx, models.HistoryEntry{
			ID:                uuid.NewString(),
			BanID:             ban.ID,
			Action:            models.ActionPlaceAdded,
			PerformedByUserID: actor.ID,
			PerformedAt:       now,
			PlaceID:           placeID,
			Details: map[string]any{
				"status":       string(approval.Status),
				"autoApproved": auto,
			},
		}); err != nil {
			return nil, false, fmt.Errorf("append history: %w", err)
		}
	}
	if len(skipped) > 0 {
		if err := s.store.AppendHistory(ctx, models.HistoryEntry{
			ID:                uuid.NewString(),
			BanID:             ban.ID,
			Action:            models.ActionPlaceAdded,
			PerformedByUserID: actor.ID,
			PerformedAt:       now,
			Details: map[string]any{
				"filteredPlaceIds": skipped,
				"reason":           "person already has an active ban at these places",
			},
		}); err != nil {
			return nil, false, fmt.Errorf("append history: %w", err)
		}
		s.logger.InfoContext(ctx, "places skipped during update, person already banned there",
			"ban_id", ban.ID, "skipped", skipped)
	}

	out := make([]models.PlaceApproval, 0, len(current))
	for _, ap := range current {
		out = append(out, ap)
	}
	sortApprovals(out)
	return out, true, nil
}
