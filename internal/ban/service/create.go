package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

type CreateBanRequest struct {
	PersonID       string
	PlaceIDs       []string
	IncidentNumber int64
	StartingDate   time.Time
	EndingDate     time.Time
	Motives        []string
	PeopleInvolved string
	IncidentReport string
	ActionTaken    string
	Police         models.PoliceReport
}

// CreateBanResult reports what was persisted. SkippedPlaceIDs lists requested
// places dropped because the person already had an active approved ban there.
type CreateBanResult struct {
	Ban             *models.Ban
	Approvals       []models.PlaceApproval
	SkippedPlaceIDs []string
}

// CreateBan opens a ban covering one or more places. Approval rows start
// pending except for the creating head manager's own place. Places where the
// person already holds an active approved ban are filtered out; if nothing
// survives the filter the whole request conflicts.
func (s *Service) CreateBan(ctx context.Context, req CreateBanRequest, actorID string) (*CreateBanResult, error) {
	ctx, span := s.tracer.Start(ctx, "ban.CreateBan")
	defer span.End()
	started := time.Now()

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !roles.Satisfies(actor.Role, roles.Manager) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers and above can create bans")
	}
	if err := requirePlaceScoped(actor); err != nil {
		return nil, err
	}
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	if _, err := s.dir.Person(ctx, req.PersonID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "person not found")
		}
		return nil, fmt.Errorf("resolve person: %w", err)
	}
	placeIDs := dedupe(req.PlaceIDs)
	places, err := s.dir.Places(ctx, placeIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve places: %w", err)
	}
	if len(places) != len(placeIDs) {
		return nil, dErrors.New(dErrors.CodeNotFound, "some places do not exist")
	}

	now := requestcontext.Now(ctx)
	ban := &models.Ban{
		ID:              uuid.NewString(),
		IncidentNumber:  req.IncidentNumber,
		PersonID:        req.PersonID,
		StartingDate:    req.StartingDate,
		EndingDate:      req.EndingDate,
		HowLong:         models.HowLongBetween(req.StartingDate, req.EndingDate),
		Motives:         req.Motives,
		PeopleInvolved:  req.PeopleInvolved,
		IncidentReport:  req.IncidentReport,
		ActionTaken:     req.ActionTaken,
		Police:          req.Police,
		CreatedByUserID: actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	result := &CreateBanResult{Ban: ban}
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		// Conflict screening runs inside the transaction so two concurrent
		// creates for the same person cannot both pass the check.
		if actor.PlaceID != "" {
			refs, err := s.store.ActiveApprovedBansAt(ctx, req.PersonID, []string{actor.PlaceID}, now)
			if err != nil {
				return fmt.Errorf("check actor place: %w", err)
			}
			if len(refs) > 0 {
				name := actor.PlaceID
				if pl, err := s.dir.Place(ctx, actor.PlaceID); err == nil {
					name = pl.Name
				}
				return dErrors.Newf(dErrors.CodeConflict, "person already has an active ban at: %s", name)
			}
		}

		allowed, skipped, err := s.filterConflictingPlaces(ctx, req.PersonID, placeIDs, now)
		if err != nil {
			return err
		}
		if len(allowed) == 0 {
			return dErrors.Newf(dErrors.CodeConflict,
				"person already has an active ban at: %s", strings.Join(placeNames(places, skipped), ", "))
		}
		result.SkippedPlaceIDs = skipped

		if err := s.store.InsertBan(ctx, ban); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "incident number already exists")
			}
			return fmt.Errorf("insert ban: %w", err)
		}

		for _, placeID := range allowed {
			approval := models.PlaceApproval{
				BanID:   ban.ID,
				PlaceID: placeID,
				Status:  models.StatusPending,
			}
			if autoApproves(actor, placeID) {
				approval.Status = models.StatusApproved
				approval.ApprovedByUserID = actor.ID
				at := now
				approval.ApprovedAt = &at
			}
			if err := s.store.UpsertApproval(ctx, approval); err != nil {
				return fmt.Errorf("insert approval: %w", err)
			}
			result.Approvals = append(result.Approvals, approval)
		}

		return s.store.AppendHistory(ctx, models.HistoryEntry{
			ID:                uuid.NewString(),
			BanID:             ban.ID,
			Action:            models.ActionCreated,
			PerformedByUserID: actor.ID,
			PerformedAt:       now,
			Details: map[string]any{
				"incidentNumber":   ban.IncidentNumber,
				"originalPlaceIds": placeIDs,
				"filteredPlaceIds": skipped,
				"placeIds":         allowed,
				"startingDate":     ban.StartingDate,
				"endingDate":       ban.EndingDate,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BanCreated()
	s.metrics.ObserveCreateDuration(time.Since(started))
	s.emit(ctx, audit.Event{
		BanID:    ban.ID,
		PersonID: ban.PersonID,
		ActorID:  actor.ID,
		Action:   string(models.ActionCreated),
	})
	s.logger.InfoContext(ctx, "ban created",
		"ban_id", ban.ID, "person_id", ban.PersonID,
		"places", len(result.Approvals), "skipped", len(result.SkippedPlaceIDs))
	return result, nil
}

func validateCreate(req CreateBanRequest) error {
	if req.PersonID == "" {
		return dErrors.New(dErrors.CodeValidation, "personId is required")
	}
	if len(req.PlaceIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one place is required")
	}
	if req.IncidentNumber <= 0 {
		return dErrors.New(dErrors.CodeValidation, "incidentNumber must be positive")
	}
	if req.StartingDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "startingDate is required")
	}
	if req.EndingDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "endingDate is required")
	}
	if !req.EndingDate.After(req.StartingDate) {
		return dErrors.New(dErrors.CodeValidation, "endingDate must be after startingDate")
	}
	return nil
}

// autoApproves reports whether the creating actor's involvement settles the
// approval for placeID immediately. Only a head manager approves, and only
// their own place; a manager's own place still waits for its head manager.
func autoApproves(actor *directory.Actor, placeID string) bool {
	return actor.Role == roles.HeadManager && actor.PlaceID == placeID
}

// filterConflictingPlaces splits the requested places into those still open
// for a new ban and those where the person is already banned.
func (s *Service) filterConflictingPlaces(ctx context.Context, personID string, placeIDs []string, now time.Time) (allowed, skipped []string, err error) {
	refs, err := s.store.ActiveApprovedBansAt(ctx, personID, placeIDs, now)
	if err != nil {
		return nil, nil, fmt.Errorf("check place conflicts: %w", err)
	}
	blocked := make(map[string]bool, len(refs))
	for _, ref := range refs {
		blocked[ref.PlaceID] = true
	}
	for _, id := range placeIDs {
		if blocked[id] {
			skipped = append(skipped, id)
		} else {
			allowed = append(allowed, id)
		}
	}
	return allowed, skipped, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func placeNames(places []*directory.Place, ids []string) []string {
	byID := make(map[string]string, len(places))
	for _, pl := range places {
		byID[pl.ID] = pl.Name
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name := byID[id]; name != "" {
			out = append(out, name)
		} else {
			out = append(out, id)
		}
	}
	return out
}
