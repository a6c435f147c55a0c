package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	dErrors "github.com/matiasgallardo196/multiPlatformVenue-back/pkg/domain-errors"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/sentinel"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/requestcontext"
)

// CheckActiveBansForPlaces is the door-check pre-flight: given a person and a
// set of places, it returns the approved, time-active bans covering any of
// them. No actor gate; the endpoint serves scanners that have no session.
func (s *Service) CheckActiveBansForPlaces(ctx context.Context, personID string, placeIDs []string) ([]models.ActiveBanRef, error) {
	ctx, span := s.tracer.Start(ctx, "ban.CheckActiveBansForPlaces")
	defer span.End()

	if personID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "personId is required")
	}
	ids := dedupe(placeIDs)
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one place is required")
	}

	now := requestcontext.Now(ctx)
	refs, err := s.store.ActiveApprovedBansAt(ctx, personID, ids, now)
	if err != nil {
		return nil, fmt.Errorf("check active bans: %w", err)
	}

	// fill in names the store did not resolve
	missing := make([]string, 0)
	for _, ref := range refs {
		if ref.PlaceName == "" {
			missing = append(missing, ref.PlaceID)
		}
	}
	if len(missing) > 0 {
		places, err := s.dir.Places(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("resolve places: %w", err)
		}
		names := make(map[string]string, len(places))
		for _, pl := range places {
			names[pl.ID] = pl.Name
		}
		for i := range refs {
			if refs[i].PlaceName == "" {
				refs[i].PlaceName = names[refs[i].PlaceID]
			}
		}
	}
	return refs, nil
}

// IsPersonBanned answers on the time window alone. A pending ban still
// counts: the operational question is "does a ban exist right now", not
// "is it enforceable everywhere".
func (s *Service) IsPersonBanned(ctx context.Context, personID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "ban.IsPersonBanned")
	defer span.End()

	if personID == "" {
		return false, dErrors.New(dErrors.CodeValidation, "personId is required")
	}
	n, err := s.store.CountActiveBansByPerson(ctx, personID, requestcontext.Now(ctx))
	if err != nil {
		return false, fmt.Errorf("count active bans: %w", err)
	}
	return n > 0, nil
}

// ActiveBanCount counts the actor's visible bans whose window contains now.
func (s *Service) ActiveBanCount(ctx context.Context, actorID string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "ban.ActiveBanCount")
	defer span.End()

	visible, err := s.ListVisible(ctx, actorID, models.SortViolationsDesc)
	if err != nil {
		return 0, err
	}
	now := requestcontext.Now(ctx)
	count := 0
	for _, e := range visible {
		if e.Ban.IsActive(now) {
			count++
		}
	}
	return count, nil
}

type PlaceBanCount struct {
	PlaceID   string `json:"placeId"`
	PlaceName string `json:"placeName"`
	Count     int    `json:"count"`
}

type PersonBanStats struct {
	PersonID string          `json:"personId"`
	Total    int             `json:"total"`
	Active   int             `json:"active"`
	Expired  int             `json:"expired"`
	ByPlace  []PlaceBanCount `json:"byPlace"`
}

// PersonBanStats aggregates a person's ban record. ByPlace counts approved
// links only; a place that never consented is not part of the record.
func (s *Service) PersonBanStats(ctx context.Context, personID string) (*PersonBanStats, error) {
	ctx, span := s.tracer.Start(ctx, "ban.PersonBanStats")
	defer span.End()

	if _, err := s.dir.Person(ctx, personID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "person not found")
		}
		return nil, fmt.Errorf("resolve person: %w", err)
	}

	bans, err := s.store.ListBansByPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("list bans by person: %w", err)
	}
	now := requestcontext.Now(ctx)
	stats := &PersonBanStats{PersonID: personID, Total: len(bans)}
	byPlace := make(map[string]int)
	for _, ban := range bans {
		if ban.IsActive(now) {
			stats.Active++
		}
		approvals, err := s.store.ApprovalsByBan(ctx, ban.ID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, fmt.Errorf("load approvals: %w", err)
		}
		for _, ap := range approvals {
			if ap.Status == models.StatusApproved {
				byPlace[ap.PlaceID]++
			}
		}
	}
	stats.Expired = stats.Total - stats.Active

	ids := make([]string, 0, len(byPlace))
	for id := range byPlace {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	places, err := s.dir.Places(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve places: %w", err)
	}
	names := make(map[string]string, len(places))
	for _, pl := range places {
		names[pl.ID] = pl.Name
	}
	for _, id := range ids {
		stats.ByPlace = append(stats.ByPlace, PlaceBanCount{
			PlaceID:   id,
			PlaceName: names[id],
			Count:     byPlace[id],
		})
	}
	return stats, nil
}

type DashboardSummary struct {
	Persons     int       `json:"persons"`
	Places      int       `json:"places"`
	ActiveBans  int       `json:"activeBans"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// DashboardSummary is the landing-page snapshot, served from cache when one
// is wired. ActiveBans counts fully settled bans only: time-active, every
// place approved, and no re-approval outstanding.
func (s *Service) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	ctx, span := s.tracer.Start(ctx, "ban.DashboardSummary")
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.GetSummary(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "summary cache read failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	persons, err := s.dir.CountPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("count persons: %w", err)
	}
	places, err := s.dir.CountPlaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("count places: %w", err)
	}
	entries, err := s.loadAllEntries(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	active := 0
	for _, e := range entries {
		if e.Ban.IsActive(now) && !e.Ban.RequiresApproval && allApproved(e) {
			active++
		}
	}
	summary := &DashboardSummary{
		Persons:     persons,
		Places:      places,
		ActiveBans:  active,
		GeneratedAt: now,
	}
	if s.cache != nil {
		if err := s.cache.SetSummary(ctx, *summary); err != nil {
			s.logger.WarnContext(ctx, "summary cache write failed", "error", err)
		}
	}
	return summary, nil
}
