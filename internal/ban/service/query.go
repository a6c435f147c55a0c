package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/directory"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/roles"
	dErrors "github.com/matiasgallardo196/multiPlatformVenue-back/pkg/domain-errors"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/sentinel"
)

// ListVisible returns the bans the actor may see, sorted then filtered.
// Scoped roles see a ban once every approval in their city is settled and at
// least one of the ban's places is in their city. Global roles see a ban
// once every approval everywhere is settled. Pending anywhere relevant means
// invisible; rejected rows are gone, so they never block.
func (s *Service) ListVisible(ctx context.Context, actorID string, sortOpt models.SortOption) ([]BanDetails, error) {
	ctx, span := s.tracer.Start(ctx, "ban.ListVisible")
	defer span.End()

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	entries, err := s.loadAllEntries(ctx)
	if err != nil {
		return nil, err
	}
	sortEntries(entries, sortOpt.Normalize())

	if !isScopedRole(actor.Role) {
		return filterEntries(entries, allApproved), nil
	}

	city, err := s.actorCity(ctx, actor)
	if err != nil {
		return nil, err
	}
	if city == "" {
		return nil, nil
	}
	cityOf, err := s.placeCities(ctx, entries)
	if err != nil {
		return nil, err
	}
	return filterEntries(entries, func(e BanDetails) bool {
		return cityApproved(e.Approvals, city, cityOf)
	}), nil
}

// FindPendingByCreator lists the actor's own bans that still wait on at
// least one place, newest first. Managers use it to track what they opened.
func (s *Service) FindPendingByCreator(ctx context.Context, actorID string) ([]BanDetails, error) {
	ctx, span := s.tracer.Start(ctx, "ban.FindPendingByCreator")
	defer span.End()

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != roles.Manager {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers track their own pending bans")
	}

	bans, err := s.store.ListBansByCreatorWithPending(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list pending by creator: %w", err)
	}
	return s.enrich(ctx, bans)
}

type PendingQuery struct {
	Page   int
	Limit  int
	Search string
	Sort   models.SortOption
}

type PendingPage struct {
	Items   []BanDetails
	Total   int
	Page    int
	Limit   int
	HasNext bool
}

// FindPendingApprovalsForPlace is the head manager's approval queue: bans
// pending at their place, searchable by incident number (digits) or person
// name (anything else), paginated.
func (s *Service) FindPendingApprovalsForPlace(ctx context.Context, actorID string, query PendingQuery) (*PendingPage, error) {
	ctx, span := s.tracer.Start(ctx, "ban.FindPendingApprovalsForPlace")
	defer span.End()

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != roles.HeadManager {
		return nil, dErrors.New(dErrors.CodeForbidden, "only head managers have an approval queue")
	}
	if actor.PlaceID == "" {
		return nil, dErrors.New(dErrors.CodeForbidden, "your account has no assigned place")
	}

	bans, err := s.store.ListBansPendingAtPlace(ctx, actor.PlaceID)
	if err != nil {
		return nil, fmt.Errorf("list pending at place: %w", err)
	}
	entries, err := s.enrich(ctx, bans)
	if err != nil {
		return nil, err
	}
	entries = searchEntries(entries, query.Search)
	sortEntries(entries, query.Sort.Normalize())

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	total := len(entries)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return &PendingPage{
		Items:   entries[start:end],
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasNext: end < total,
	}, nil
}

// GetBan returns one ban with approvals and person. Scoped roles need a city
// overlap with the ban's places.
func (s *Service) GetBan(ctx context.Context, banID, actorID string) (*BanDetails, error) {
	ctx, span := s.tracer.Start(ctx, "ban.GetBan")
	defer span.End()

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	ban, err := s.loadBan(ctx, banID)
	if err != nil {
		return nil, err
	}
	approvals, err := s.store.ApprovalsByBan(ctx, banID)
	if err != nil {
		return nil, fmt.Errorf("load approvals: %w", err)
	}
	if err := s.requireViewAccess(ctx, actor, approvals); err != nil {
		return nil, err
	}
	person, err := s.lookupPerson(ctx, ban.PersonID)
	if err != nil {
		return nil, err
	}
	return &BanDetails{Ban: ban, Approvals: approvals, Person: person}, nil
}

// GetHistory returns the ban's trail, newest first. Access mirrors GetBan.
func (s *Service) GetHistory(ctx context.Context, banID, actorID string) ([]models.HistoryEntry, error) {
	ctx, span := s.tracer.Start(ctx, "ban.GetHistory")
	defer span.End()

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadBan(ctx, banID); err != nil {
		return nil, err
	}
	approvals, err := s.store.ApprovalsByBan(ctx, banID)
	if err != nil {
		return nil, fmt.Errorf("load approvals: %w", err)
	}
	if err := s.requireViewAccess(ctx, actor, approvals); err != nil {
		return nil, err
	}
	trail, err := s.store.HistoryByBan(ctx, banID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return trail, nil
}

func (s *Service) actorCity(ctx context.Context, actor *directory.Actor) (string, error) {
	if actor.PlaceID == "" {
		return "", nil
	}
	place, err := s.dir.Place(ctx, actor.PlaceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load actor place: %w", err)
	}
	return place.City, nil
}

func (s *Service) lookupPerson(ctx context.Context, personID string) (*directory.Person, error) {
	person, err := s.dir.Person(ctx, personID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve person: %w", err)
	}
	return person, nil
}

func (s *Service) loadAllEntries(ctx context.Context) ([]BanDetails, error) {
	bans, err := s.store.ListBans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	return s.enrich(ctx, bans)
}

// enrich attaches approvals and the person to each ban, resolving every
// distinct person once.
func (s *Service) enrich(ctx context.Context, bans []*models.Ban) ([]BanDetails, error) {
	persons := make(map[string]*directory.Person)
	out := make([]BanDetails, 0, len(bans))
	for _, ban := range bans {
		approvals, err := s.store.ApprovalsByBan(ctx, ban.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				approvals = nil
			} else {
				return nil, fmt.Errorf("load approvals: %w", err)
			}
		}
		person, seen := persons[ban.PersonID]
		if !seen {
			person, err = s.lookupPerson(ctx, ban.PersonID)
			if err != nil {
				return nil, err
			}
			persons[ban.PersonID] = person
		}
		out = append(out, BanDetails{Ban: ban, Approvals: approvals, Person: person})
	}
	return out, nil
}

func (s *Service) placeCities(ctx context.Context, entries []BanDetails) (map[string]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		for _, ap := range e.Approvals {
			if !seen[ap.PlaceID] {
				seen[ap.PlaceID] = true
				ids = append(ids, ap.PlaceID)
			}
		}
	}
	places, err := s.dir.Places(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve places: %w", err)
	}
	out := make(map[string]string, len(places))
	for _, pl := range places {
		out[pl.ID] = pl.City
	}
	return out, nil
}

func allApproved(e BanDetails) bool {
	if len(e.Approvals) == 0 {
		return false
	}
	for _, ap := range e.Approvals {
		if ap.Status != models.StatusApproved {
			return false
		}
	}
	return true
}

// cityApproved requires at least one approval in the city, with none of the
// city's approvals still pending.
func cityApproved(approvals []models.PlaceApproval, city string, cityOf map[string]string) bool {
	inCity := 0
	for _, ap := range approvals {
		if cityOf[ap.PlaceID] != city {
			continue
		}
		inCity++
		if ap.Status != models.StatusApproved {
			return false
		}
	}
	return inCity > 0
}

func filterEntries(entries []BanDetails, keep func(BanDetails) bool) []BanDetails {
	out := make([]BanDetails, 0, len(entries))
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// searchEntries matches digits against the incident number and anything else
// against the person's name fields, case-insensitively.
func searchEntries(entries []BanDetails, raw string) []BanDetails {
	term := strings.TrimSpace(raw)
	if term == "" {
		return entries
	}
	if isDigits(term) {
		return filterEntries(entries, func(e BanDetails) bool {
			return strings.Contains(strconv.FormatInt(e.Ban.IncidentNumber, 10), term)
		})
	}
	needle := strings.ToLower(term)
	return filterEntries(entries, func(e BanDetails) bool {
		if e.Person == nil {
			return false
		}
		return strings.Contains(strings.ToLower(e.Person.DisplayName()), needle)
	})
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// sortEntries is stable so equal keys keep store order and sorting commutes
// with the visibility filter.
func sortEntries(entries []BanDetails, opt models.SortOption) {
	var less func(a, b BanDetails) bool
	switch opt {
	case models.SortViolationsAsc:
		less = func(a, b BanDetails) bool { return a.Ban.ViolationsCount < b.Ban.ViolationsCount }
	case models.SortStartingDateDesc:
		less = func(a, b BanDetails) bool { return a.Ban.StartingDate.After(b.Ban.StartingDate) }
	case models.SortStartingDateAsc:
		less = func(a, b BanDetails) bool { return a.Ban.StartingDate.Before(b.Ban.StartingDate) }
	case models.SortEndingDateDesc:
		less = func(a, b BanDetails) bool { return endKey(a).After(endKey(b)) }
	case models.SortEndingDateAsc:
		less = func(a, b BanDetails) bool { return endKey(a).Before(endKey(b)) }
	case models.SortPersonNameAsc:
		less = func(a, b BanDetails) bool { return personKey(a) < personKey(b) }
	case models.SortPersonNameDesc:
		less = func(a, b BanDetails) bool { return personKey(a) > personKey(b) }
	default:
		less = func(a, b BanDetails) bool { return a.Ban.ViolationsCount > b.Ban.ViolationsCount }
	}
	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
}

// endKey treats an open-ended ban as ending at the far future so it sorts
// after every dated one in ascending order.
func endKey(e BanDetails) time.Time {
	if e.Ban.EndingDate.IsZero() {
		return time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return e.Ban.EndingDate
}

func personKey(e BanDetails) string {
	if e.Person == nil {
		return ""
	}
	return strings.ToLower(e.Person.DisplayName())
}
