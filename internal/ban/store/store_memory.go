package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/sentinel"
)

// InMemory keeps the aggregate in maps keyed by opaque ids. Writers are
// serialized by the tx lock; individual operations hold the data lock, so a
// transaction's reads see its own writes without deadlocking.
type InMemory struct {
	txMu sync.Mutex

	mu        sync.RWMutex
	bans      map[string]models.Ban
	approvals map[string]map[string]models.PlaceApproval // banID -> placeID
	history   []models.HistoryEntry
	incidents map[int64]string // incident number -> ban id
}

func NewInMemory() *InMemory {
	return &InMemory{
		bans:      make(map[string]models.Ban),
		approvals: make(map[string]map[string]models.PlaceApproval),
		incidents: make(map[int64]string),
	}
}

func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
	// Rollback is not simulated; the service orders its writes so that a
	// failing step aborts before any dependent row exists.
}

func cloneBan(b models.Ban) *models.Ban {
	out := b
	out.Motives = append([]string(nil), b.Motives...)
	out.ViolationDates = append([]time.Time(nil), b.ViolationDates...)
	return &out
}

func (s *InMemory) InsertBan(_ context.Context, ban *models.Ban) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bans[ban.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, taken := s.incidents[ban.IncidentNumber]; taken {
		return sentinel.ErrConflict
	}
	s.bans[ban.ID] = *cloneBan(*ban)
	s.incidents[ban.IncidentNumber] = ban.ID
	s.approvals[ban.ID] = make(map[string]models.PlaceApproval)
	return nil
}

func (s *InMemory) GetBan(_ context.Context, id string) (*models.Ban, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bans[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneBan(b), nil
}

func (s *InMemory) UpdateBan(_ context.Context, ban *models.Ban) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.bans[ban.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if prev.IncidentNumber != ban.IncidentNumber {
		if owner, taken := s.incidents[ban.IncidentNumber]; taken && owner != ban.ID {
			return sentinel.ErrConflict
		}
		delete(s.incidents, prev.IncidentNumber)
		s.incidents[ban.IncidentNumber] = ban.ID
	}
	s.bans[ban.ID] = *cloneBan(*ban)
	return nil
}

func (s *InMemory) DeleteBan(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bans[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.incidents, b.IncidentNumber)
	delete(s.bans, id)
	delete(s.approvals, id)
	return nil
}

func (s *InMemory) ListBans(_ context.Context) ([]*models.Ban, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Ban, 0, len(s.bans))
	for _, b := range s.bans {
		out = append(out, cloneBan(b))
	}
	sortByID(out)
	return out, nil
}

func (s *InMemory) ListBansByPerson(_ context.Context, personID string) ([]*models.Ban, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Ban
	for _, b := range s.bans {
		if b.PersonID == personID {
			out = append(out, cloneBan(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartingDate.After(out[j].StartingDate)
	})
	return out, nil
}

func (s *InMemory) ListBansByCreatorWithPending(_ context.Context, creatorID string) ([]*models.Ban, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Ban
	for id, b := range s.bans {
		if b.CreatedByUserID != creatorID {
			continue
		}
		for _, ap := range s.approvals[id] {
			if ap.Status == models.StatusPending {
				out = append(out, cloneBan(b))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartingDate.After(out[j].StartingDate)
	})
	return out, nil
}

func (s *InMemory) ListBansPendingAtPlace(_ context.Context, placeID string) ([]*models.Ban, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Ban
	for id, links := range s.approvals {
		ap, ok := links[placeID]
		if !ok || ap.Status != models.StatusPending {
			continue
		}
		out = append(out, cloneBan(s.bans[id]))
	}
	sortByID(out)
	return out, nil
}

func (s *InMemory) CountActiveBansByPerson(_ context.Context, personID string, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, b := range s.bans {
		ban := b
		if ban.PersonID == personID && ban.IsActive(now) {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) UpsertApproval(_ context.Context, approval models.PlaceApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	links, ok := s.approvals[approval.BanID]
	if !ok {
		return sentinel.ErrNotFound
	}
	links[approval.PlaceID] = approval
	return nil
}

func (s *InMemory) DeleteApproval(_ context.Context, banID, placeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	links, ok := s.approvals[banID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if _, ok := links[placeID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(links, placeID)
	return nil
}

func (s *InMemory) ApprovalsByBan(_ context.Context, banID string) ([]models.PlaceApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	links, ok := s.approvals[banID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := make([]models.PlaceApproval, 0, len(links))
	for _, ap := range links {
		out = append(out, ap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlaceID < out[j].PlaceID })
	return out, nil
}

func (s *InMemory) ActiveApprovedBansAt(_ context.Context, personID string, placeIDs []string, now time.Time) ([]models.ActiveBanRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]bool, len(placeIDs))
	for _, id := range placeIDs {
		wanted[id] = true
	}
	var out []models.ActiveBanRef
	for banID, links := range s.approvals {
		ban := s.bans[banID]
		if ban.PersonID != personID || !ban.IsActive(now) {
			continue
		}
		for placeID, ap := range links {
			if wanted[placeID] && ap.Status == models.StatusApproved {
				out = append(out, models.ActiveBanRef{
					BanID:        banID,
					PlaceID:      placeID,
					StartingDate: ban.StartingDate,
					EndingDate:   ban.EndingDate,
					Status:       ap.Status,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlaceID < out[j].PlaceID })
	return out, nil
}

func (s *InMemory) AppendHistory(_ context.Context, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.history = append(s.history, entry)
	return nil
}

func (s *InMemory) HistoryByBan(_ context.Context, banID string) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HistoryEntry
	// walk backwards so same-instant entries come out latest-appended first
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].BanID == banID {
			out = append(out, s.history[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PerformedAt.After(out[j].PerformedAt)
	})
	return out, nil
}

func sortByID(bans []*models.Ban) {
	sort.Slice(bans, func(i, j int) bool { return bans[i].ID < bans[j].ID })
}
