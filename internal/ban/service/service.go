// Package service implements the ban workflow: creation with conflict
// screening, the per-place approval lifecycle, role-scoped visibility,
// violation tracking, and the audit trail around all of it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/audit"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/metrics"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/store"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/directory"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/roles"
	dErrors "github.com/matiasgallardo196/multiPlatformVenue-back/pkg/domain-errors"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/sentinel"
)

// SummaryCache holds the dashboard snapshot for a short TTL. A miss returns
// (nil, nil); cache failures are logged and never fail the read path.
type SummaryCache interface {
	GetSummary(ctx context.Context) (*DashboardSummary, error)
	SetSummary(ctx context.Context, summary DashboardSummary) error
}

type Service struct {
	store   store.Store
	dir     directory.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Publisher
	cache   SummaryCache
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithSummaryCache(c SummaryCache) Option {
	return func(s *Service) { s.cache = c }
}

func New(st store.Store, dir directory.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		dir:    dir,
		logger: slog.Default(),
		tracer: otel.Tracer("ban-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BanDetails pairs a ban with its approval rows and, where a caller needs it,
// the person it applies to.
type BanDetails struct {
	Ban       *models.Ban
	Approvals []models.PlaceApproval
	Person    *directory.Person
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Emit(ctx, event)
}

func (s *Service) requireActor(ctx context.Context, actorID string) (*directory.Actor, error) {
	if actorID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing actor")
	}
	actor, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "actor not found")
		}
		return nil, fmt.Errorf("load actor: %w", err)
	}
	return actor, nil
}

// requirePlaceScoped enforces that managers and head managers operate from an
// assigned place. Admins carry no place and are exempt.
func requirePlaceScoped(actor *directory.Actor) error {
	switch actor.Role {
	case roles.Manager, roles.HeadManager:
		if actor.PlaceID == "" {
			return dErrors.New(dErrors.CodeForbidden, "your account has no assigned place")
		}
	}
	return nil
}

// isScopedRole reports whether the role sees bans through its place's city
// rather than globally.
func isScopedRole(r roles.Role) bool {
	switch r {
	case roles.Staff, roles.Manager, roles.HeadManager:
		return true
	}
	return false
}

func (s *Service) loadBan(ctx context.Context, banID string) (*models.Ban, error) {
	ban, err := s.store.GetBan(ctx, banID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "ban not found")
		}
		return nil, fmt.Errorf("load ban: %w", err)
	}
	return ban, nil
}

func approvalPlaceIDs(approvals []models.PlaceApproval) []string {
	out := make([]string, 0, len(approvals))
	for _, ap := range approvals {
		out = append(out, ap.PlaceID)
	}
	return out
}

func sortApprovals(approvals []models.PlaceApproval) {
	sort.Slice(approvals, func(i, j int) bool {
		return approvals[i].PlaceID < approvals[j].PlaceID
	})
}

func coversPlace(approvals []models.PlaceApproval, placeID string) bool {
	for _, ap := range approvals {
		if ap.PlaceID == placeID {
			return true
		}
	}
	return false
}

// requireCityOverlap allows the action only if the actor's place shares a
// city with at least one of the ban's places.
func (s *Service) requireCityOverlap(ctx context.Context, actor *directory.Actor, approvals []models.PlaceApproval) error {
	if actor.PlaceID == "" {
		return dErrors.New(dErrors.CodeForbidden, "your account has no assigned place")
	}
	own, err := s.dir.Place(ctx, actor.PlaceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeForbidden, "your assigned place no longer exists")
		}
		return fmt.Errorf("load actor place: %w", err)
	}
	if own.City == "" {
		return dErrors.New(dErrors.CodeForbidden, "your assigned place has no city")
	}
	places, err := s.dir.Places(ctx, approvalPlaceIDs(approvals))
	if err != nil {
		return fmt.Errorf("load ban places: %w", err)
	}
	for _, pl := range places {
		if pl.City == own.City {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "this ban does not involve your city")
}

// requireViewAccess gates per-ban reads. Scoped roles need a city overlap;
// global roles see everything.
func (s *Service) requireViewAccess(ctx context.Context, actor *directory.Actor, approvals []models.PlaceApproval) error {
	if !isScopedRole(actor.Role) {
		return nil
	}
	return s.requireCityOverlap(ctx, actor, approvals)
}
