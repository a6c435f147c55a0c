// Package http exposes the ban workflow over REST. Handlers stay thin:
// decode, call the service, encode. All policy lives in the service layer.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/service"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Router assembles the API. Door-check endpoints are public; everything else
// requires a bearer token.
func (h *Handler) Router(jwtKey []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestScope)
	if h.logger != nil {
		r.Use(requestLogger(h.logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// pre-flight checks used by door scanners, no session required
	r.Post("/bans/check-places", h.checkActiveBansForPlaces)
	r.Get("/persons/{personId}/banned", h.isPersonBanned)

	r.Group(func(r chi.Router) {
		r.Use(authenticate(jwtKey))

		r.Route("/bans", func(r chi.Router) {
			r.Post("/", h.createBan)
			r.Get("/", h.listVisible)
			r.Get("/active/count", h.activeBanCount)
			r.Get("/pending/mine", h.pendingByCreator)
			r.Get("/pending/place", h.pendingForPlace)
			r.Post("/bulk-approve", h.bulkApprove)

			r.Route("/{banId}", func(r chi.Router) {
				r.Get("/", h.getBan)
				r.Patch("/", h.updateBan)
				r.Delete("/", h.removeBan)
				r.Get("/history", h.getHistory)
				r.Post("/violations", h.addViolation)
				r.Post("/places/{placeId}/approval", h.approvePlace)
			})
		})

		r.Get("/persons/{personId}/ban-stats", h.personBanStats)
		r.Get("/dashboard/summary", h.dashboardSummary)
	})

	return r
}
