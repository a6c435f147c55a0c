package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "github.com/matiasgallardo196/multiPlatformVenue-back/pkg/domain-errors"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/requestcontext"
)

type checkPlacesBody struct {
	PersonID string   `json:"personId"`
	PlaceIDs []string `json:"placeIds"`
}

func (h *Handler) checkActiveBansForPlaces(w http.ResponseWriter, r *http.Request) {
	var body checkPlacesBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	refs, err := h.svc.CheckActiveBansForPlaces(r.Context(), body.PersonID, body.PlaceIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Banned bool              `json:"banned"`
		Bans   []activeBanRefDTO `json:"bans"`
	}{
		Banned: len(refs) > 0,
		Bans:   toActiveBanRefDTOs(refs),
	})
}

func (h *Handler) isPersonBanned(w http.ResponseWriter, r *http.Request) {
	banned, err := h.svc.IsPersonBanned(r.Context(), chi.URLParam(r, "personId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Banned bool `json:"banned"`
	}{Banned: banned})
}

func (h *Handler) activeBanCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.ActiveBanCount(r.Context(), requestcontext.ActorID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Count int `json:"count"`
	}{Count: count})
}

func (h *Handler) personBanStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.PersonBanStats(r.Context(), chi.URLParam(r, "personId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) dashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.DashboardSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
