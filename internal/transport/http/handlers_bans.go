package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/service"
	dErrors "github.com/matiasgallardo196/multiPlatformVenue-back/pkg/domain-errors"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/requestcontext"
)

type createBanBody struct {
	PersonID       string           `json:"personId"`
	PlaceIDs       []string         `json:"placeIds"`
	IncidentNumber int64            `json:"incidentNumber"`
	StartingDate   time.Time        `json:"startingDate"`
	EndingDate     time.Time        `json:"endingDate"`
	Motives        []string         `json:"motives"`
	PeopleInvolved string           `json:"peopleInvolved"`
	IncidentReport string           `json:"incidentReport"`
	ActionTaken    string           `json:"actionTaken"`
	Police         *policeReportDTO `json:"policeReport"`
}

func (h *Handler) createBan(w http.ResponseWriter, r *http.Request) {
	var body createBanBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	req := service.CreateBanRequest{
		PersonID:       body.PersonID,
		PlaceIDs:       body.PlaceIDs,
		IncidentNumber: body.IncidentNumber,
		StartingDate:   body.StartingDate,
		EndingDate:     body.EndingDate,
		Motives:        body.Motives,
		PeopleInvolved: body.PeopleInvolved,
		IncidentReport: body.IncidentReport,
		ActionTaken:    body.ActionTaken,
	}
	if body.Police != nil {
		req.Police = models.PoliceReport{
			Notified: body.Police.Notified,
			Date:     body.Police.Date,
			Time:     body.Police.Time,
			Event:    body.Police.Event,
		}
	}

	result, err := h.svc.CreateBan(r.Context(), req, requestcontext.ActorID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Ban             banDTO        `json:"ban"`
		Approvals       []approvalDTO `json:"approvals"`
		SkippedPlaceIDs []string      `json:"skippedPlaceIds,omitempty"`
	}{
		Ban:             toBanDTO(result.Ban),
		Approvals:       toApprovalDTOs(result.Approvals),
		SkippedPlaceIDs: result.SkippedPlaceIDs,
	})
}

func (h *Handler) listVisible(w http.ResponseWriter, r *http.Request) {
	sortOpt := models.SortOption(r.URL.Query().Get("sortBy"))
	items, err := h.svc.ListVisible(r.Context(), requestcontext.ActorID(r.Context()), sortOpt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBanDetailsDTOs(items))
}

func (h *Handler) getBan(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.GetBan(r.Context(), chi.URLParam(r, "banId"), requestcontext.ActorID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBanDetailsDTO(*details))
}

type updateBanBody struct {
	IncidentNumber *int64           `json:"incidentNumber"`
	StartingDate   *time.Time       `json:"startingDate"`
	EndingDate     *time.Time       `json:"endingDate"`
	Motives        *[]string        `json:"motives"`
	PeopleInvolved *string          `json:"peopleInvolved"`
	IncidentReport *string          `json:"incidentReport"`
	ActionTaken    *string          `json:"actionTaken"`
	Police         *policeReportDTO `json:"policeReport"`
	PlaceIDs       *[]string        `json:"placeIds"`
}

func (h *Handler) updateBan(w http.ResponseWriter, r *http.Request) {
	var body updateBanBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	req := service.UpdateBanRequest{
		IncidentNumber: body.IncidentNumber,
		StartingDate:   body.StartingDate,
		EndingDate:     body.EndingDate,
		Motives:        body.Motives,
		PeopleInvolved: body.PeopleInvolved,
		IncidentReport: body.IncidentReport,
		ActionTaken:    body.ActionTaken,
		PlaceIDs:       body.PlaceIDs,
	}
	if body.Police != nil {
		req.Police = &models.PoliceReport{
			Notified: body.Police.Notified,
			Date:     body.Police.Date,
			Time:     body.Police.Time,
			Event:    body.Police.Event,
		}
	}

	details, err := h.svc.UpdateBan(r.Context(), chi.URLParam(r, "banId"), req, requestcontext.ActorID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBanDetailsDTO(*details))
}

func (h *Handler) removeBan(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveBan(r.Context(), chi.URLParam(r, "banId"), requestcontext.ActorID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type approvalBody struct {
	Approved *bool `json:"approved"`
}

func (h *Handler) approvePlace(w http.ResponseWriter, r *http.Request) {
	var body approvalBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Approved == nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "approved is required"))
		return
	}
	err := h.svc.ApprovePlace(r.Context(),
		chi.URLParam(r, "banId"), chi.URLParam(r, "placeId"),
		*body.Approved, requestcontext.ActorID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkApproveBody struct {
	CreatedBy    string   `json:"createdBy"`
	Gender       string   `json:"gender"`
	BanIDs       []string `json:"bannedIds"`
	PlaceIDs     []string `json:"placeIds"`
	MaxBatchSize int      `json:"maxBatchSize"`
}

func (h *Handler) bulkApprove(w http.ResponseWriter, r *http.Request) {
	var body bulkApproveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	result, err := h.svc.BulkApprovePlaces(r.Context(), service.BulkApproveRequest{
		CreatedBy:    body.CreatedBy,
		Gender:       body.Gender,
		BanIDs:       body.BanIDs,
		PlaceIDs:     body.PlaceIDs,
		MaxBatchSize: body.MaxBatchSize,
	}, requestcontext.ActorID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) addViolation(w http.ResponseWriter, r *http.Request) {
	ban, err := h.svc.AddViolation(r.Context(), chi.URLParam(r, "banId"), requestcontext.ActorID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBanDTO(ban))
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	trail, err := h.svc.GetHistory(r.Context(), chi.URLParam(r, "banId"), requestcontext.ActorID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryDTOs(trail))
}

func (h *Handler) pendingByCreator(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.FindPendingByCreator(r.Context(), requestcontext.ActorID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBanDetailsDTOs(items))
}

func (h *Handler) pendingForPlace(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.PendingQuery{
		Search: q.Get("search"),
		Sort:   models.SortOption(q.Get("sortBy")),
	}
	if raw := q.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			query.Page = n
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			query.Limit = n
		}
	}

	page, err := h.svc.FindPendingApprovalsForPlace(r.Context(), requestcontext.ActorID(r.Context()), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pendingPageDTO{
		Items:   toBanDetailsDTOs(page.Items),
		Total:   page.Total,
		Page:    page.Page,
		Limit:   page.Limit,
		HasNext: page.HasNext,
	})
}
