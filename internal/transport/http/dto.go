package http

import (
	"time"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/models"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/service"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/directory"
)

type howLongDTO struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Days   int `json:"days"`
}

type policeReportDTO struct {
	Notified bool       `json:"notified"`
	Date     *time.Time `json:"date,omitempty"`
	Time     string     `json:"time,omitempty"`
	Event    string     `json:"event,omitempty"`
}

type banDTO struct {
	ID               string           `json:"id"`
	IncidentNumber   int64            `json:"incidentNumber"`
	PersonID         string           `json:"personId"`
	StartingDate     time.Time        `json:"startingDate"`
	EndingDate       *time.Time       `json:"endingDate,omitempty"`
	HowLong          howLongDTO       `json:"howLong"`
	Motives          []string         `json:"motives,omitempty"`
	PeopleInvolved   string           `json:"peopleInvolved,omitempty"`
	IncidentReport   string           `json:"incidentReport,omitempty"`
	ActionTaken      string           `json:"actionTaken,omitempty"`
	Police           *policeReportDTO `json:"policeReport,omitempty"`
	CreatedBy        string           `json:"createdBy"`
	LastModifiedBy   string           `json:"lastModifiedBy,omitempty"`
	RequiresApproval bool             `json:"requiresApproval"`
	ViolationsCount  int              `json:"violationsCount"`
	ViolationDates   []time.Time      `json:"violationDates,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

type approvalDTO struct {
	PlaceID    string     `json:"placeId"`
	Status     string     `json:"status"`
	ApprovedBy string     `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
}

type personDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"lastName,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

type banDetailsDTO struct {
	Ban       banDTO        `json:"ban"`
	Approvals []approvalDTO `json:"approvals"`
	Person    *personDTO    `json:"person,omitempty"`
}

type historyEntryDTO struct {
	ID          string         `json:"id"`
	BanID       string         `json:"banId"`
	Action      string         `json:"action"`
	PerformedBy string         `json:"performedBy"`
	PerformedAt time.Time      `json:"performedAt"`
	PlaceID     string         `json:"placeId,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

type activeBanRefDTO struct {
	BanID        string     `json:"banId"`
	PlaceID      string     `json:"placeId"`
	PlaceName    string     `json:"placeName,omitempty"`
	StartingDate time.Time  `json:"startingDate"`
	EndingDate   *time.Time `json:"endingDate,omitempty"`
}

type pendingPageDTO struct {
	Items   []banDetailsDTO `json:"items"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
	HasNext bool            `json:"hasNext"`
}

func toBanDTO(ban *models.Ban) banDTO {
	out := banDTO{
		ID:             ban.ID,
		IncidentNumber: ban.IncidentNumber,
		PersonID:       ban.PersonID,
		StartingDate:   ban.StartingDate,
		HowLong: howLongDTO{
			Years:  ban.HowLong.Years,
			Months: ban.HowLong.Months,
			Days:   ban.HowLong.Days,
		},
		Motives:          ban.Motives,
		PeopleInvolved:   ban.PeopleInvolved,
		IncidentReport:   ban.IncidentReport,
		ActionTaken:      ban.ActionTaken,
		CreatedBy:        ban.CreatedByUserID,
		LastModifiedBy:   ban.LastModifiedByUserID,
		RequiresApproval: ban.RequiresApproval,
		ViolationsCount:  ban.ViolationsCount,
		ViolationDates:   ban.ViolationDates,
		CreatedAt:        ban.CreatedAt,
		UpdatedAt:        ban.UpdatedAt,
	}
	if !ban.EndingDate.IsZero() {
		end := ban.EndingDate
		out.EndingDate = &end
	}
	if ban.Police.Notified {
		out.Police = &policeReportDTO{
			Notified: true,
			Date:     ban.Police.Date,
			Time:     ban.Police.Time,
			Event:    ban.Police.Event,
		}
	}
	return out
}

func toApprovalDTOs(approvals []models.PlaceApproval) []approvalDTO {
	out := make([]approvalDTO, 0, len(approvals))
	for _, ap := range approvals {
		out = append(out, approvalDTO{
			PlaceID:    ap.PlaceID,
			Status:     string(ap.Status),
			ApprovedBy: ap.ApprovedByUserID,
			ApprovedAt: ap.ApprovedAt,
		})
	}
	return out
}

func toPersonDTO(p *directory.Person) *personDTO {
	if p == nil {
		return nil
	}
	return &personDTO{
		ID:       p.ID,
		Name:     p.Name,
		LastName: p.LastName,
		Nickname: p.Nickname,
		Gender:   p.Gender,
	}
}

func toBanDetailsDTO(details service.BanDetails) banDetailsDTO {
	return banDetailsDTO{
		Ban:       toBanDTO(details.Ban),
		Approvals: toApprovalDTOs(details.Approvals),
		Person:    toPersonDTO(details.Person),
	}
}

func toBanDetailsDTOs(items []service.BanDetails) []banDetailsDTO {
	out := make([]banDetailsDTO, 0, len(items))
	for _, d := range items {
		out = append(out, toBanDetailsDTO(d))
	}
	return out
}

func toHistoryDTOs(entries []models.HistoryEntry) []historyEntryDTO {
	out := make([]historyEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryDTO{
			ID:          e.ID,
			BanID:       e.BanID,
			Action:      string(e.Action),
			PerformedBy: e.PerformedByUserID,
			PerformedAt: e.PerformedAt,
			PlaceID:     e.PlaceID,
			Details:     e.Details,
		})
	}
	return out
}

func toActiveBanRefDTOs(refs []models.ActiveBanRef) []activeBanRefDTO {
	out := make([]activeBanRefDTO, 0, len(refs))
	for _, ref := range refs {
		dto := activeBanRefDTO{
			BanID:        ref.BanID,
			PlaceID:      ref.PlaceID,
			PlaceName:    ref.PlaceName,
			StartingDate: ref.StartingDate,
		}
		if !ref.EndingDate.IsZero() {
			end := ref.EndingDate
			dto.EndingDate = &end
		}
		out = append(out, dto)
	}
	return out
}
