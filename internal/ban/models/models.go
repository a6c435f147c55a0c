// Package models holds the ban aggregate: the Ban record, its per-place
// approval rows, and the append-only history trail. Relationships are
// expressed as ids resolved through stores, never embedded object graphs.
package models

import "time"

// ApprovalStatus is the per-place lifecycle state. There is no rejected
// status: rejecting a place deletes its row.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
)

// PlaceApproval is the join entity between a ban and one place. It is the
// only location where per-place authorization state lives; a ban has no
// single approved flag.
type PlaceApproval struct {
	BanID            string
	PlaceID          string
	Status           ApprovalStatus
	ApprovedByUserID string
	ApprovedAt       *time.Time
	RejectedByUserID string
	RejectedAt       *time.Time
}

// PoliceReport is only meaningful when Notified is true; setting Notified to
// false clears the other fields.
type PoliceReport struct {
	Notified bool
	Date     *time.Time
	Time     string
	Event    string
}

// Ban is the aggregate root of the workflow.
type Ban struct {
	ID             string
	IncidentNumber int64
	PersonID       string

	StartingDate time.Time
	EndingDate   time.Time
	HowLong      HowLong

	Motives        []string
	PeopleInvolved string
	IncidentReport string
	ActionTaken    string
	Police         PoliceReport

	CreatedByUserID      string
	LastModifiedByUserID string

	// RequiresApproval is raised when a plain manager changes the dates;
	// every approval row is forced back to pending at the same time.
	RequiresApproval bool

	ViolationsCount int
	ViolationDates  []time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the ban's time window contains now. This is
// independent of approval state. A zero EndingDate is treated as open-ended
// even though the workflow requires one on creation.
func (b *Ban) IsActive(now time.Time) bool {
	if b.StartingDate.After(now) {
		return false
	}
	return b.EndingDate.IsZero() || now.Before(b.EndingDate)
}

// HistoryAction tags a history entry.
type HistoryAction string

const (
	ActionCreated      HistoryAction = "created"
	ActionUpdated      HistoryAction = "updated"
	ActionApproved     HistoryAction = "approved"
	ActionRejected     HistoryAction = "rejected"
	ActionPlaceAdded   HistoryAction = "place_added"
	ActionPlaceRemoved HistoryAction = "place_removed"
	ActionDatesChanged HistoryAction = "dates_changed"
	ActionDeleted      HistoryAction = "deleted"
)

// HistoryEntry is an immutable record of one state transition. Entries are
// never mutated and survive deletion of the ban they describe.
type HistoryEntry struct {
	ID                string
	BanID             string
	Action            HistoryAction
	PerformedByUserID string
	PerformedAt       time.Time
	PlaceID           string // optional, set for per-place transitions
	Details           map[string]any
}

// ActiveBanRef names one approved, time-active ban at one place. Used by the
// creation/update conflict check and the pre-flight endpoint.
type ActiveBanRef struct {
	BanID        string
	PlaceID      string
	PlaceName    string
	StartingDate time.Time
	EndingDate   time.Time
	Status       ApprovalStatus
}

// SortOption orders ban listings. Sorting is a stable secondary concern and
// never changes which bans pass the visibility filter.
type SortOption string

const (
	SortViolationsDesc   SortOption = "violations-desc"
	SortViolationsAsc    SortOption = "violations-asc"
	SortStartingDateDesc SortOption = "starting-date-desc"
	SortStartingDateAsc  SortOption = "starting-date-asc"
	SortEndingDateDesc   SortOption = "ending-date-desc"
	SortEndingDateAsc    SortOption = "ending-date-asc"
	SortPersonNameAsc    SortOption = "person-name-asc"
	SortPersonNameDesc   SortOption = "person-name-desc"
)

// Normalize maps unknown input to the default ordering.
func (s SortOption) Normalize() SortOption {
	switch s {
	case SortViolationsAsc, SortStartingDateDesc, SortStartingDateAsc,
		SortEndingDateDesc, SortEndingDateAsc, SortPersonNameAsc, SortPersonNameDesc:
		return s
	default:
		return SortViolationsDesc
	}
}
