package models

import "time"

// Legacy offer status
const (
	StatusOldNew       = "NEW"
	StatusOldActive    = "ACTIVE"
	StatusOldSuspended = "SUSPENDED"
)

// Publication status
const (
	OfferStatusUnpublished = "unpublished"
	OfferStatusPublished   = "published"
	OfferStatusRejected    = "rejected"
)

// Recruitment status
const (
	RecruitmentOpen         = "open"
	RecruitmentSupplemental = "supplemental"
	RecruitmentClosed       = "closed"
)

// Action status
const (
	ActionFuture   = "future"
	ActionOngoing  = "ongoing"
	ActionFinished = "finished"
)

var (
	StatusOldChoices   = []string{StatusOldNew, StatusOldActive, StatusOldSuspended}
	OfferStatusChoices = []string{OfferStatusUnpublished, OfferStatusPublished, OfferStatusRejected}
	RecruitmentChoices = []string{RecruitmentOpen, RecruitmentSupplemental, RecruitmentClosed}
	ActionChoices      = []string{ActionFuture, ActionOngoing, ActionFinished}
)

// Field length limits
const (
	OfferTitleMaxLen      = 150
	OfferLocationMaxLen   = 255
	OfferTimePeriodMaxLen = 150
)

// Offer represents a volunteering offer published by an organization
type Offer struct {
	ID                          int64      `json:"id" db:"id"`
	OrganizationID              int64      `json:"organization_id" db:"organization_id"`
	Title                       string     `json:"title" db:"title"`
	Description                 string     `json:"description" db:"description"`
	Requirements                string     `json:"requirements" db:"requirements"`
	TimeCommitment              string     `json:"time_commitment" db:"time_commitment"`
	Benefits                    string     `json:"benefits" db:"benefits"`
	Location                    string     `json:"location" db:"location"`
	StartedAt                   *time.Time `json:"started_at" db:"started_at"`
	FinishedAt                  *time.Time `json:"finished_at" db:"finished_at"`
	TimePeriod                  string     `json:"time_period" db:"time_period"`
	StatusOld                   string     `json:"status_old" db:"status_old"`
	OfferStatus                 string     `json:"offer_status" db:"offer_status"`
	RecruitmentStatus           string     `json:"recruitment_status" db:"recruitment_status"`
	ActionStatus                string     `json:"action_status" db:"action_status"`
	Votes                       bool       `json:"votes" db:"votes"`
	RecruitmentStartDate        *time.Time `json:"recruitment_start_date" db:"recruitment_start_date"`
	RecruitmentEndDate          *time.Time `json:"recruitment_end_date" db:"recruitment_end_date"`
	ReserveRecruitment          bool       `json:"reserve_recruitment" db:"reserve_recruitment"`
	ReserveRecruitmentStartDate *time.Time `json:"reserve_recruitment_start_date" db:"reserve_recruitment_start_date"`
	ReserveRecruitmentEndDate   *time.Time `json:"reserve_recruitment_end_date" db:"reserve_recruitment_end_date"`
	ActionOngoing               bool       `json:"action_ongoing" db:"action_ongoing"`
	ConstantCoop                bool       `json:"constant_coop" db:"constant_coop"`
	ActionStartDate             *time.Time `json:"action_start_date" db:"action_start_date"`
	ActionEndDate               *time.Time `json:"action_end_date" db:"action_end_date"`
	VolunteersLimit             int        `json:"volunteers_limit" db:"volunteers_limit"`
	Weight                      int        `json:"weight" db:"weight"`

	Organization *Organization `json:"organization" db:"-"`
	Volunteers   []*User       `json:"volunteers" db:"-"`
	Images       []*OfferImage `json:"images" db:"-"`
}

// OfferImage is an image attached to an offer
type OfferImage struct {
	ID      int64  `json:"id" db:"id"`
	OfferID int64  `json:"-" db:"offer_id"`
	Path    string `json:"path" db:"path"`
	IsMain  bool   `json:"is_main" db:"is_main"`
}

// NewOffer returns an offer with the model defaults applied
func NewOffer() *Offer {
	return &Offer{
		StatusOld:         StatusOldNew,
		OfferStatus:       OfferStatusUnpublished,
		RecruitmentStatus: RecruitmentOpen,
		ActionStatus:      ActionOngoing,
	}
}

// Unpublish moves the offer back to the moderation queue
func (o *Offer) Unpublish() {
	o.OfferStatus = OfferStatusUnpublished
}

// IsPublic reports whether anonymous visitors may see the offer in listings
func (o *Offer) IsPublic() bool {
	if o.OfferStatus != OfferStatusPublished {
		return false
	}
	if o.ActionStatus != ActionFuture && o.ActionStatus != ActionOngoing {
		return false
	}
	return o.RecruitmentStatus == RecruitmentOpen || o.RecruitmentStatus == RecruitmentSupplemental
}

// HasVolunteer reports whether the user already joined the offer
func (o *Offer) HasVolunteer(userID int64) bool {
	for _, v := range o.Volunteers {
		if v.ID == userID {
			return true
		}
	}
	return false
}

// IsChoice reports whether value is one of choices
func IsChoice(value string, choices []string) bool {
	for _, c := range choices {
		if c == value {
			return true
		}
	}
	return false
}
