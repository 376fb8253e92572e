package web

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/volontulo/go-volontulo/internal/models"
)

// apiTimeLayout renders UTC times with a Z suffix and microseconds only when set
const apiTimeLayout = "2006-01-02T15:04:05.999999Z07:00"

func apiTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(apiTimeLayout)
	return &s
}

// linker builds absolute hyperlinks in the format of the current request
type linker struct {
	base   string
	suffix string
}

func newLinker(c *gin.Context) linker {
	scheme := "http"
	if isHTTPS(c) {
		scheme = "https"
	}
	l := linker{base: scheme + "://" + c.Request.Host, suffix: "/"}
	if strings.HasSuffix(c.Request.URL.Path, ".json") {
		l.suffix = ".json"
	}
	return l
}

func (l linker) url(collection string, id int64) string {
	return fmt.Sprintf("%s/api/%s/%d%s", l.base, collection, id, l.suffix)
}

type organizationJSON struct {
	URL         string `json:"url"`
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (l linker) organization(o *models.Organization) organizationJSON {
	return organizationJSON{
		URL:         l.url("organizations", o.ID),
		ID:          o.ID,
		Name:        o.Name,
		Address:     o.Address,
		Description: o.Description,
	}
}

func (l linker) organizations(list []*models.Organization) []organizationJSON {
	out := make([]organizationJSON, 0, len(list))
	for _, o := range list {
		out = append(out, l.organization(o))
	}
	return out
}

type userJSON struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func newUserJSON(u *models.User) userJSON {
	return userJSON{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// userDetailsJSON is the /rest-auth/user/ shape
type userDetailsJSON struct {
	PK        int64  `json:"pk"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func userDetails(u *models.User) userDetailsJSON {
	return userDetailsJSON{PK: u.ID, Username: u.Username, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

type galleryImageJSON struct {
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	IsAvatar bool   `json:"is_avatar"`
}

type profileJSON struct {
	URL             string             `json:"url"`
	ID              int64              `json:"id"`
	User            userJSON           `json:"user"`
	Organizations   []organizationJSON `json:"organizations"`
	IsAdministrator bool               `json:"is_administrator"`
	PhoneNo         string             `json:"phone_no"`
	Images          []galleryImageJSON `json:"images"`
}

func (l linker) profile(p *models.UserProfile) profileJSON {
	out := profileJSON{
		URL:             l.url("users_profiles", p.ID),
		ID:              p.ID,
		Organizations:   l.organizations(p.Organizations),
		IsAdministrator: p.IsAdministrator,
		PhoneNo:         p.PhoneNo,
		Images:          make([]galleryImageJSON, 0, len(p.Images)),
	}
	if p.User != nil {
		out.User = newUserJSON(p.User)
	}
	for _, img := range p.Images {
		out.Images = append(out.Images, galleryImageJSON{ID: img.ID, Image: img.Image, IsAvatar: img.IsAvatar})
	}
	return out
}

func (l linker) profiles(list []*models.UserProfile) []profileJSON {
	out := make([]profileJSON, 0, len(list))
	for _, p := range list {
		out = append(out, l.profile(p))
	}
	return out
}

// offerBodyJSON holds the columns shared by the read and write shapes
type offerBodyJSON struct {
	Description                 string  `json:"description"`
	Requirements                string  `json:"requirements"`
	TimeCommitment              string  `json:"time_commitment"`
	Benefits                    string  `json:"benefits"`
	Location                    string  `json:"location"`
	Title                       string  `json:"title"`
	StartedAt                   *string `json:"started_at"`
	FinishedAt                  *string `json:"finished_at"`
	TimePeriod                  string  `json:"time_period"`
	StatusOld                   string  `json:"status_old"`
	OfferStatus                 string  `json:"offer_status"`
	RecruitmentStatus           string  `json:"recruitment_status"`
	ActionStatus                string  `json:"action_status"`
	Votes                       bool    `json:"votes"`
	RecruitmentStartDate        *string `json:"recruitment_start_date"`
	RecruitmentEndDate          *string `json:"recruitment_end_date"`
	ReserveRecruitment          bool    `json:"reserve_recruitment"`
	ReserveRecruitmentStartDate *string `json:"reserve_recruitment_start_date"`
	ReserveRecruitmentEndDate   *string `json:"reserve_recruitment_end_date"`
	ActionOngoing               bool    `json:"action_ongoing"`
	ConstantCoop                bool    `json:"constant_coop"`
	ActionStartDate             *string `json:"action_start_date"`
	ActionEndDate               *string `json:"action_end_date"`
	VolunteersLimit             int     `json:"volunteers_limit"`
	Weight                      int     `json:"weight"`
}

func newOfferBody(o *models.Offer) offerBodyJSON {
	return offerBodyJSON{
		Description:                 o.Description,
		Requirements:                o.Requirements,
		TimeCommitment:              o.TimeCommitment,
		Benefits:                    o.Benefits,
		Location:                    o.Location,
		Title:                       o.Title,
		StartedAt:                   apiTime(o.StartedAt),
		FinishedAt:                  apiTime(o.FinishedAt),
		TimePeriod:                  o.TimePeriod,
		StatusOld:                   o.StatusOld,
		OfferStatus:                 o.OfferStatus,
		RecruitmentStatus:           o.RecruitmentStatus,
		ActionStatus:                o.ActionStatus,
		Votes:                       o.Votes,
		RecruitmentStartDate:        apiTime(o.RecruitmentStartDate),
		RecruitmentEndDate:          apiTime(o.RecruitmentEndDate),
		ReserveRecruitment:          o.ReserveRecruitment,
		ReserveRecruitmentStartDate: apiTime(o.ReserveRecruitmentStartDate),
		ReserveRecruitmentEndDate:   apiTime(o.ReserveRecruitmentEndDate),
		ActionOngoing:               o.ActionOngoing,
		ConstantCoop:                o.ConstantCoop,
		ActionStartDate:             apiTime(o.ActionStartDate),
		ActionEndDate:               apiTime(o.ActionEndDate),
		VolunteersLimit:             o.VolunteersLimit,
		Weight:                      o.Weight,
	}
}

type offerImageJSON struct {
	ID     int64  `json:"id"`
	Path   string `json:"path"`
	IsMain bool   `json:"is_main"`
}

// offerJSON is the read shape with nested organization and volunteers
type offerJSON struct {
	URL          string            `json:"url"`
	ID           int64             `json:"id"`
	Organization *organizationJSON `json:"organization"`
	Volunteers   []userJSON        `json:"volunteers"`
	offerBodyJSON
	Images []offerImageJSON `json:"images"`
}

func (l linker) offer(o *models.Offer) offerJSON {
	out := offerJSON{
		URL:           l.url("offers", o.ID),
		ID:            o.ID,
		Volunteers:    make([]userJSON, 0, len(o.Volunteers)),
		offerBodyJSON: newOfferBody(o),
		Images:        make([]offerImageJSON, 0, len(o.Images)),
	}
	if o.Organization != nil {
		org := l.organization(o.Organization)
		out.Organization = &org
	}
	for _, u := range o.Volunteers {
		out.Volunteers = append(out.Volunteers, newUserJSON(u))
	}
	for _, img := range o.Images {
		out.Images = append(out.Images, offerImageJSON{ID: img.ID, Path: img.Path, IsMain: img.IsMain})
	}
	return out
}

func (l linker) offers(list []*models.Offer) []offerJSON {
	out := make([]offerJSON, 0, len(list))
	for _, o := range list {
		out = append(out, l.offer(o))
	}
	return out
}

// offerWriteJSON is returned by create and update: relations as primary keys
type offerWriteJSON struct {
	URL          string  `json:"url"`
	ID           int64   `json:"id"`
	Organization int64   `json:"organization"`
	Volunteers   []int64 `json:"volunteers"`
	offerBodyJSON
}

func (l linker) offerWrite(o *models.Offer) offerWriteJSON {
	out := offerWriteJSON{
		URL:           l.url("offers", o.ID),
		ID:            o.ID,
		Organization:  o.OrganizationID,
		Volunteers:    make([]int64, 0, len(o.Volunteers)),
		offerBodyJSON: newOfferBody(o),
	}
	for _, u := range o.Volunteers {
		out.Volunteers = append(out.Volunteers, u.ID)
	}
	return out
}
