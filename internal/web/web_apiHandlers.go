package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/volontulo/go-volontulo/internal/database"
	"github.com/volontulo/go-volontulo/internal/i18n"
	"github.com/volontulo/go-volontulo/internal/models"
	"github.com/volontulo/go-volontulo/internal/offers"
)

func (s *WebServer) listOrganizations(c *gin.Context) {
	p, ok := parsePageRequest(c)
	if !ok {
		s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}
	var (
		orgs  []*models.Organization
		total int
		err   error
	)
	if p.Paged {
		orgs, total, err = s.DB.GetOrganizationsPaged(p.limit(), p.offset())
	} else {
		orgs, err = s.DB.GetAllOrganizations()
		total = len(orgs)
	}
	if err != nil {
		s.apiServerError(c, "organization list", err)
		return
	}
	s.respondList(c, p, newLinker(c).organizations(orgs), total)
}

func (s *WebServer) getOrganization(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}
	org, err := s.DB.GetOrganizationByID(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
			return
		}
		s.apiServerError(c, "organization lookup", err)
		return
	}
	c.JSON(http.StatusOK, newLinker(c).organization(org))
}

func (s *WebServer) listProfiles(c *gin.Context) {
	p, ok := parsePageRequest(c)
	if !ok {
		s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}
	var (
		profiles []*models.UserProfile
		total    int
		err      error
	)
	if p.Paged {
		profiles, total, err = s.DB.GetProfilesPaged(p.limit(), p.offset())
	} else {
		profiles, err = s.DB.GetAllProfiles()
		total = len(profiles)
	}
	if err != nil {
		s.apiServerError(c, "profile list", err)
		return
	}
	s.respondList(c, p, newLinker(c).profiles(profiles), total)
}

func (s *WebServer) getProfile(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}
	profile, err := s.DB.GetProfileByID(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
			return
		}
		s.apiServerError(c, "profile lookup", err)
		return
	}
	c.JSON(http.StatusOK, newLinker(c).profile(profile))
}

// listOffers returns the offers visible to the caller, optionally only
// those a user volunteered for (?user_id=)
func (s *WebServer) listOffers(c *gin.Context) {
	opts := offers.ListOptions{}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			// matches nothing, like an unknown id
			c.JSON(http.StatusOK, []offerJSON{})
			return
		}
		opts.VolunteerUserID = id
	}
	s.respondOffers(c, opts)
}

// listUserOffers returns offers of the organizations the user belongs to
func (s *WebServer) listUserOffers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}
	s.respondOffers(c, offers.ListOptions{MemberUserID: id})
}

func (s *WebServer) respondOffers(c *gin.Context, opts offers.ListOptions) {
	p, ok := parsePageRequest(c)
	if !ok {
		s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}
	opts.Limit, opts.Offset = p.limit(), p.offset()
	list, total, err := s.Offers.List(viewer(c), opts)
	if err != nil {
		s.apiServerError(c, "offer list", err)
		return
	}
	s.respondList(c, p, newLinker(c).offers(list), total)
}

func (s *WebServer) getOffer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}
	offer, err := s.Offers.Get(id)
	if err != nil {
		if errors.Is(err, offers.ErrNotFound) {
			s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
			return
		}
		s.apiServerError(c, "offer lookup", err)
		return
	}
	c.JSON(http.StatusOK, newLinker(c).offer(offer))
}

// createOffer stores a new offer of one of the caller's organizations
func (s *WebServer) createOffer(c *gin.Context) {
	in, ok := s.decodeInput(c)
	if !ok {
		return
	}
	offer, err := s.Offers.Create(c.Request.Context(), viewer(c), in)
	if err != nil {
		s.offerError(c, "offer create", err)
		return
	}
	out := newLinker(c).offerWrite(offer)
	c.Header("Location", out.URL)
	c.JSON(http.StatusCreated, out)
}

// updateOffer handles PUT (full) and PATCH (partial) edits
func (s *WebServer) updateOffer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		s.apiInfo(c, http.StatusNotFound, i18n.MsgEditForbidden)
		return
	}
	in, ok := s.decodeInput(c)
	if !ok {
		return
	}
	partial := c.Request.Method == http.MethodPatch
	offer, err := s.Offers.Update(c.Request.Context(), viewer(c), id, in, partial)
	if err != nil {
		s.offerError(c, "offer update", err)
		return
	}
	c.JSON(http.StatusOK, newLinker(c).offerWrite(offer))
}

// joinOffer registers the caller as a volunteer
func (s *WebServer) joinOffer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}
	in, ok := s.decodeInput(c)
	if !ok {
		return
	}
	app := offers.ApplicationFromInput(in)
	if err := s.Offers.Join(c.Request.Context(), viewer(c), id, app); err != nil {
		s.offerError(c, "offer join", err)
		return
	}
	s.apiInfo(c, http.StatusOK, i18n.MsgApplicationSent)
}

// offerError maps offer rule errors to API responses
func (s *WebServer) offerError(c *gin.Context, what string, err error) {
	if errs, ok := offers.AsFieldErrors(err); ok {
		s.apiFieldErrors(c, errs)
		return
	}
	switch {
	case errors.Is(err, offers.ErrAdminCannotCreate):
		s.apiInfo(c, http.StatusBadRequest, i18n.MsgAdminCannotCreate)
	case errors.Is(err, offers.ErrNoOrganization):
		s.apiInfo(c, http.StatusBadRequest, i18n.MsgNoOrganization)
	case errors.Is(err, offers.ErrEditForbidden):
		s.apiInfo(c, http.StatusNotFound, i18n.MsgEditForbidden)
	case errors.Is(err, offers.ErrAlreadyApplied):
		s.apiInfo(c, http.StatusBadRequest, i18n.MsgAlreadyApplied)
	case errors.Is(err, offers.ErrNotFound):
		s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
	default:
		s.apiServerError(c, what, err)
	}
}
