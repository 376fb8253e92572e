// Package offers implements the offer rules: listing visibility, edit
// permissions, creation, editing and joining, plus the follow-up actions
// (history entries and e-mail notifications) those operations trigger.
package offers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/volontulo/go-volontulo/internal/database"
	"github.com/volontulo/go-volontulo/internal/i18n"
	"github.com/volontulo/go-volontulo/internal/mailer"
	"github.com/volontulo/go-volontulo/internal/models"
)

// Store is the persistence the service needs; *database.Database satisfies it
type Store interface {
	GetOffers(f database.OfferFilter) ([]*models.Offer, error)
	CountOffers(f database.OfferFilter) (int, error)
	GetOfferByID(id int64) (*models.Offer, error)
	CreateOffer(o *models.Offer, userID int64, message string) error
	UpdateOffer(o *models.Offer, userID int64, message string) error
	AddOfferVolunteer(offerID, userID int64, message string) error
	GetOrganizationByID(id int64) (*models.Organization, error)
	GetProfileByUserID(userID int64) (*models.UserProfile, error)
	IsOrganizationMember(orgID, userID int64) (bool, error)
	GetOrganizationMemberEmails(orgID int64) ([]string, error)
	GetAdministratorEmails() ([]string, error)
	GetUserByID(id int64) (*models.User, error)
}

// Notifier sends templated notifications
type Notifier interface {
	Notify(ctx context.Context, template string, to []string, data interface{}) error
}

// Viewer identifies who performs an operation. UserID 0 is anonymous.
type Viewer struct {
	UserID  int64
	IsAdmin bool
}

// Authenticated reports whether the viewer is logged in
func (v Viewer) Authenticated() bool {
	return v.UserID > 0
}

// MailData is passed to notification templates
type MailData struct {
	Offer       *models.Offer
	User        *models.User
	Application *models.OfferApplication
}

// Service implements the offer operations
type Service struct {
	store       Store
	notifier    Notifier
	adminEmails []string
}

// NewService wires the store and notifier. adminEmails are notified next to
// the administrators found in the database.
func NewService(store Store, notifier Notifier, adminEmails []string) *Service {
	return &Service{store: store, notifier: notifier, adminEmails: adminEmails}
}

// ListOptions narrows List
type ListOptions struct {
	VolunteerUserID int64 // offers the user joined
	MemberUserID    int64 // offers of the user's organizations
	Limit           int
	Offset          int
}

// List returns the offers visible to the viewer and the total count.
// Administrators see every offer and everybody else sees public offers only.
// Listing by MemberUserID returns every offer of the user's organizations
// whoever asks.
func (s *Service) List(v Viewer, opts ListOptions) ([]*models.Offer, int, error) {
	f := database.OfferFilter{
		PublicOnly:      !v.IsAdmin && opts.MemberUserID == 0,
		VolunteerUserID: opts.VolunteerUserID,
		MemberUserID:    opts.MemberUserID,
		Limit:           opts.Limit,
		Offset:          opts.Offset,
	}
	total, err := s.store.CountOffers(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count offers: %w", err)
	}
	list, err := s.store.GetOffers(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list offers: %w", err)
	}
	return list, total, nil
}

// Get returns any offer by id
func (s *Service) Get(id int64) (*models.Offer, error) {
	o, err := s.store.GetOfferByID(id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	return o, err
}

// CanEdit reports whether the viewer may edit the offer with id.
// Unknown offers are never editable.
func (s *Service) CanEdit(v Viewer, id int64) (bool, error) {
	if !v.Authenticated() {
		return false, nil
	}
	o, err := s.store.GetOfferByID(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.canEdit(v, o)
}

func (s *Service) canEdit(v Viewer, o *models.Offer) (bool, error) {
	if v.IsAdmin {
		return true, nil
	}
	return s.store.IsOrganizationMember(o.OrganizationID, v.UserID)
}

// Create validates the input and stores a new unpublished offer.
// Administrators cannot create offers and users need an organization.
func (s *Service) Create(ctx context.Context, v Viewer, in Input) (*models.Offer, error) {
	if v.IsAdmin {
		return nil, ErrAdminCannotCreate
	}
	profile, err := s.store.GetProfileByUserID(v.UserID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if profile == nil || len(profile.Organizations) == 0 {
		return nil, ErrNoOrganization
	}

	o := models.NewOffer()
	errs := FieldErrors{}
	s.applyOrganization(o, in, false, profile, errs)
	applyFields(o, in, false, errs)
	if len(errs) > 0 {
		return nil, errs
	}
	// new offers wait for moderation; a requested offer_status is validated
	// above but never stored on create
	o.Unpublish()

	if err := s.store.CreateOffer(o, v.UserID, "offer created"); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			errs.Add("organization", i18n.MsgInvalidPK, fmt.Sprint(o.OrganizationID))
			return nil, errs
		}
		return nil, err
	}
	log.Printf("[OFFERS] user %d created offer %d %q", v.UserID, o.ID, o.Title)

	created, err := s.store.GetOfferByID(o.ID)
	if err != nil {
		return nil, err
	}
	s.postCreate(ctx, v, created)
	return created, nil
}

// applyOrganization validates the organization key. Regular users may only
// pick one of their own organizations.
func (s *Service) applyOrganization(o *models.Offer, in Input, partial bool, profile *models.UserProfile, errs FieldErrors) bool {
	id, ok := organizationID(in, partial, errs)
	if !ok {
		return false
	}
	raw := fmt.Sprint(id)
	if _, err := s.store.GetOrganizationByID(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			errs.Add("organization", i18n.MsgInvalidPK, raw)
			return false
		}
		errs.Add(NonFieldErrors, err.Error())
		return false
	}
	if profile != nil && !profile.IsAdministrator {
		member := false
		for _, org := range profile.Organizations {
			if org.ID == id {
				member = true
				break
			}
		}
		if !member {
			errs.Add("organization", i18n.MsgNotMember, raw)
			return false
		}
	}
	if o.OrganizationID == id {
		return false
	}
	o.OrganizationID = id
	return true
}

// Update edits an offer. partial selects PATCH semantics. Every accepted
// edit sends the offer back to moderation and is recorded in its history.
func (s *Service) Update(ctx context.Context, v Viewer, id int64, in Input, partial bool) (*models.Offer, error) {
	if !v.Authenticated() {
		return nil, ErrEditForbidden
	}
	o, err := s.store.GetOfferByID(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEditForbidden
		}
		return nil, err
	}
	allowed, err := s.canEdit(v, o)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrEditForbidden
	}

	profile, err := s.store.GetProfileByUserID(v.UserID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if profile == nil {
		profile = &models.UserProfile{UserID: v.UserID, IsAdministrator: v.IsAdmin}
	}

	errs := FieldErrors{}
	var changed []string
	if s.applyOrganization(o, in, partial, profile, errs) {
		changed = append(changed, "organization")
	}
	changed = append(changed, applyFields(o, in, partial, errs)...)
	if len(errs) > 0 {
		return nil, errs
	}
	o.Unpublish()

	message := "offer changed"
	if len(changed) > 0 {
		message += ": " + strings.Join(changed, ", ")
	}
	if err := s.store.UpdateOffer(o, v.UserID, message); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEditForbidden
		}
		return nil, err
	}
	log.Printf("[OFFERS] user %d updated offer %d (%s)", v.UserID, o.ID, message)
	return s.store.GetOfferByID(o.ID)
}

// Join registers the viewer as a volunteer of the offer and notifies the
// organization and the applicant.
func (s *Service) Join(ctx context.Context, v Viewer, id int64, app *models.OfferApplication) error {
	if errs := ValidateApplication(app); len(errs) > 0 {
		return errs
	}
	o, err := s.store.GetOfferByID(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if o.HasVolunteer(v.UserID) {
		return ErrAlreadyApplied
	}

	message := fmt.Sprintf("%s <%s> %s", app.Fullname, app.Email, app.PhoneNo)
	if err := s.store.AddOfferVolunteer(o.ID, v.UserID, message); err != nil {
		switch {
		case errors.Is(err, database.ErrAlreadyVolunteer):
			return ErrAlreadyApplied
		case errors.Is(err, database.ErrNotFound):
			return ErrNotFound
		}
		return err
	}
	log.Printf("[OFFERS] user %d joined offer %d", v.UserID, o.ID)
	s.postJoin(ctx, v, o, app)
	return nil
}

func (s *Service) postCreate(ctx context.Context, v Viewer, o *models.Offer) {
	user, err := s.store.GetUserByID(v.UserID)
	if err != nil {
		log.Printf("[OFFERS] offer %d: failed to load creator %d: %v", o.ID, v.UserID, err)
		return
	}
	data := MailData{Offer: o, User: user}
	if user.Email != "" {
		s.notify(ctx, mailer.TmplOfferCreated, []string{user.Email}, data)
	}
	s.notify(ctx, mailer.TmplOfferCreatedAdmin, s.administrators(), data)
}

func (s *Service) postJoin(ctx context.Context, v Viewer, o *models.Offer, app *models.OfferApplication) {
	user, err := s.store.GetUserByID(v.UserID)
	if err != nil {
		log.Printf("[OFFERS] offer %d: failed to load volunteer %d: %v", o.ID, v.UserID, err)
		return
	}
	data := MailData{Offer: o, User: user, Application: app}

	members, err := s.store.GetOrganizationMemberEmails(o.OrganizationID)
	if err != nil {
		log.Printf("[OFFERS] offer %d: failed to load organization members: %v", o.ID, err)
	}
	s.notify(ctx, mailer.TmplOfferApplication, members, data)
	s.notify(ctx, mailer.TmplOfferApplicationConfirm, []string{app.Email}, data)
}

// administrators merges the configured and the database administrators
func (s *Service) administrators() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(list []string) {
		for _, addr := range list {
			key := strings.ToLower(strings.TrimSpace(addr))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, addr)
		}
	}
	add(s.adminEmails)
	dbAdmins, err := s.store.GetAdministratorEmails()
	if err != nil {
		log.Printf("[OFFERS] failed to load administrator e-mails: %v", err)
	}
	add(dbAdmins)
	return out
}

// notify logs delivery failures without failing the caller
func (s *Service) notify(ctx context.Context, tmpl string, to []string, data MailData) {
	if s.notifier == nil || len(to) == 0 {
		return
	}
	if err := s.notifier.Notify(ctx, tmpl, to, data); err != nil {
		log.Printf("[OFFERS] notification %s to %v failed: %v", tmpl, to, err)
	}
}
