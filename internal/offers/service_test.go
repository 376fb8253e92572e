package offers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volontulo/go-volontulo/internal/database"
	"github.com/volontulo/go-volontulo/internal/i18n"
	"github.com/volontulo/go-volontulo/internal/mailer"
	"github.com/volontulo/go-volontulo/internal/models"
)

type sentNotification struct {
	template string
	to       []string
	data     MailData
}

type fakeNotifier struct {
	mux  sync.Mutex
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, template string, to []string, data interface{}) error {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.sent = append(f.sent, sentNotification{template: template, to: to, data: data.(MailData)})
	return f.err
}

func (f *fakeNotifier) byTemplate(name string) []sentNotification {
	f.mux.Lock()
	defer f.mux.Unlock()
	var out []sentNotification
	for _, s := range f.sent {
		if s.template == name {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	db        *database.Database
	svc       *Service
	notifier  *fakeNotifier
	volunteer *models.UserProfile // no organization
	orgUser   *models.UserProfile // member of org
	admin     *models.UserProfile
	org       *models.Organization
	otherOrg  *models.Organization
	offer1    *models.Offer // published, volunteer joined
	offer2    *models.Offer // published, empty
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := database.DefaultDBConfig()
	cfg.DataDir = t.TempDir()
	cfg.CleanupInterval = 0
	db, err := database.OpenDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Shutdown() })

	f := &fixture{db: db, notifier: &fakeNotifier{}}
	mk := func(name string, admin bool) *models.UserProfile {
		p, err := db.CreateUser(&models.User{Username: name, Email: name, PasswordHash: "x"}, admin, "")
		require.NoError(t, err)
		return p
	}
	f.volunteer = mk("volunteer2@example.com", false)
	f.orgUser = mk("organization2@example.com", false)
	f.admin = mk("admin_user@example.com", true)

	f.org = &models.Organization{Name: "Organization 2"}
	require.NoError(t, db.CreateOrganization(f.org))
	require.NoError(t, db.AddOrganizationMember(f.org.ID, f.orgUser.ID))
	f.otherOrg = &models.Organization{Name: "Organization 1", Address: "Organization 1 address"}
	require.NoError(t, db.CreateOrganization(f.otherOrg))

	started := time.Date(2015, 10, 5, 9, 10, 11, 0, time.UTC)
	finished := time.Date(2015, 12, 12, 12, 13, 14, 0, time.UTC)
	mkOffer := func(n string) *models.Offer {
		o := models.NewOffer()
		o.OrganizationID = f.org.ID
		o.Title = "Title " + n
		o.Description = "Description " + n
		o.Requirements = "Requirements " + n
		o.TimeCommitment = "Time commitment " + n
		o.Benefits = "Benefits " + n
		o.Location = "Location " + n
		o.TimePeriod = "Time period " + n
		o.StartedAt = &started
		o.FinishedAt = &finished
		o.StatusOld = models.StatusOldActive
		o.OfferStatus = models.OfferStatusPublished
		o.Votes = true
		o.ReserveRecruitment = true
		require.NoError(t, db.CreateOffer(o, f.orgUser.UserID, "fixture"))
		return o
	}
	f.offer1 = mkOffer("1")
	f.offer2 = mkOffer("2")
	require.NoError(t, db.AddOfferVolunteer(f.offer1.ID, f.volunteer.UserID, "fixture"))

	f.svc = NewService(db, f.notifier, []string{"moderator@example.com"})
	return f
}

func (f *fixture) viewer(p *models.UserProfile) Viewer {
	return Viewer{UserID: p.UserID, IsAdmin: p.IsAdministrator}
}

func formInput(kv ...string) Input {
	form := map[string][]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		form[kv[i]] = []string{kv[i+1]}
	}
	return FormInput(form)
}

func createForm(orgID string) Input {
	return formInput(
		"title", "API created offer",
		"time_commitment", "API time commitment",
		"benefits", "API benefits",
		"location", "API location",
		"description", "API description",
		"organization", orgID,
	)
}

func TestListVisibility(t *testing.T) {
	f := newFixture(t)
	hidden := models.NewOffer()
	hidden.OrganizationID = f.org.ID
	hidden.Title = "Hidden"
	require.NoError(t, f.db.CreateOffer(hidden, f.orgUser.UserID, "fixture"))

	list, total, err := f.svc.List(Viewer{}, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, f.offer1.ID, list[0].ID)
	assert.Equal(t, f.offer2.ID, list[1].ID)

	list, total, err = f.svc.List(f.viewer(f.admin), ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, list, 3)

	// volunteer filter
	list, _, err = f.svc.List(Viewer{}, ListOptions{VolunteerUserID: f.volunteer.UserID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Title 1", list[0].Title)
	require.Len(t, list[0].Volunteers, 1)
	assert.Equal(t, "volunteer2@example.com", list[0].Volunteers[0].Username)

	// a user's organization offers are listed in full, whoever asks
	for _, v := range []Viewer{f.viewer(f.orgUser), {}, f.viewer(f.volunteer)} {
		list, total, err = f.svc.List(v, ListOptions{MemberUserID: f.orgUser.UserID})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, list, 3)
	}

	// paging
	list, total, err = f.svc.List(Viewer{}, ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 1)
	assert.Equal(t, f.offer2.ID, list[0].ID)
}

func TestCanEdit(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		viewer Viewer
		id     int64
		want   bool
	}{
		{"anonymous", Viewer{}, f.offer2.ID, false},
		{"volunteer", f.viewer(f.volunteer), f.offer2.ID, false},
		{"member", f.viewer(f.orgUser), f.offer2.ID, true},
		{"admin", f.viewer(f.admin), f.offer2.ID, true},
		{"unknown offer", f.viewer(f.admin), 9999, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.svc.CanEdit(tt.viewer, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.viewer(f.admin), createForm("1"))
	assert.ErrorIs(t, err, ErrAdminCannotCreate)

	_, err = f.svc.Create(ctx, f.viewer(f.volunteer), createForm("1"))
	assert.ErrorIs(t, err, ErrNoOrganization)

	o, err := f.svc.Create(ctx, f.viewer(f.orgUser), createForm("1"))
	require.NoError(t, err)
	assert.Equal(t, "API created offer", o.Title)
	assert.Equal(t, models.OfferStatusUnpublished, o.OfferStatus)
	assert.Equal(t, models.StatusOldNew, o.StatusOld)
	assert.Equal(t, models.RecruitmentOpen, o.RecruitmentStatus)
	assert.Equal(t, models.ActionOngoing, o.ActionStatus)
	assert.Empty(t, o.Requirements)
	assert.False(t, o.Votes)
	assert.Nil(t, o.StartedAt)
	assert.Empty(t, o.Volunteers)
	require.NotNil(t, o.Organization)
	assert.Equal(t, "Organization 2", o.Organization.Name)

	history, err := f.db.GetOfferHistory(o.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.HistoryActionCreate, history[0].Action)

	creator := f.notifier.byTemplate(mailer.TmplOfferCreated)
	require.Len(t, creator, 1)
	assert.Equal(t, []string{"organization2@example.com"}, creator[0].to)
	admins := f.notifier.byTemplate(mailer.TmplOfferCreatedAdmin)
	require.Len(t, admins, 1)
	assert.Equal(t, []string{"moderator@example.com", "admin_user@example.com"}, admins[0].to)
	assert.Equal(t, o.ID, admins[0].data.Offer.ID)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.viewer(f.orgUser)

	_, err := f.svc.Create(ctx, v, formInput("title", "Only title"))
	errs, ok := AsFieldErrors(err)
	require.True(t, ok)
	for _, field := range []string{"organization", "description", "time_commitment", "benefits", "location"} {
		assert.True(t, errs.Has(field), field)
		assert.Equal(t, i18n.MsgRequired, errs[field][0].Key)
	}
	assert.False(t, errs.Has("title"))

	in := createForm("1")
	in.Values["title"] = string(make([]rune, models.OfferTitleMaxLen+1))
	in.Values["offer_status"] = "bogus"
	in.Values["votes"] = "maybe"
	in.Values["volunteers_limit"] = "-1"
	in.Values["weight"] = "heavy"
	in.Values["started_at"] = "yesterday"
	_, err = f.svc.Create(ctx, v, in)
	errs, ok = AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, FieldError{Key: i18n.MsgMaxLength, Args: []interface{}{models.OfferTitleMaxLen}}, errs["title"][0])
	assert.Equal(t, FieldError{Key: i18n.MsgInvalidChoice, Args: []interface{}{"bogus"}}, errs["offer_status"][0])
	assert.Equal(t, i18n.MsgInvalidBoolean, errs["votes"][0].Key)
	assert.Equal(t, i18n.MsgMinValue, errs["volunteers_limit"][0].Key)
	assert.Equal(t, i18n.MsgInvalidInteger, errs["weight"][0].Key)
	assert.Equal(t, i18n.MsgInvalidDatetime, errs["started_at"][0].Key)

	_, err = f.svc.Create(ctx, v, createForm("999"))
	errs, ok = AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, FieldError{Key: i18n.MsgInvalidPK, Args: []interface{}{"999"}}, errs["organization"][0])

	// the organization exists, the user just does not belong to it
	other := fmt.Sprint(f.otherOrg.ID)
	_, err = f.svc.Create(ctx, v, createForm(other))
	errs, ok = AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, FieldError{Key: i18n.MsgNotMember, Args: []interface{}{other}}, errs["organization"][0])
	assert.Empty(t, f.notifier.byTemplate(mailer.TmplOfferCreated))
}

func TestCreateFromJSON(t *testing.T) {
	f := newFixture(t)
	in := Input{Values: map[string]interface{}{
		"title":           "JSON offer",
		"time_commitment": "2h",
		"benefits":        "fun",
		"location":        "Kraków",
		"description":     "desc",
		"organization":    float64(f.org.ID),
		"votes":           true,
		"weight":          float64(5),
		"action_end_date": "2016-01-02T03:04:05Z",
		"offer_status":    models.OfferStatusPublished,
	}}
	o, err := f.svc.Create(context.Background(), f.viewer(f.orgUser), in)
	require.NoError(t, err)
	assert.True(t, o.Votes)
	assert.Equal(t, 5, o.Weight)
	require.NotNil(t, o.ActionEndDate)
	assert.True(t, time.Date(2016, 1, 2, 3, 4, 5, 0, time.UTC).Equal(*o.ActionEndDate))
	// creation always lands in moderation
	assert.Equal(t, models.OfferStatusUnpublished, o.OfferStatus)
}

func TestUpdateFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := formInput(
		"title", "API edited offer updated",
		"time_commitment", "API time commitment updated",
		"benefits", "API benefits updated",
		"location", "API location updated",
		"description", "API description updated",
		"organization", "1",
	)

	_, err := f.svc.Update(ctx, f.viewer(f.volunteer), f.offer2.ID, in, false)
	assert.ErrorIs(t, err, ErrEditForbidden)
	_, err = f.svc.Update(ctx, Viewer{}, f.offer2.ID, in, false)
	assert.ErrorIs(t, err, ErrEditForbidden)
	_, err = f.svc.Update(ctx, f.viewer(f.orgUser), 9999, in, false)
	assert.ErrorIs(t, err, ErrEditForbidden)

	for _, p := range []*models.UserProfile{f.orgUser, f.admin} {
		o, err := f.svc.Update(ctx, f.viewer(p), f.offer2.ID, in, false)
		require.NoError(t, err)
		assert.Equal(t, "API edited offer updated", o.Title)
		assert.Equal(t, "API benefits updated", o.Benefits)
		assert.Equal(t, "Requirements 2", o.Requirements)
		assert.Equal(t, models.StatusOldActive, o.StatusOld)
		assert.Equal(t, models.OfferStatusUnpublished, o.OfferStatus)
		// absent checkboxes of a full form post are cleared
		assert.False(t, o.Votes)
		assert.False(t, o.ReserveRecruitment)
		require.NotNil(t, o.FinishedAt)
		assert.True(t, time.Date(2015, 12, 12, 12, 13, 14, 0, time.UTC).Equal(*o.FinishedAt))
	}

	history, err := f.db.GetOfferHistory(f.offer2.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.HistoryActionChange, history[1].Action)
	assert.Contains(t, history[1].Message, "title")
}

func TestUpdatePartial(t *testing.T) {
	f := newFixture(t)
	in := formInput("title", "API edited offer updated", "location", "API location updated")
	o, err := f.svc.Update(context.Background(), f.viewer(f.orgUser), f.offer2.ID, in, true)
	require.NoError(t, err)
	assert.Equal(t, "API edited offer updated", o.Title)
	assert.Equal(t, "API location updated", o.Location)
	assert.Equal(t, "Benefits 2", o.Benefits)
	assert.True(t, o.Votes)
	assert.True(t, o.ReserveRecruitment)
	assert.Equal(t, models.OfferStatusUnpublished, o.OfferStatus)

	// invalid partial edits leave the offer untouched
	_, err = f.svc.Update(context.Background(), f.viewer(f.orgUser), f.offer1.ID, formInput("title", ""), true)
	errs, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, i18n.MsgBlank, errs["title"][0].Key)
	stored, err := f.db.GetOfferByID(f.offer1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusPublished, stored.OfferStatus)
	assert.Equal(t, "Title 1", stored.Title)
}

func TestJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.viewer(f.orgUser)
	app := &models.OfferApplication{
		Email:    "organization2@example.com",
		PhoneNo:  "123",
		Fullname: "Organization 2 User",
		Comments: "This is a comment",
	}

	err := f.svc.Join(ctx, v, f.offer2.ID, &models.OfferApplication{Email: "a@example.com", Fullname: "A"})
	errs, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, FieldErrors{"phone_no": {{Key: i18n.MsgRequired}}}, errs)

	assert.ErrorIs(t, f.svc.Join(ctx, v, 9999, app), ErrNotFound)

	require.NoError(t, f.svc.Join(ctx, v, f.offer2.ID, app))
	assert.ErrorIs(t, f.svc.Join(ctx, v, f.offer2.ID, app), ErrAlreadyApplied)

	o, err := f.db.GetOfferByID(f.offer2.ID)
	require.NoError(t, err)
	assert.True(t, o.HasVolunteer(f.orgUser.UserID))

	history, err := f.db.GetOfferHistory(f.offer2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HistoryActionJoin, history[len(history)-1].Action)

	members := f.notifier.byTemplate(mailer.TmplOfferApplication)
	require.Len(t, members, 1)
	assert.Equal(t, []string{"organization2@example.com"}, members[0].to)
	assert.Equal(t, "Organization 2 User", members[0].data.Application.Fullname)
	confirm := f.notifier.byTemplate(mailer.TmplOfferApplicationConfirm)
	require.Len(t, confirm, 1)
	assert.Equal(t, []string{"organization2@example.com"}, confirm[0].to)
}

func TestJoinNotifyFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	app := &models.OfferApplication{Email: "v@example.com", PhoneNo: "1", Fullname: "V"}
	require.NoError(t, f.svc.Join(context.Background(), f.viewer(f.volunteer), f.offer2.ID, app))
}

func TestValidateApplicationMaxLength(t *testing.T) {
	long := string(make([]byte, 81))
	errs := ValidateApplication(&models.OfferApplication{Email: long, PhoneNo: "1", Fullname: "x"})
	assert.Equal(t, FieldErrors{"email": {{Key: i18n.MsgMaxLength, Args: []interface{}{80}}}}, errs)
	assert.Nil(t, ValidateApplication(&models.OfferApplication{Email: "e", PhoneNo: "1", Fullname: "x"}))
}

func TestApplicationFromInput(t *testing.T) {
	app := ApplicationFromInput(formInput("email", " a@example.com ", "phone_no", "123", "fullname", "A B"))
	assert.Equal(t, "a@example.com", app.Email)
	assert.Equal(t, "123", app.PhoneNo)
	assert.Equal(t, "A B", app.Fullname)
	assert.Empty(t, app.Comments)
}
