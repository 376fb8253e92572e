package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volontulo/go-volontulo/internal/config"
	"github.com/volontulo/go-volontulo/internal/models"
)

type testData struct {
	Offer       *models.Offer
	User        *models.User
	Application *models.OfferApplication
}

func newTestData() testData {
	offer := models.NewOffer()
	offer.ID = 7
	offer.Title = "Sprzątanie parku"
	offer.Location = "Wrocław"
	offer.Organization = &models.Organization{ID: 1, Name: "Organization 2"}
	return testData{
		Offer: offer,
		User:  &models.User{ID: 2, Username: "organization2@example.com", Email: "organization2@example.com"},
		Application: &models.OfferApplication{
			Email:    "volunteer@example.com",
			PhoneNo:  "123",
			Fullname: "Jan Kowalski",
			Comments: "Mogę w weekendy",
		},
	}
}

func TestRenderAllTemplates(t *testing.T) {
	m, err := New(config.MailConfig{From: "noreply@example.com"}, make(chan Message, 1))
	require.NoError(t, err)
	defer m.Stop()

	for _, name := range []string{TmplOfferCreated, TmplOfferCreatedAdmin, TmplOfferApplication, TmplOfferApplicationConfirm} {
		t.Run(name, func(t *testing.T) {
			msg, err := m.Render(name, []string{"a@example.com"}, newTestData())
			require.NoError(t, err)
			assert.Equal(t, "noreply@example.com", msg.From)
			assert.Contains(t, msg.Subject, "Sprzątanie parku")
			assert.NotContains(t, msg.Subject, "\n")
			assert.NotEmpty(t, msg.Body)
		})
	}
}

func TestApplicationBody(t *testing.T) {
	m, err := New(config.MailConfig{From: "noreply@example.com"}, make(chan Message, 1))
	require.NoError(t, err)
	defer m.Stop()

	msg, err := m.Render(TmplOfferApplication, []string{"org@example.com"}, newTestData())
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Jan Kowalski")
	assert.Contains(t, msg.Body, "volunteer@example.com")
	assert.Contains(t, msg.Body, "Mogę w weekendy")

	data := newTestData()
	data.Application.Comments = ""
	msg, err = m.Render(TmplOfferApplication, []string{"org@example.com"}, data)
	require.NoError(t, err)
	assert.NotContains(t, msg.Body, "Uwagi")
}

func TestNotifyOutbox(t *testing.T) {
	outbox := make(chan Message, 4)
	m, err := New(config.MailConfig{From: "noreply@example.com"}, outbox)
	require.NoError(t, err)
	defer m.Stop()

	require.NoError(t, m.Notify(context.Background(), TmplOfferCreated, []string{"organization2@example.com"}, newTestData()))
	require.Len(t, outbox, 1)
	msg := <-outbox
	assert.Equal(t, []string{"organization2@example.com"}, msg.To)

	// no recipients, nothing rendered or sent
	require.NoError(t, m.Notify(context.Background(), TmplOfferCreated, nil, newTestData()))
	assert.Len(t, outbox, 0)
}

func TestNotifyUnknownTemplate(t *testing.T) {
	m, err := New(config.MailConfig{}, make(chan Message, 1))
	require.NoError(t, err)
	defer m.Stop()
	assert.Error(t, m.Notify(context.Background(), "nope", []string{"a@example.com"}, newTestData()))
}

func TestNotifyDisabledOnlyLogs(t *testing.T) {
	m, err := New(config.MailConfig{Enabled: false}, nil)
	require.NoError(t, err)
	defer m.Stop()
	require.NoError(t, m.Notify(context.Background(), TmplOfferCreated, []string{"a@example.com"}, newTestData()))
	sent, failed := m.Stats()
	assert.Zero(t, sent)
	assert.Zero(t, failed)
}
