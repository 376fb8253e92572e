package main

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volontulo/go-volontulo/internal/database"
	"github.com/volontulo/go-volontulo/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func openTestDB(t *testing.T) *database.Database {
	t.Helper()
	cfg := database.DefaultDBConfig()
	cfg.DataDir = t.TempDir()
	cfg.CleanupInterval = 0
	db, err := database.OpenDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Shutdown() })
	return db
}

func TestCreateUserAndMembership(t *testing.T) {
	db := openTestDB(t)

	u := &models.User{Username: "jan@example.com", Email: "jan@example.com", FirstName: "Jan"}
	require.NoError(t, createNewUser(db, u, "secret1", false, "123"))
	assert.Error(t, createNewUser(db, &models.User{Username: "jan@example.com", Email: "x@example.com"}, "secret1", false, ""))
	assert.Error(t, createNewUser(db, &models.User{Username: "short", Email: "short@example.com"}, "abc", false, ""))

	stored, err := db.GetUserByUsername("jan@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))

	org := &models.Organization{Name: " Fundacja "}
	require.NoError(t, createOrganization(db, org))
	assert.Equal(t, "Fundacja", org.Name)
	assert.Error(t, createOrganization(db, &models.Organization{}))

	require.NoError(t, addOrganizationMember(db, org.ID, "jan@example.com"))
	assert.Error(t, addOrganizationMember(db, org.ID, "nobody@example.com"))

	member, err := db.IsOrganizationMember(org.ID, stored.ID)
	require.NoError(t, err)
	assert.True(t, member)

	require.NoError(t, setAdministrator(db, "jan@example.com", true))
	isAdmin, err := db.IsAdministrator(stored.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	require.NoError(t, updateUserPassword(db, "jan@example.com", "secret2"))
	stored, err = db.GetUserByUsername("jan@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret2")))
}

func TestModerateOffer(t *testing.T) {
	db := openTestDB(t)
	p, err := db.CreateUser(&models.User{Username: "org@example.com", Email: "org@example.com", PasswordHash: "x"}, false, "")
	require.NoError(t, err)
	org := &models.Organization{Name: "Org"}
	require.NoError(t, db.CreateOrganization(org))
	o := models.NewOffer()
	o.OrganizationID = org.ID
	o.Title = "Offer"
	require.NoError(t, db.CreateOffer(o, p.UserID, "created"))

	assert.Error(t, moderateOffer(db, o.ID, "bogus"))
	assert.ErrorIs(t, moderateOffer(db, 9999, models.OfferStatusPublished), database.ErrNotFound)
	require.NoError(t, moderateOffer(db, o.ID, models.OfferStatusPublished))

	got, err := db.GetOfferByID(o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusPublished, got.OfferStatus)
}

func TestConfirmAndTruncate(t *testing.T) {
	assert.True(t, confirm(bufio.NewReader(strings.NewReader("Yes\n"))))
	assert.True(t, confirm(bufio.NewReader(strings.NewReader("y\n"))))
	assert.False(t, confirm(bufio.NewReader(strings.NewReader("\n"))))
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
}

func TestContactAndTokens(t *testing.T) {
	db := openTestDB(t)
	u := &models.User{Username: "anna@example.com", Email: "anna@example.com"}
	require.NoError(t, createNewUser(db, u, "secret1", false, ""))
	require.NoError(t, createNewUser(db, &models.User{Username: "ola@example.com", Email: "ola@example.com"}, "secret1", false, ""))

	assert.Error(t, updateContact(db, "anna@example.com", "", ""))
	assert.Error(t, updateContact(db, "anna@example.com", "ola@example.com", ""))
	require.NoError(t, updateContact(db, "anna@example.com", "anna.nowak@example.com", "600100200"))

	stored, err := db.GetUserByUsername("anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, "anna.nowak@example.com", stored.Email)
	profile, err := db.GetProfileByUserID(stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "600100200", profile.PhoneNo)

	_, key, err := db.CreateAuthToken(stored.ID)
	require.NoError(t, err)
	require.NoError(t, revokeTokens(db, "anna@example.com"))
	_, err = db.ValidateAuthToken(key)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.Error(t, revokeTokens(db, "nobody@example.com"))

	require.NoError(t, listAllUsers(db))
}

func TestRemoveMemberAndDeleteOrganization(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, createNewUser(db, &models.User{Username: "jan@example.com", Email: "jan@example.com"}, "secret1", false, ""))
	user, err := db.GetUserByUsername("jan@example.com")
	require.NoError(t, err)

	org := &models.Organization{Name: "Fundacja"}
	require.NoError(t, createOrganization(db, org))
	require.NoError(t, addOrganizationMember(db, org.ID, "jan@example.com"))
	require.NoError(t, removeOrganizationMember(db, org.ID, "jan@example.com"))
	member, err := db.IsOrganizationMember(org.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, member)
	assert.Error(t, removeOrganizationMember(db, 0, "jan@example.com"))

	// anything but yes keeps the organization
	require.NoError(t, deleteOrganization(db, org.ID, bufio.NewReader(strings.NewReader("n\n"))))
	_, err = db.GetOrganizationByID(org.ID)
	require.NoError(t, err)

	require.NoError(t, deleteOrganization(db, org.ID, bufio.NewReader(strings.NewReader("y\n"))))
	_, err = db.GetOrganizationByID(org.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.Error(t, deleteOrganization(db, org.ID, bufio.NewReader(strings.NewReader("y\n"))))
}
