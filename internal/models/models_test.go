package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOfferDefaults(t *testing.T) {
	o := NewOffer()
	assert.Equal(t, StatusOldNew, o.StatusOld)
	assert.Equal(t, OfferStatusUnpublished, o.OfferStatus)
	assert.Equal(t, RecruitmentOpen, o.RecruitmentStatus)
	assert.Equal(t, ActionOngoing, o.ActionStatus)
	assert.Zero(t, o.Weight)
	assert.Zero(t, o.VolunteersLimit)
}

func TestOfferIsPublic(t *testing.T) {
	testCases := []struct {
		name        string
		offer       Offer
		expectedVis bool
	}{
		{"published ongoing open", Offer{OfferStatus: "published", ActionStatus: "ongoing", RecruitmentStatus: "open"}, true},
		{"published future supplemental", Offer{OfferStatus: "published", ActionStatus: "future", RecruitmentStatus: "supplemental"}, true},
		{"unpublished", Offer{OfferStatus: "unpublished", ActionStatus: "ongoing", RecruitmentStatus: "open"}, false},
		{"finished action", Offer{OfferStatus: "published", ActionStatus: "finished", RecruitmentStatus: "open"}, false},
		{"closed recruitment", Offer{OfferStatus: "published", ActionStatus: "ongoing", RecruitmentStatus: "closed"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedVis, tc.offer.IsPublic())
		})
	}
}

func TestOfferUnpublishAndVolunteers(t *testing.T) {
	o := Offer{OfferStatus: OfferStatusPublished, Volunteers: []*User{{ID: 4}}}
	o.Unpublish()
	assert.Equal(t, OfferStatusUnpublished, o.OfferStatus)
	assert.True(t, o.HasVolunteer(4))
	assert.False(t, o.HasVolunteer(5))
}

func TestPageSlug(t *testing.T) {
	p := Page{Title: "  O nas: Fundacja & Wolontariat 2024 "}
	assert.Equal(t, "o-nas-fundacja-wolontariat-2024", p.Slug())
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "jan@example.com", (&User{Username: "jan@example.com"}).FullName())
	assert.Equal(t, "Jan Kowalski", (&User{Username: "x", FirstName: "Jan", LastName: "Kowalski"}).FullName())
}

func TestNewPaginationInfo(t *testing.T) {
	p := NewPaginationInfo(2, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = NewPaginationInfo(1, 10, 0)
	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasNext)
}
