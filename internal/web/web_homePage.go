package web

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/volontulo/go-volontulo/internal/i18n"
	"github.com/volontulo/go-volontulo/internal/models"
	"github.com/volontulo/go-volontulo/internal/offers"
)

// homeOffersLimit is the number of offers teased on the home page
const homeOffersLimit = 6

// HomePageData represents data for the home page
type HomePageData struct {
	TemplateData
	Pages       []*models.Page
	Offers      []*models.Offer
	OffersCount int
}

func (s *WebServer) homePage(c *gin.Context) {
	data := HomePageData{TemplateData: s.getBaseTemplateData(c, "Volontulo")}

	pages, err := s.DB.GetPublishedPages()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, s.tr(c, i18n.MsgDatabaseError), err.Error())
		return
	}
	data.Pages = pages

	// offers are a teaser only, the page still renders without them
	list, total, err := s.Offers.List(offers.Viewer{}, offers.ListOptions{Limit: homeOffersLimit})
	if err != nil {
		log.Printf("[WEB]: home page offers: %v", err)
	}
	data.Offers, data.OffersCount = list, total

	s.renderTemplate(c, http.StatusOK, "home.html", data)
}
