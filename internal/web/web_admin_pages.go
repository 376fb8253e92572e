package web

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/volontulo/go-volontulo/internal/database"
	"github.com/volontulo/go-volontulo/internal/i18n"
	"github.com/volontulo/go-volontulo/internal/models"
)

// Static content pages management

// pageTitleMaxLen bounds Page.Title
const pageTitleMaxLen = 255

// PagesListData represents data for the page list
type PagesListData struct {
	TemplateData
	Pages []*models.Page
}

// PageFormData represents data for the create and edit form
type PageFormData struct {
	TemplateData
	Page   *models.Page
	Action string
	Errors map[string]string
}

// PageDetailData represents data for a single page
type PageDetailData struct {
	TemplateData
	Page *models.Page
}

// pagesList lists every page, published or not
func (s *WebServer) pagesList(c *gin.Context) {
	pages, err := s.DB.GetAllPages()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, s.tr(c, i18n.MsgDatabaseError), err.Error())
		return
	}
	data := PagesListData{
		TemplateData: s.getBaseTemplateData(c, s.tr(c, i18n.MsgTitlePages)),
		Pages:        pages,
	}
	s.renderTemplate(c, http.StatusOK, "pages_list.html", data)
}

// pageDetail shows a page; unpublished pages are visible to administrators only
func (s *WebServer) pageDetail(c *gin.Context) {
	page, ok := s.loadPage(c)
	if !ok {
		return
	}
	base := s.getBaseTemplateData(c, page.Title)
	if !page.Published && !base.IsAdmin {
		s.renderError(c, http.StatusNotFound, s.tr(c, i18n.MsgNotFound), c.Request.URL.Path)
		return
	}
	s.renderTemplate(c, http.StatusOK, "page_detail.html", PageDetailData{TemplateData: base, Page: page})
}

// pageCreateForm displays an empty page form
func (s *WebServer) pageCreateForm(c *gin.Context) {
	data := PageFormData{
		TemplateData: s.getBaseTemplateData(c, s.tr(c, i18n.MsgTitleNewPage)),
		Page:         &models.Page{},
		Action:       "/pages/create",
	}
	s.renderTemplate(c, http.StatusOK, "page_form.html", data)
}

// pageCreate handles page creation; the author is the current user's profile
func (s *WebServer) pageCreate(c *gin.Context) {
	session := s.getWebSession(c)
	page := &models.Page{}
	if errs := s.bindPageForm(c, page); len(errs) > 0 {
		s.renderPageForm(c, page, "/pages/create", errs)
		return
	}

	profile, err := s.DB.GetProfileByUserID(session.UserID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, s.tr(c, i18n.MsgDatabaseError), err.Error())
		return
	}
	page.AuthorID = profile.ID

	if err := s.DB.CreatePage(page); err != nil {
		log.Printf("[WEB]: Failed to create page: %v", err)
		session.SetError(s.tr(c, i18n.MsgPageCreateFailed))
		c.Redirect(http.StatusSeeOther, "/pages")
		return
	}
	log.Printf("[WEB]: user %d created page %d %q", session.UserID, page.ID, page.Title)
	session.SetSuccess(s.tr(c, i18n.MsgPageCreated))
	c.Redirect(http.StatusSeeOther, "/pages")
}

// pageEditForm displays the form filled with the page
func (s *WebServer) pageEditForm(c *gin.Context) {
	page, ok := s.loadPage(c)
	if !ok {
		return
	}
	data := PageFormData{
		TemplateData: s.getBaseTemplateData(c, s.tr(c, i18n.MsgTitleEditPage)),
		Page:         page,
		Action:       "/pages/" + c.Param("id") + "/edit",
	}
	s.renderTemplate(c, http.StatusOK, "page_form.html", data)
}

// pageEdit handles page updates
func (s *WebServer) pageEdit(c *gin.Context) {
	session := s.getWebSession(c)
	page, ok := s.loadPage(c)
	if !ok {
		return
	}
	action := "/pages/" + c.Param("id") + "/edit"
	if errs := s.bindPageForm(c, page); len(errs) > 0 {
		s.renderPageForm(c, page, action, errs)
		return
	}

	if err := s.DB.UpdatePage(page); err != nil {
		log.Printf("[WEB]: Failed to update page ID %d: %v", page.ID, err)
		session.SetError(s.tr(c, i18n.MsgPageSaveFailed))
		c.Redirect(http.StatusSeeOther, "/pages")
		return
	}
	session.SetSuccess(s.tr(c, i18n.MsgPageSaved))
	c.Redirect(http.StatusSeeOther, "/pages")
}

// pageDelete deletes a page without confirmation
func (s *WebServer) pageDelete(c *gin.Context) {
	session := s.getWebSession(c)
	page, ok := s.loadPage(c)
	if !ok {
		return
	}

	if err := s.DB.DeletePage(page.ID); err != nil {
		log.Printf("[WEB]: Failed to delete page ID %d: %v", page.ID, err)
		session.SetError(s.tr(c, i18n.MsgPageDeleteFailed))
		c.Redirect(http.StatusSeeOther, "/pages")
		return
	}
	log.Printf("[WEB]: user %d deleted page %d", session.UserID, page.ID)
	session.SetSuccess(s.tr(c, i18n.MsgPageDeleted))
	c.Redirect(http.StatusSeeOther, "/pages")
}

// loadPage resolves :id or renders a 404
func (s *WebServer) loadPage(c *gin.Context) (*models.Page, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		s.renderError(c, http.StatusNotFound, s.tr(c, i18n.MsgNotFound), c.Request.URL.Path)
		return nil, false
	}
	page, err := s.DB.GetPageByID(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, s.tr(c, i18n.MsgNotFound), c.Request.URL.Path)
		} else {
			s.renderError(c, http.StatusInternalServerError, s.tr(c, i18n.MsgDatabaseError), err.Error())
		}
		return nil, false
	}
	return page, true
}

// bindPageForm copies title, content and published into page and returns
// translated errors by field. The checkbox is present if checked, absent if not.
func (s *WebServer) bindPageForm(c *gin.Context, page *models.Page) map[string]string {
	page.Title = strings.TrimSpace(c.PostForm("title"))
	page.Content = strings.TrimSpace(c.PostForm("content"))
	page.Published = c.PostForm("published") == "on"

	errs := make(map[string]string)
	switch {
	case page.Title == "":
		errs["title"] = s.tr(c, i18n.MsgRequired)
	case len([]rune(page.Title)) > pageTitleMaxLen:
		errs["title"] = s.tr(c, i18n.MsgPageTitleTooLong, pageTitleMaxLen)
	}
	if page.Content == "" {
		errs["content"] = s.tr(c, i18n.MsgRequired)
	}
	return errs
}

func (s *WebServer) renderPageForm(c *gin.Context, page *models.Page, action string, errs map[string]string) {
	title := s.tr(c, i18n.MsgTitleNewPage)
	if page.ID > 0 {
		title = s.tr(c, i18n.MsgTitleEditPage)
	}
	data := PageFormData{
		TemplateData: s.getBaseTemplateData(c, title),
		Page:         page,
		Action:       action,
		Errors:       errs,
	}
	s.renderTemplate(c, http.StatusBadRequest, "page_form.html", data)
}
