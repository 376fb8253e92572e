package web

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/volontulo/go-volontulo/internal/i18n"
)

// LoginPageData represents data for login page
type LoginPageData struct {
	TemplateData
	LoginError  string
	Username    string
	RedirectURL string
}

// safeRedirect only allows local absolute paths
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return "/"
	}
	return target
}

// loginPage displays the login form
func (s *WebServer) loginPage(c *gin.Context) {
	// Check if user is already logged in
	if session := s.getWebSession(c); session != nil {
		c.Redirect(http.StatusSeeOther, safeRedirect(c.Query("redirect")))
		return
	}

	var errorMsg string
	switch c.Query("message") {
	case "session_expired":
		errorMsg = s.tr(c, i18n.MsgSessionExpired)
	case "logged_out":
		errorMsg = "" // No error for normal logout
	}

	data := LoginPageData{
		TemplateData: s.getBaseTemplateData(c, s.tr(c, i18n.MsgTitleLogin)),
		LoginError:   errorMsg,
		RedirectURL:  c.Query("redirect"),
	}
	s.renderTemplate(c, http.StatusOK, "login.html", data)
}

// loginSubmit processes login form submission
func (s *WebServer) loginSubmit(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	redirectURL := safeRedirect(c.PostForm("redirect"))

	// Validate input
	if username == "" || password == "" {
		s.renderLoginError(c, s.tr(c, i18n.MsgLoginMissing), username, redirectURL)
		return
	}

	user, err := s.authenticate(username, password)
	switch {
	case errors.Is(err, errLockedOut):
		s.renderLoginError(c, s.tr(c, i18n.MsgLockedOut), username, redirectURL)
		return
	case errors.Is(err, errBadCredentials):
		s.renderLoginError(c, s.tr(c, i18n.MsgBadCredentials), username, redirectURL)
		return
	case err != nil:
		log.Printf("[WEB]: login of %s failed: %v", username, err)
		s.renderLoginError(c, s.tr(c, i18n.MsgLoginFailed), username, redirectURL)
		return
	}

	// Successful login - create new session (this invalidates any existing session)
	sessionID, err := s.DB.CreateUserSession(user.ID, c.ClientIP())
	if err != nil {
		log.Printf("[WEB]: failed to create session for user %d: %v", user.ID, err)
		s.renderLoginError(c, s.tr(c, i18n.MsgSessionFailed), username, redirectURL)
		return
	}

	// Set secure session cookie
	s.setSessionCookie(c, sessionID)
	log.Printf("[WEB]: user %s logged in from %s", user.Username, c.ClientIP())

	// Redirect to destination
	c.Redirect(http.StatusSeeOther, redirectURL)
}

// logout handles user logout
func (s *WebServer) logout(c *gin.Context) {
	// Get current session to invalidate it
	if session := s.getWebSession(c); session != nil {
		if err := s.DB.InvalidateUserSession(session.UserID); err != nil {
			log.Printf("[WEB]: failed to invalidate session of user %d: %v", session.UserID, err)
		}
	}

	// Clear session cookie
	s.clearSessionCookie(c)

	c.Redirect(http.StatusSeeOther, "/login?message=logged_out")
}

// renderLoginError renders login page with error
func (s *WebServer) renderLoginError(c *gin.Context, errorMsg, username, redirectURL string) {
	data := LoginPageData{
		TemplateData: s.getBaseTemplateData(c, s.tr(c, i18n.MsgTitleLogin)),
		LoginError:   errorMsg,
		Username:     username,
		RedirectURL:  redirectURL,
	}
	s.renderTemplate(c, http.StatusBadRequest, "login.html", data)
}
