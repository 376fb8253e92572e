package web

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/volontulo/go-volontulo/internal/database"
	"github.com/volontulo/go-volontulo/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookieName is the cookie holding the web session id
const SessionCookieName = "session_id"

// FlashMessage is shown once on the next rendered page
type FlashMessage struct {
	Type    string
	Message string
}

// Global flash message map and mutex
var (
	flashMessages   = make(map[string]FlashMessage)
	flashMessagesMu sync.RWMutex
)

// SetFlashError sets a temporary error message for a session
func SetFlashError(sessionID, msg string) {
	flashMessagesMu.Lock()
	flashMessages[sessionID] = FlashMessage{Type: "error", Message: msg}
	flashMessagesMu.Unlock()
}

// SetFlashSuccess sets a temporary success message for a session
func SetFlashSuccess(sessionID, msg string) {
	flashMessagesMu.Lock()
	flashMessages[sessionID] = FlashMessage{Type: "success", Message: msg}
	flashMessagesMu.Unlock()
}

// GetAndClearFlash retrieves and clears flash messages for a session
func GetAndClearFlash(sessionID string) (success, errorMsg string) {
	flashMessagesMu.Lock()
	fm := flashMessages[sessionID]
	switch fm.Type {
	case "success":
		success = fm.Message
	case "error":
		errorMsg = fm.Message
	}
	delete(flashMessages, sessionID)
	flashMessagesMu.Unlock()
	return
}

// AuthUser represents the logged in user in templates
type AuthUser struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// SessionData represents session information with user data
type SessionData struct {
	SessionID string
	UserID    int64
	User      *AuthUser
	IsAdmin   bool
	ExpiresAt time.Time
}

// SetError sets a temporary error message in session data
func (s *SessionData) SetError(msg string) {
	SetFlashError(s.SessionID, msg)
}

// SetSuccess sets a temporary success message in session data
func (s *SessionData) SetSuccess(msg string) {
	SetFlashSuccess(s.SessionID, msg)
}

// WebAdminRequired middleware for admin-only pages. Anonymous users and
// users without the administrator flag are sent to the login form.
func (s *WebServer) WebAdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := s.getWebSession(c)
		if session == nil || !session.IsAdmin {
			if session != nil {
				log.Printf("[WEB]: user %d denied admin access to %s", session.UserID, c.Request.URL.Path)
			}
			c.Redirect(http.StatusSeeOther, "/login?redirect="+url.QueryEscape(c.Request.URL.Path))
			c.Abort()
			return
		}

		c.Set("session", session)
		c.Next()
	}
}

// getWebSession retrieves session from cookie and returns full session data.
// The result is cached on the context for the rest of the request.
func (s *WebServer) getWebSession(c *gin.Context) *SessionData {
	if v, ok := c.Get("session"); ok {
		if session, ok := v.(*SessionData); ok {
			return session
		}
	}
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || sessionID == "" {
		return nil
	}

	user, err := s.DB.ValidateUserSession(sessionID)
	if err != nil {
		if s.Config.Debug {
			log.Printf("[WEB]: session rejected: %v", err)
		}
		return nil
	}

	isAdmin, err := s.DB.IsAdministrator(user.ID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Printf("[WEB]: failed to load profile of user %d: %v", user.ID, err)
	}

	session := &SessionData{
		SessionID: sessionID,
		UserID:    user.ID,
		User:      newAuthUser(user),
		IsAdmin:   isAdmin,
	}
	if user.SessionExpiresAt != nil {
		session.ExpiresAt = *user.SessionExpiresAt
	}
	c.Set("session", session)
	return session
}

func newAuthUser(u *models.User) *AuthUser {
	return &AuthUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.FullName(),
	}
}

var (
	errBadCredentials = errors.New("bad credentials")
	errLockedOut      = errors.New("account locked")
)

// authenticate checks a username (or e-mail) and password pair. Failed
// attempts count towards the lockout of the matched account.
func (s *WebServer) authenticate(login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, errBadCredentials
	}

	user, err := s.DB.GetUserByUsername(login)
	if errors.Is(err, database.ErrNotFound) && strings.Contains(login, "@") {
		user, err = s.DB.GetUserByEmail(login)
	}
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, err
	}

	lockedOut, err := s.DB.IsUserLockedOut(user.Username)
	if err != nil {
		return nil, err
	}
	if lockedOut {
		return nil, errLockedOut
	}

	if !checkPassword(password, user.PasswordHash) {
		if err := s.DB.IncrementLoginAttempts(user.Username); err != nil {
			log.Printf("[WEB]: failed to count login attempt of %s: %v", user.Username, err)
		}
		return nil, errBadCredentials
	}
	if user.LoginAttempts > 0 {
		if err := s.DB.ResetLoginAttempts(user.ID); err != nil {
			log.Printf("[WEB]: failed to reset login attempts of %s: %v", user.Username, err)
		}
	}
	return user, nil
}

// hashPassword creates a bcrypt hash of the password
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPassword checks if password matches hash
func checkPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func isHTTPS(c *gin.Context) bool {
	return c.Request != nil && (c.Request.TLS != nil || c.Request.URL.Scheme == "https" ||
		strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https"))
}

// Helper function to set session cookie
func (s *WebServer) setSessionCookie(c *gin.Context, sessionID string) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(c),
		SameSite: http.SameSiteLaxMode, // Works well with reverse proxies
		MaxAge:   int(database.SessionTimeout.Seconds()),
	}

	http.SetCookie(c.Writer, cookie)
}

// Helper function to clear session cookie
func (s *WebServer) clearSessionCookie(c *gin.Context) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(c),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1, // Delete cookie
	}

	http.SetCookie(c.Writer, cookie)
}
