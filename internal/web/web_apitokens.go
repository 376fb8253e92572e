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
	"github.com/volontulo/go-volontulo/internal/offers"
)

// APIAuthHeader carries "Token <key>"
const APIAuthHeader = "Authorization"

// APIAuthScheme is the keyword in front of the key
const APIAuthScheme = "Token"

// maxNameLength bounds first_name and last_name
const maxNameLength = 30

// apiPrincipal is the authenticated caller of an API request
type apiPrincipal struct {
	User    *models.User
	IsAdmin bool
}

// tokenFromHeader returns the key of a "Token <key>" header. ok is false when
// the header uses another scheme; a malformed Token header gives ok and "".
func tokenFromHeader(header string) (key string, ok bool) {
	fields := strings.Fields(header)
	if len(fields) == 0 || !strings.EqualFold(fields[0], APIAuthScheme) {
		return "", false
	}
	if len(fields) != 2 {
		return "", true
	}
	return fields[1], true
}

// APIAuthentication resolves the caller from a token header or the web
// session cookie. An invalid token rejects the request even on public
// endpoints; no credentials at all continue anonymously.
func (s *WebServer) APIAuthentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key, ok := tokenFromHeader(c.GetHeader(APIAuthHeader)); ok {
			if key == "" {
				s.apiUnauthorized(c, i18n.MsgInvalidToken)
				return
			}
			token, err := s.DB.ValidateAuthToken(key)
			if err != nil {
				if !errors.Is(err, database.ErrNotFound) && !errors.Is(err, database.ErrTokenExpired) {
					log.Printf("[WEB]: token validation failed: %v (request %s)", err, requestID(c))
				}
				s.apiUnauthorized(c, i18n.MsgInvalidToken)
				return
			}
			user, err := s.DB.GetUserByID(token.UserID)
			if err != nil {
				s.apiUnauthorized(c, i18n.MsgInvalidToken)
				return
			}
			if err := s.DB.UpdateTokenUsage(token.ID); err != nil {
				log.Printf("[WEB]: Failed to update token usage: %v", err)
			}
			s.setPrincipal(c, user)
			c.Set(ctxAPIToken, key)
			c.Next()
			return
		}

		if session := s.getWebSession(c); session != nil {
			if user, err := s.DB.GetUserByID(session.UserID); err == nil {
				s.setPrincipal(c, user)
			}
		}
		c.Next()
	}
}

func (s *WebServer) setPrincipal(c *gin.Context, user *models.User) {
	isAdmin, err := s.DB.IsAdministrator(user.ID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Printf("[WEB]: failed to load profile of user %d: %v", user.ID, err)
	}
	c.Set(ctxAPIUser, &apiPrincipal{User: user, IsAdmin: isAdmin})
}

// APIAuthRequired rejects anonymous API calls
func (s *WebServer) APIAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal(c) == nil {
			s.apiUnauthorized(c, i18n.MsgNotAuthorized)
			return
		}
		c.Next()
	}
}

func (s *WebServer) apiUnauthorized(c *gin.Context, key string) {
	c.Header("WWW-Authenticate", APIAuthScheme)
	s.apiDetail(c, http.StatusUnauthorized, key)
}

// principal returns the authenticated caller or nil
func principal(c *gin.Context) *apiPrincipal {
	if v, ok := c.Get(ctxAPIUser); ok {
		if p, ok := v.(*apiPrincipal); ok {
			return p
		}
	}
	return nil
}

// viewer converts the caller into the identity used by the offer rules
func viewer(c *gin.Context) offers.Viewer {
	p := principal(c)
	if p == nil {
		return offers.Viewer{}
	}
	return offers.Viewer{UserID: p.User.ID, IsAdmin: p.IsAdmin}
}

// apiLogin exchanges credentials for a REST token
func (s *WebServer) apiLogin(c *gin.Context) {
	in, ok := s.decodeInput(c)
	if !ok {
		return
	}
	login := inputString(in, "username")
	if login == "" {
		login = inputString(in, "email")
	}
	password := inputString(in, "password")

	errs := offers.FieldErrors{}
	if login == "" {
		_, hasUsername := in.Values["username"]
		_, hasEmail := in.Values["email"]
		if hasUsername || hasEmail {
			errs.Add("username", i18n.MsgBlank)
		} else {
			errs.Add("username", i18n.MsgRequired)
		}
	}
	if _, present := in.Values["password"]; !present {
		errs.Add("password", i18n.MsgRequired)
	} else if password == "" {
		errs.Add("password", i18n.MsgBlank)
	}
	if len(errs) > 0 {
		s.apiFieldErrors(c, errs)
		return
	}

	user, err := s.authenticate(login, password)
	switch {
	case errors.Is(err, errLockedOut):
		errs.Add(offers.NonFieldErrors, i18n.MsgLockedOut)
		s.apiFieldErrors(c, errs)
		return
	case errors.Is(err, errBadCredentials):
		errs.Add(offers.NonFieldErrors, i18n.MsgBadCredentials)
		s.apiFieldErrors(c, errs)
		return
	case err != nil:
		s.apiServerError(c, "login", err)
		return
	}

	_, key, err := s.DB.CreateAuthToken(user.ID)
	if err != nil {
		s.apiServerError(c, "token creation", err)
		return
	}
	log.Printf("[WEB]: user %s obtained an API token from %s", user.Username, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"key": key})
}

// apiLogout drops the presented token and the web session, if any
func (s *WebServer) apiLogout(c *gin.Context) {
	if key := c.GetString(ctxAPIToken); key != "" {
		if err := s.DB.DeleteAuthToken(key); err != nil {
			log.Printf("[WEB]: failed to delete token: %v", err)
		}
	}
	if session := s.getWebSession(c); session != nil {
		if err := s.DB.InvalidateUserSession(session.UserID); err != nil {
			log.Printf("[WEB]: failed to invalidate session of user %d: %v", session.UserID, err)
		}
		s.clearSessionCookie(c)
	}
	c.JSON(http.StatusOK, gin.H{"success": s.tr(c, i18n.MsgLoggedOut)})
}

// apiUser returns the authenticated user
func (s *WebServer) apiUser(c *gin.Context) {
	c.JSON(http.StatusOK, userDetails(principal(c).User))
}

// apiUserUpdate changes first_name and last_name; other keys are read-only
func (s *WebServer) apiUserUpdate(c *gin.Context) {
	in, ok := s.decodeInput(c)
	if !ok {
		return
	}
	user := principal(c).User
	first, last := user.FirstName, user.LastName

	errs := offers.FieldErrors{}
	for field, dst := range map[string]*string{"first_name": &first, "last_name": &last} {
		raw, present := in.Values[field]
		if !present {
			continue
		}
		v, isString := raw.(string)
		if !isString && raw != nil {
			errs.Add(field, i18n.MsgInvalidString)
			continue
		}
		v = strings.TrimSpace(v)
		if len([]rune(v)) > maxNameLength {
			errs.Add(field, i18n.MsgMaxLength, maxNameLength)
			continue
		}
		*dst = v
	}
	if len(errs) > 0 {
		s.apiFieldErrors(c, errs)
		return
	}

	if first != user.FirstName || last != user.LastName {
		if err := s.DB.UpdateUserName(user.ID, first, last); err != nil {
			s.apiServerError(c, "user update", err)
			return
		}
		user.FirstName, user.LastName = first, last
	}
	c.JSON(http.StatusOK, userDetails(user))
}
