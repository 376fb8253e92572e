package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/volontulo/go-volontulo/internal/i18n"
)

// Context keys
const (
	ctxRequestID = "request_id"
	ctxLang      = "lang"
	ctxAPIUser   = "api_user"
	ctxAPIToken  = "api_token"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	// Static files first (highest priority)
	s.Router.GET("/static/*filepath", EmbeddedStaticHandler())
	s.Router.HEAD("/static/*filepath", EmbeddedStaticHandler())
	s.Router.GET("/robots.txt", func(c *gin.Context) {
		c.String(http.StatusOK, "User-agent: *\nDisallow: /api/\nDisallow: /rest-auth/\n")
	})
	s.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	s.Router.NoRoute(s.notFoundHandler)
	s.Router.NoMethod(s.methodNotAllowedHandler)

	// REST API; every route authenticates lazily, writes require a user
	api := s.Router.Group("/api")
	api.Use(s.APIAuthentication())
	{
		collection(api, "/organizations", s.listOrganizations)
		member(api, "/organizations/:id", s.getOrganization)
		collection(api, "/users_profiles", s.listProfiles)
		member(api, "/users_profiles/:id", s.getProfile)
		collection(api, "/offers", s.listOffers)
		member(api, "/offers/:id", s.getOffer)
		collection(api, "/users/:id/offers", s.listUserOffers)

		writes := api.Group("", s.APIAuthRequired())
		writes.POST("/offers/create", s.createOffer)
		writes.POST("/offers/create/", s.createOffer)
		for _, path := range []string{"/offers/:id/update", "/offers/:id/update/"} {
			writes.PUT(path, s.updateOffer)
			writes.PATCH(path, s.updateOffer)
		}
		writes.POST("/offers/:id/join", s.joinOffer)
		writes.POST("/offers/:id/join/", s.joinOffer)
	}

	restAuth := s.Router.Group("/rest-auth")
	restAuth.Use(s.APIAuthentication())
	{
		restAuth.POST("/login", s.apiLogin)
		restAuth.POST("/login/", s.apiLogin)
		restAuth.POST("/logout", s.apiLogout)
		restAuth.POST("/logout/", s.apiLogout)
		for _, path := range []string{"/user", "/user/"} {
			restAuth.GET(path, s.APIAuthRequired(), s.apiUser)
			restAuth.PUT(path, s.APIAuthRequired(), s.apiUserUpdate)
			restAuth.PATCH(path, s.APIAuthRequired(), s.apiUserUpdate)
		}
	}

	// Authentication routes
	s.Router.GET("/login", s.loginPage)
	s.Router.POST("/login", s.loginSubmit)
	s.Router.GET("/logout", s.logout)

	s.Router.GET("/", s.homePage)

	// Static content pages
	pages := s.Router.Group("/pages")
	{
		pages.GET("", s.WebAdminRequired(), s.pagesList)
		pages.GET("/", s.WebAdminRequired(), s.pagesList)
		pages.GET("/create", s.WebAdminRequired(), s.pageCreateForm)
		pages.POST("/create", s.WebAdminRequired(), s.pageCreate)
		pages.GET("/:id", s.pageDetail)
		pages.GET("/:id/edit", s.WebAdminRequired(), s.pageEditForm)
		pages.POST("/:id/edit", s.WebAdminRequired(), s.pageEdit)
		// deletion needs no confirmation
		pages.GET("/:id/delete", s.WebAdminRequired(), s.pageDelete)
		pages.POST("/:id/delete", s.WebAdminRequired(), s.pageDelete)
	}
}

// collection registers a list endpoint under path, path/ and path.json
func collection(g gin.IRoutes, path string, h gin.HandlerFunc) {
	g.GET(path, h)
	g.GET(path+"/", h)
	g.GET(path+".json", h)
}

// member registers a detail endpoint; the .json suffix arrives inside :id
func member(g gin.IRoutes, path string, h gin.HandlerFunc) {
	g.GET(path, h)
	g.GET(path+"/", h)
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/rest-auth/")
}

func (s *WebServer) notFoundHandler(c *gin.Context) {
	if isAPIPath(c.Request.URL.Path) {
		s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}
	s.renderError(c, http.StatusNotFound, s.tr(c, i18n.MsgNotFound), c.Request.URL.Path)
}

func (s *WebServer) methodNotAllowedHandler(c *gin.Context) {
	if isAPIPath(c.Request.URL.Path) {
		s.apiDetail(c, http.StatusMethodNotAllowed, i18n.MsgMethodNotAllowed, c.Request.Method)
		return
	}
	s.renderError(c, http.StatusMethodNotAllowed, s.tr(c, i18n.MsgMethodNotAllowed, c.Request.Method), c.Request.URL.Path)
}

// RequestIDMiddleware assigns every request an id, reusing a valid incoming one
func (s *WebServer) RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// LanguageMiddleware negotiates the response language from Accept-Language
func (s *WebServer) LanguageMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := s.I18n.Match(c.GetHeader("Accept-Language"))
		c.Set(ctxLang, tag)
		c.Header("Content-Language", tag.String())
		c.Next()
	}
}

// ReverseProxyMiddleware handles X-Forwarded headers when running behind a reverse proxy
func (s *WebServer) ReverseProxyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Handle X-Forwarded-Proto to detect if the original request was HTTPS
		if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
			c.Request.URL.Scheme = "https"
		}

		// Handle X-Forwarded-Host to get the original host
		if host := c.GetHeader("X-Forwarded-Host"); host != "" {
			c.Request.Host = host
		}

		// client IPs come from c.ClientIP(), which honours the trusted proxy list
		c.Next()
	}
}

// ApacheLogFormat logs requests in combined format followed by the request id
func (s *WebServer) ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		requestID, _ := param.Keys[ctxRequestID].(string)
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s" %s`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
			requestID,
		)
	})
}
