// Package web provides the HTTP server, the REST API and the web interface for go-volontulo
package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/volontulo/go-volontulo/internal/config"
	"github.com/volontulo/go-volontulo/internal/database"
	"github.com/volontulo/go-volontulo/internal/i18n"
	"github.com/volontulo/go-volontulo/internal/offers"
)

// WebServer represents the web server
type WebServer struct {
	DB        *database.Database
	Router    *gin.Engine
	Config    *config.WebConfig
	Offers    *offers.Service
	I18n      *i18n.Translator
	StartTime time.Time // Track server start time for uptime calculations

	httpServer *http.Server
}

// TemplateData represents common template data
type TemplateData struct {
	Title       string
	CurrentTime string
	User        *AuthUser
	IsAdmin     bool
	AppVersion  string
	Success     string // flash messages
	Error       string
	Lang        string

	translate func(key string, args ...interface{}) string
}

// T translates a label from a template into the request language
func (d TemplateData) T(key string, args ...interface{}) string {
	if d.translate == nil {
		return key
	}
	return d.translate(key, args...)
}

// NewServer creates a new web server instance
func NewServer(db *database.Database, webconfig *config.WebConfig, svc *offers.Service, tr *i18n.Translator) *WebServer {
	if webconfig.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Configure Gin to trust reverse proxy headers
	if err := router.SetTrustedProxies(webconfig.TrustedProxies); err != nil {
		log.Printf("[WEB]: invalid trusted proxies %v: %v", webconfig.TrustedProxies, err)
	}

	// Configure security headers based on SSL setup
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		IsDevelopment:      webconfig.Debug,
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}

	server := &WebServer{
		DB:     db,
		Router: router,
		Config: webconfig,
		Offers: svc,
		I18n:   tr,
	}

	router.Use(gin.Recovery())
	router.Use(server.RequestIDMiddleware())
	router.Use(server.ApacheLogFormat())
	router.Use(secure.New(secureConfig))
	// Add reverse proxy middleware for handling X-Forwarded headers
	router.Use(server.ReverseProxyMiddleware())
	router.Use(server.LanguageMiddleware())

	server.setupRoutes()
	return server
}

// Start starts the web server with SSL support if configured.
// It returns nil after Shutdown.
func (s *WebServer) Start() error {
	addr := ":" + strconv.Itoa(s.Config.ListenPort)
	s.StartTime = time.Now()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var err error
	if s.Config.SSL {
		if s.Config.CertFile == "" || s.Config.KeyFile == "" {
			return errors.New("SSL enabled but cert_file or key_file not specified in config")
		}
		log.Printf("[WEB]: Starting HTTPS server on %s", addr)
		err = s.httpServer.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
	} else {
		log.Printf("[WEB]: Starting HTTP server on %s", addr)
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server
func (s *WebServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Printf("[WEB]: shutting down after %s", time.Since(s.StartTime).Round(time.Second))
	return s.httpServer.Shutdown(ctx)
}
