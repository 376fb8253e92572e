package web

import (
	"bytes"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/volontulo/go-volontulo/internal/config"
	"github.com/volontulo/go-volontulo/internal/i18n"
	"github.com/volontulo/go-volontulo/internal/offers"
	"golang.org/x/text/language"
)

var templateFuncs = template.FuncMap{
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	// paragraphs splits plain text content on blank lines
	"paragraphs": func(s string) []string {
		var out []string
		for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	},
}

// getBaseTemplateData creates a TemplateData struct with common information including user auth
func (s *WebServer) getBaseTemplateData(c *gin.Context, title string) TemplateData {
	data := TemplateData{
		Title:       title,
		CurrentTime: time.Now().Format("2006-01-02 15:04:05"),
		AppVersion:  config.AppVersion,
		Lang:        s.lang(c).String(),
		translate: func(key string, args ...interface{}) string {
			return s.tr(c, key, args...)
		},
	}

	// Add user information if logged in
	if session := s.getWebSession(c); session != nil {
		data.User = session.User
		data.IsAdmin = session.IsAdmin
		data.Success, data.Error = GetAndClearFlash(session.SessionID)
	}
	return data
}

// requestID returns the id assigned by RequestIDMiddleware
func requestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// renderError renders an error page
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	errorData := struct {
		TemplateData
		Message    string
		StatusCode int
	}{
		TemplateData: s.getBaseTemplateData(c, s.tr(c, i18n.MsgTitleError)),
		Message:      message,
		StatusCode:   statusCode,
	}
	log.Printf("[WEB]: Error %d: %s - %s (request %s)", statusCode, message, errstring, requestID(c))
	s.renderTemplate(c, statusCode, "error.html", errorData)
	c.Abort()
}

// renderTemplate renders a page template inside base.html
func (s *WebServer) renderTemplate(c *gin.Context, statusCode int, templateName string, data interface{}) {
	tmpl, err := pageTemplate(templateName)
	if err != nil {
		log.Printf("[WEB]: Error parsing template %s: %v", templateName, err)
		c.String(http.StatusInternalServerError, "Template error")
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("[WEB]: Error rendering template %s: %v", templateName, err)
		c.String(http.StatusInternalServerError, "Template error")
		return
	}
	c.Data(statusCode, "text/html; charset=utf-8", buf.Bytes())
}

// lang returns the negotiated response language
func (s *WebServer) lang(c *gin.Context) language.Tag {
	if v, ok := c.Get(ctxLang); ok {
		if tag, ok := v.(language.Tag); ok {
			return tag
		}
	}
	return s.I18n.Default()
}

// tr translates a message key into the request language
func (s *WebServer) tr(c *gin.Context, key string, args ...interface{}) string {
	return s.I18n.T(s.lang(c), key, args...)
}

// apiDetail aborts with {"detail": msg}
func (s *WebServer) apiDetail(c *gin.Context, status int, key string, args ...interface{}) {
	c.AbortWithStatusJSON(status, gin.H{"detail": s.tr(c, key, args...)})
}

// apiInfo responds with {"info": msg}
func (s *WebServer) apiInfo(c *gin.Context, status int, key string) {
	c.JSON(status, gin.H{"info": s.tr(c, key)})
}

// apiFieldErrors responds 400 with the translated field error map
func (s *WebServer) apiFieldErrors(c *gin.Context, errs offers.FieldErrors) {
	out := make(map[string][]string, len(errs))
	for field, list := range errs {
		for _, fe := range list {
			out[field] = append(out[field], s.tr(c, fe.Key, fe.Args...))
		}
	}
	c.JSON(http.StatusBadRequest, out)
}

// apiServerError logs err and hides it from the client
func (s *WebServer) apiServerError(c *gin.Context, what string, err error) {
	log.Printf("[WEB]: %s failed: %v (request %s)", what, err, requestID(c))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "A server error occurred."})
}

// parseID reads a positive numeric path parameter, tolerating the .json suffix
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := strings.TrimSuffix(c.Param(name), ".json")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
