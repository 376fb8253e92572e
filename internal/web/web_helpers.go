package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/volontulo/go-volontulo/internal/i18n"
	"github.com/volontulo/go-volontulo/internal/models"
	"github.com/volontulo/go-volontulo/internal/offers"
)

const (
	maxBodySize     = 10 << 20
	maxFormMemory   = 4 << 20
	defaultPageSize = 20
	maxPageSize     = 100
)

// decodeInput reads a JSON, urlencoded or multipart request body.
// On failure the 400 response is already written.
func (s *WebServer) decodeInput(c *gin.Context) (offers.Input, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

	if c.ContentType() == binding.MIMEJSON {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			s.apiDetail(c, http.StatusBadRequest, i18n.MsgParseError, err.Error())
			return offers.Input{}, false
		}
		values := make(map[string]interface{})
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &values); err != nil {
				s.apiDetail(c, http.StatusBadRequest, i18n.MsgParseError, err.Error())
				return offers.Input{}, false
			}
		}
		return offers.Input{Values: values}, true
	}

	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.apiDetail(c, http.StatusBadRequest, i18n.MsgParseError, err.Error())
		return offers.Input{}, false
	}
	return offers.FormInput(c.Request.PostForm), true
}

// inputString returns a string value or "" for other types
func inputString(in offers.Input, key string) string {
	v, _ := in.Values[key].(string)
	return v
}

// pageRequest holds the optional ?page and ?page_size parameters
type pageRequest struct {
	Paged bool
	Page  int
	Size  int
}

func parsePageRequest(c *gin.Context) (pageRequest, bool) {
	raw := c.Query("page")
	if raw == "" {
		return pageRequest{}, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return pageRequest{}, false
	}
	size := defaultPageSize
	if ps := c.Query("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			size = parsed
		}
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return pageRequest{Paged: true, Page: page, Size: size}, true
}

// limit is 0 for unpaged requests
func (p pageRequest) limit() int {
	if !p.Paged {
		return 0
	}
	return p.Size
}

func (p pageRequest) offset() int {
	if !p.Paged {
		return 0
	}
	return (p.Page - 1) * p.Size
}

// respondList writes a bare array or, for paged requests, the pagination envelope
func (s *WebServer) respondList(c *gin.Context, p pageRequest, data interface{}, total int) {
	if !p.Paged {
		c.JSON(http.StatusOK, data)
		return
	}
	info := models.NewPaginationInfo(p.Page, p.Size, total)
	if p.Page > info.TotalPages {
		s.apiDetail(c, http.StatusNotFound, i18n.MsgNotFound)
		return
	}
	c.JSON(http.StatusOK, models.PaginatedResponse{
		Data:       data,
		Page:       info.CurrentPage,
		PageSize:   info.PageSize,
		TotalCount: info.TotalCount,
		TotalPages: info.TotalPages,
		HasNext:    info.HasNext,
		HasPrev:    info.HasPrev,
	})
}
