package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"crmdesk/internal/backend"
	"crmdesk/internal/middleware"
	"crmdesk/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxFormMemory bounds in-memory multipart parsing; larger files spill to disk.
const maxFormMemory = 8 << 20

// actor builds the service caller from the request's session.
func actor(c *gin.Context) service.Actor {
	a := service.Actor{
		UserID:    middleware.GetUserID(c),
		Role:      middleware.GetRole(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if sc := middleware.GetSession(c); sc != nil {
		a.Token = sc
	}
	return a
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func parsePage(c *gin.Context) int {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	return page
}

// respondError maps service and backend errors onto HTTP responses. A lost
// backend session clears ours and tells the dashboard to go to the login page.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	_ = c.Error(err)
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, backend.ErrNoToken), errors.Is(err, backend.ErrUnauthenticated):
		if sc := middleware.GetSession(c); sc != nil {
			sc.Clear(c.Request.Context())
		}
		middleware.Unauthenticated(c)
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.TrimPrefix(err.Error(), service.ErrInvalid.Error()+": ")})
	case errors.Is(err, service.ErrToggleInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNothingFetched):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, backend.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status >= 500 || status < 400 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": apiErr.Message})
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "the server could not be reached, please try again"})
	}
}

// isFetchFailure reports whether err came from the backend rather than from
// the caller's session or request.
func isFetchFailure(err error) bool {
	for _, target := range []error{
		backend.ErrNoToken, backend.ErrUnauthenticated,
		service.ErrForbidden, service.ErrInvalid, service.ErrNothingFetched,
	} {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}

// readForm collects a multipart or urlencoded body into a backend form. The
// returned cleanup closes opened files.
func readForm(c *gin.Context, fileFields ...string) (backend.Form, func(), error) {
	f := backend.Form{Fields: url.Values{}}
	var opened []multipart.File
	cleanup := func() {
		for _, file := range opened {
			file.Close()
		}
	}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			return f, cleanup, err
		}
	} else if err := c.Request.ParseForm(); err != nil {
		return f, cleanup, err
	}
	for k, vs := range c.Request.PostForm {
		f.Fields[k] = append([]string(nil), vs...)
	}
	mf := c.Request.MultipartForm
	if mf == nil {
		return f, cleanup, nil
	}
	for k, vs := range mf.Value {
		if _, done := f.Fields[k]; !done {
			f.Fields[k] = append([]string(nil), vs...)
		}
	}
	for _, field := range fileFields {
		for _, fh := range mf.File[field] {
			file, err := fh.Open()
			if err != nil {
				cleanup()
				return f, func() {}, err
			}
			opened = append(opened, file)
			f.Files = append(f.Files, backend.File{
				Field:       field,
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Content:     file,
			})
		}
	}
	return f, cleanup, nil
}
