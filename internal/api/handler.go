// Package api exposes the search pipeline and the library over HTTP JSON.
package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"JobCopilot/internal/domain"
	"JobCopilot/internal/infrastructure/export"
	"JobCopilot/internal/usecase"
)

const (
	msgSearchFailed = "search failed, please try again"
	msgInternal     = "internal error"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Searcher runs one aggregated search.
type Searcher interface {
	Search(ctx context.Context, profile domain.UserProfile, filters domain.SearchFilters, opts usecase.SearchOptions) (usecase.SearchResult, error)
}

// Handler holds shared dependencies.
type Handler struct {
	searcher Searcher
	library  *usecase.Library
	logger   *slog.Logger
	perPage  int
	clock    func() time.Time
}

// NewHandler returns a configured Handler. perPage is the default page size for searches.
func NewHandler(searcher Searcher, library *usecase.Library, perPage int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{searcher: searcher, library: library, logger: logger, perPage: perPage, clock: time.Now}
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Filters         domain.SearchFilters `json:"filters"`
	Page            int                  `json:"page"`
	PerPage         int                  `json:"perPage"`
	UseIntermediary bool                 `json:"useIntermediary"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// NewRouter mounts every route on a gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))

	r.GET("/health", h.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/profile", h.getProfile)
		v1.PUT("/profile", h.putProfile)

		v1.POST("/search", h.search)
		v1.GET("/search/last", h.lastSearch)

		v1.GET("/saved", h.listSaved)
		v1.POST("/saved", h.saveListing)
		v1.DELETE("/saved/:id", h.unsaveListing)

		v1.GET("/applications", h.listApplications)
		v1.POST("/applications/:jobId", h.apply)
		v1.PATCH("/applications/:jobId/status", h.updateStatus)
		v1.POST("/applications/:jobId/follow-ups", h.addFollowUp)
		v1.GET("/applications/:jobId/cover-letter", h.coverLetter)

		v1.GET("/dashboard", h.dashboard)
		v1.GET("/export", h.exportWorkbook)
		v1.DELETE("/data", h.clearData)
	}
	return r
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getProfile(c *gin.Context) {
	profile, err := h.library.Profile(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) putProfile(c *gin.Context) {
	var profile domain.UserProfile
	if !bindJSON(c, &profile) {
		return
	}
	if err := h.library.SaveProfile(c.Request.Context(), profile); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = h.perPage
	}

	ctx := c.Request.Context()
	profile, err := h.library.Profile(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.searcher.Search(ctx, profile, req.Filters, usecase.SearchOptions{
		Page:            req.Page,
		PerPage:         req.PerPage,
		UseIntermediary: req.UseIntermediary,
	})
	if err != nil {
		h.logger.Error("search failed", "error", err)
		body := gin.H{"error": msgSearchFailed}
		if len(result.Listings) > 0 {
			body["listings"] = result.Listings
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	annotated, err := h.library.AnnotateSaved(ctx, result.Listings)
	if err != nil {
		h.logger.Warn("annotate saved listings failed", "error", err)
	} else {
		result.Listings = annotated
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) lastSearch(c *gin.Context) {
	record, err := h.library.LastSearch(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no search has been run yet"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) listSaved(c *gin.Context) {
	saved, err := h.library.SavedListings(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) saveListing(c *gin.Context) {
	var listing domain.Listing
	if !bindJSON(c, &listing) {
		return
	}
	stored, err := h.library.SaveListing(c.Request.Context(), listing)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (h *Handler) unsaveListing(c *gin.Context) {
	if err := h.library.UnsaveListing(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listApplications(c *gin.Context) {
	apps, err := h.library.Applications(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *Handler) apply(c *gin.Context) {
	var req usecase.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}
	app, err := h.library.Apply(c.Request.Context(), c.Param("jobId"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.library.UpdateApplicationStatus(c.Request.Context(), c.Param("jobId"), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *Handler) addFollowUp(c *gin.Context) {
	var req usecase.FollowUpRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.library.AddFollowUp(c.Request.Context(), c.Param("jobId"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *Handler) coverLetter(c *gin.Context) {
	letter, err := h.library.CoverLetter(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coverLetter": letter})
}

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.library.Dashboard(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) exportWorkbook(c *gin.Context) {
	ctx := c.Request.Context()
	saved, err := h.library.SavedListings(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	apps, err := h.library.Applications(ctx, "")
	if err != nil {
		h.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if _, err := (export.Workbook{Saved: saved, Applications: apps}).WriteTo(&buf); err != nil {
		h.writeError(c, err)
		return
	}
	filename := "jobcopilot-" + h.clock().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) clearData(c *gin.Context) {
	if err := h.library.ClearAll(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// writeError maps use-case errors onto status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *usecase.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Msg})
	case errors.Is(err, usecase.ErrNoProfile):
		c.JSON(http.StatusNotFound, gin.H{"error": "no profile stored, complete onboarding first"})
	case errors.Is(err, usecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrApplicationFailed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(started))
	}
}
