package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/report"
	"github.com/spiritlens/backend/internal/usecase"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// maxBatchRecords caps the records accepted in one request
const maxBatchRecords = 50000

// Handler holds dependencies for HTTP handlers
type Handler struct {
	dedup  *usecase.DedupService
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil service leaves the API
// endpoints answering 503.
func NewHandler(dedup *usecase.DedupService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{dedup: dedup, logger: logger}
}

// AnalyzeRequest is the body of POST /api/v1/dedup/analyze
type AnalyzeRequest struct {
	Records []domain.Record `json:"records" binding:"required,min=1"`
}

// CompareRequest is the body of POST /api/v1/dedup/compare
type CompareRequest struct {
	A domain.Record `json:"a"`
	B domain.Record `json:"b"`
}

// SimilarityRequest is the body of POST /api/v1/similarity
type SimilarityRequest struct {
	S1 string `json:"s1" binding:"required"`
	S2 string `json:"s2" binding:"required"`
}

// PricesRequest is the body of POST /api/v1/prices/analyze
type PricesRequest struct {
	Records []domain.Record `json:"records" binding:"required,min=1"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "spiritlens-backend",
		"version": Version,
	})
}

// Analyze runs a dry-run dedup over the posted batch
func (h *Handler) Analyze(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req AnalyzeRequest
	if !h.bind(c, &req) {
		return
	}
	if len(req.Records) > maxBatchRecords {
		h.respondError(c, fmt.Errorf("%w: at most %d records per request", domain.ErrInvalidRequest, maxBatchRecords))
		return
	}

	rep, err := h.dedup.Analyze(c.Request.Context(), req.Records, usecase.Options{Mode: usecase.ModeDryRun})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// GetReport returns a cached report rendered in ?format=json|csv|text|yaml
func (h *Handler) GetReport(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	rep, err := h.dedup.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	format := c.DefaultQuery("format", report.FormatJSON)
	var buf bytes.Buffer
	if err := report.Write(&buf, rep, format); err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, report.ContentType(format), buf.Bytes())
}

// Compare scores a single pair
func (h *Handler) Compare(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req CompareRequest
	if !h.bind(c, &req) {
		return
	}

	match, err := h.dedup.Compare(req.A, req.B)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if match == nil {
		c.JSON(http.StatusOK, gin.H{"match": false})
		return
	}
	c.JSON(http.StatusOK, match)
}

// Similarity returns the fuzzy similarity breakdown of two strings
func (h *Handler) Similarity(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req SimilarityRequest
	if !h.bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.dedup.Similarity(req.S1, req.S2))
}

// AnalyzePrices reconciles the prices of records known to be one product
func (h *Handler) AnalyzePrices(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req PricesRequest
	if !h.bind(c, &req) {
		return
	}

	group, err := h.dedup.AnalyzePrices(req.Records)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *Handler) ready(c *gin.Context) bool {
	if h.dedup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "dedup service not configured",
		})
		return false
	}
	return true
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// respondError maps domain errors onto HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidRecord):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrReportNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = 499
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
