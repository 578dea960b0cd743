// Package api exposes the operator trigger and the status check over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"arboretum/internal/export"
	"arboretum/internal/exporter"
	"arboretum/internal/status"
)

// Service is the exporter as seen by the handlers.
type Service interface {
	Generate(ctx context.Context) (exporter.Report, error)
	Status(ctx context.Context) (status.Status, error)
}

// Handler handles API requests.
type Handler struct {
	service Service
}

// NewHandler creates a new API handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ModifiedTree is one entry of the status response.
type ModifiedTree struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	UpToDate       bool           `json:"up_to_date"`
	LastGeneration *time.Time     `json:"last_generation"`
	Modified       []ModifiedTree `json:"modified"`
	Notice         string         `json:"notice"`
}

// ErrorResponse is returned when no report is available.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Export handles POST /api/export.
func (h *Handler) Export(c *gin.Context) {
	report, err := h.service.Generate(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, report)
	case errors.Is(err, export.ErrExportInProgress):
		c.JSON(http.StatusConflict, report)
	default:
		logrus.WithField("run_id", report.RunID).Errorf("Export request failed: %v", err)
		c.JSON(http.StatusInternalServerError, report)
	}
}

// Status handles GET /api/status.
func (h *Handler) Status(c *gin.Context) {
	st, err := h.service.Status(c.Request.Context())
	if err != nil {
		logrus.Errorf("Status request failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not compute the dataset status"})
		return
	}

	resp := StatusResponse{
		UpToDate:       st.UpToDate,
		LastGeneration: st.LastGeneration,
		Modified:       make([]ModifiedTree, 0, len(st.Modified)),
		Notice:         status.Notice(st, time.UTC),
	}
	for _, tree := range st.Modified {
		resp.Modified = append(resp.Modified, ModifiedTree{ID: tree.ID, Name: tree.Name, ModifiedAt: tree.LastModified})
	}
	c.JSON(http.StatusOK, resp)
}
