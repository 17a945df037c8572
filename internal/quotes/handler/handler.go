// Package handler exposes the quote routes.
package handler

import (
	"net/http"

	"medtour_backend/internal/quotes/service"
	"medtour_backend/internal/quotes/transport"
	"medtour_backend/platform/httpkit"
	"medtour_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidQuoteID   = "invalid quote id"
)

// Handler handles HTTP requests for quotes
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new quotes handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the quote routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.POST("/:id/send", h.Send)
	rg.POST("/:id/accept", h.Accept)
	rg.GET("/:id/pdf", h.DownloadPDF)
	rg.GET("/:id/pdf-link", h.PDFLink)
}

// Create handles POST /api/v1/quotes
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateQuoteRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), actorID(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// List handles GET /api/v1/quotes
func (h *Handler) List(c *gin.Context) {
	var req transport.ListQuotesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	var journeyID *uuid.UUID
	if req.JourneyID != "" {
		id := uuid.MustParse(req.JourneyID)
		journeyID = &id
	}

	result, err := h.svc.List(c.Request.Context(), journeyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID handles GET /api/v1/quotes/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := quoteID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Update handles PATCH /api/v1/quotes/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := quoteID(c)
	if !ok {
		return
	}
	var req transport.UpdateQuoteRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Send handles POST /api/v1/quotes/:id/send
func (h *Handler) Send(c *gin.Context) {
	id, ok := quoteID(c)
	if !ok {
		return
	}

	result, err := h.svc.Send(c.Request.Context(), id, actorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Accept handles POST /api/v1/quotes/:id/accept. Partial failures after the
// quote flipped to ACCEPTED are still a 200; the body names the failed step.
func (h *Handler) Accept(c *gin.Context) {
	id, ok := quoteID(c)
	if !ok {
		return
	}

	result, err := h.svc.Accept(c.Request.Context(), id, actorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DownloadPDF handles GET /api/v1/quotes/:id/pdf
func (h *Handler) DownloadPDF(c *gin.Context) {
	id, ok := quoteID(c)
	if !ok {
		return
	}

	doc, err := h.svc.QuotePDF(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	servePDFBytes(c, doc.FileName, doc.Content, doc.Cached)
}

// PDFLink handles GET /api/v1/quotes/:id/pdf-link
func (h *Handler) PDFLink(c *gin.Context) {
	id, ok := quoteID(c)
	if !ok {
		return
	}

	result, err := h.svc.QuotePDFLink(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func quoteID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidQuoteID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func actorID(c *gin.Context) string {
	if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() {
		return identity.ActorID()
	}
	return ""
}
