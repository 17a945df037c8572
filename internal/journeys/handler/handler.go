// Package handler exposes the journey routes.
package handler

import (
	"net/http"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/journeys/assignment"
	"medtour_backend/internal/journeys/service"
	"medtour_backend/internal/journeys/transport"
	"medtour_backend/platform/httpkit"
	"medtour_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidJourneyID = "invalid journey id"
)

// Handler handles HTTP requests for journeys.
type Handler struct {
	svc      *service.Service
	assigner *assignment.Service
	val      *validator.Validator
}

// New creates a new journeys handler.
func New(svc *service.Service, assigner *assignment.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, assigner: assigner, val: val}
}

// RegisterRoutes registers the journey routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Start)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/transition", h.Transition)
	rg.POST("/:id/assign-coordinator", h.AssignCoordinator)
	rg.GET("/:id/timeline", h.Timeline)
}

// Start handles POST /api/v1/journeys
func (h *Handler) Start(c *gin.Context) {
	var req transport.StartJourneyRequest
	if !h.bind(c, &req) {
		return
	}

	j, err := h.svc.StartJourney(c.Request.Context(), service.StartInput{
		PatientIntakeID: req.PatientIntakeID,
		InitialData:     req.InitialData,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.StartJourneyResponse{
		JourneyID: j.ID,
		State:     j.CurrentState,
		CreatedAt: j.CreatedAt,
	})
}

// List handles GET /api/v1/journeys
func (h *Handler) List(c *gin.Context) {
	var req transport.ListJourneysRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	in := service.ListInput{State: req.State, Limit: req.Limit, Offset: req.Offset}
	if req.CoordinatorID != "" {
		id, err := uuid.Parse(req.CoordinatorID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid coordinator id", nil)
			return
		}
		in.CoordinatorID = &id
	}

	items, total, err := h.svc.ListJourneys(c.Request.Context(), in)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.JourneyListResponse{
		Items:  make([]transport.JourneyResponse, 0, len(items)),
		Total:  total,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	for i := range items {
		resp.Items = append(resp.Items, transport.ToJourneyResponse(&items[i]))
	}
	httpkit.OK(c, resp)
}

// Get handles GET /api/v1/journeys/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := journeyID(c)
	if !ok {
		return
	}

	j, err := h.svc.GetJourney(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToJourneyResponse(j))
}

// Transition handles POST /api/v1/journeys/:id/transition
func (h *Handler) Transition(c *gin.Context) {
	id, ok := journeyID(c)
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if !h.bind(c, &req) {
		return
	}

	in := service.TransitionInput{
		JourneyID:   id,
		TargetState: req.TargetState,
		Reason:      req.Reason,
		Actor:       req.Actor,
		ActorType:   eventlog.ActorType(req.ActorType),
		Metadata:    req.Metadata,
	}
	if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() {
		in.Actor = identity.ActorID()
		in.ActorType = eventlog.ActorType(identity.ActorType())
	}

	res, err := h.svc.Transition(c.Request.Context(), in)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.TransitionResponse{
		JourneyID:     res.JourneyID,
		PreviousState: res.PreviousState,
		CurrentState:  res.CurrentState,
		UpdatedAt:     res.UpdatedAt,
	})
}

// AssignCoordinator handles POST /api/v1/journeys/:id/assign-coordinator
func (h *Handler) AssignCoordinator(c *gin.Context) {
	id, ok := journeyID(c)
	if !ok {
		return
	}
	var req transport.AssignCoordinatorRequest
	if !h.bind(c, &req) {
		return
	}

	in := assignment.Input{JourneyID: id, CoordinatorID: req.CoordinatorID, Notes: req.Notes}
	if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() {
		in.ActorID = identity.ActorID()
		in.ActorType = eventlog.ActorType(identity.ActorType())
	}

	res, err := h.assigner.Assign(c.Request.Context(), in)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.AssignCoordinatorResponse{
		JourneyID:             res.JourneyID,
		CoordinatorID:         res.CoordinatorID,
		PreviousCoordinatorID: res.PreviousCoordinatorID,
		UpdatedAt:             res.UpdatedAt,
	})
}

// Timeline handles GET /api/v1/journeys/:id/timeline
func (h *Handler) Timeline(c *gin.Context) {
	id, ok := journeyID(c)
	if !ok {
		return
	}

	events, err := h.svc.Timeline(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.TimelineResponse{JourneyID: id, Events: transport.ToEventResponses(events)})
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

func journeyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJourneyID, nil)
		return uuid.Nil, false
	}
	return id, true
}
