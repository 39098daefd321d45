package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusflow/internal/middleware"
	"focusflow/internal/model"
	"focusflow/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

type statusRequest struct {
	Status model.Status `json:"status"`
}

type cycleRequest struct {
	Cycle int `json:"cycle"`
}

type activityRequest struct {
	Type    model.ActivityType `json:"type"`
	Message string             `json:"message"`
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req model.CreateSessionParams
	if !bindJSON(c, &req) {
		return
	}

	created, apiErr := h.sessionService.Create(c.Request.Context(), middleware.UserID(c), req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": created})
}

func (h *SessionHandler) Get(c *gin.Context) {
	found, apiErr := h.sessionService.GetByID(c.Request.Context(), c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": found})
}

func (h *SessionHandler) GetByCode(c *gin.Context) {
	found, apiErr := h.sessionService.GetByCode(c.Request.Context(), c.Param("code"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": found})
}

func (h *SessionHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, apiErr := h.sessionService.SetStatus(c.Request.Context(), c.Param("id"), req.Status, middleware.Origin(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": updated})
}

func (h *SessionHandler) SetCycle(c *gin.Context) {
	var req cycleRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, apiErr := h.sessionService.SetCycle(c.Request.Context(), c.Param("id"), req.Cycle, middleware.Origin(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": updated})
}

func (h *SessionHandler) SetTimerState(c *gin.Context) {
	var req service.TimerStateInput
	if !bindJSON(c, &req) {
		return
	}

	updated, apiErr := h.sessionService.SetTimerState(c.Request.Context(), c.Param("id"), req, middleware.Origin(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": updated})
}

func (h *SessionHandler) CheckCompletion(c *gin.Context) {
	updated, apiErr := h.sessionService.CheckCompletion(c.Request.Context(), c.Param("id"), middleware.Origin(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": updated})
}

func (h *SessionHandler) Join(c *gin.Context) {
	joined, apiErr := h.sessionService.Join(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": joined})
}

func (h *SessionHandler) History(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	sessions, apiErr := h.sessionService.History(c.Request.Context(), middleware.UserID(c), limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *SessionHandler) RecordActivity(c *gin.Context) {
	var req activityRequest
	if !bindJSON(c, &req) {
		return
	}

	activity, apiErr := h.sessionService.RecordActivity(
		c.Request.Context(),
		c.Param("id"),
		middleware.UserID(c),
		req.Type,
		req.Message,
	)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"activity": activity})
}

func (h *SessionHandler) Activities(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	activities, apiErr := h.sessionService.Activities(c.Request.Context(), c.Param("id"), limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}
