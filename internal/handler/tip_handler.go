package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusflow/internal/service"
)

type TipHandler struct {
	tipService *service.TipService
}

func NewTipHandler(tipService *service.TipService) *TipHandler {
	return &TipHandler{tipService: tipService}
}

func (h *TipHandler) Random(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tip": h.tipService.Random()})
}
