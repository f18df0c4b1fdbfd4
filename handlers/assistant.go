package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type assistantRequest struct {
	Message string `json:"message" validate:"required,max=1000"`
}

// AskAssistant handles POST /api/assistant.
func (h *Handler) AskAssistant(c *gin.Context) {
	const op = "handlers.AskAssistant"

	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, op, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(c, op, err)
		return
	}

	c.JSON(http.StatusOK, h.Assistant.Answer(c.Request.Context(), req.Message))
}
