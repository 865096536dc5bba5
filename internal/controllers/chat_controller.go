package controllers

import (
	"net/http"

	"github.com/lemonbanan4/ai-web-research/internal/llm"
	"github.com/lemonbanan4/ai-web-research/internal/services"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"github.com/gin-gonic/gin"
)

type chatController struct{ svc services.ChatService }

func NewChatController(svc services.ChatService) *chatController {
	return &chatController{svc}
}

func (h *chatController) Handle(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	history := make([]llm.Message, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	reply, err := h.svc.Reply(c.Request.Context(), history, req.Query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.ChatReply{Reply: reply})
}
