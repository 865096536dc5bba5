package controllers

import (
	"net/http"

	"github.com/lemonbanan4/ai-web-research/internal/services"

	"github.com/gin-gonic/gin"
)

type submitResearchController struct{ svc services.ResearchService }

func NewSubmitResearchController(svc services.ResearchService) *submitResearchController {
	return &submitResearchController{svc}
}

type submitReq struct {
	Query string `json:"query"`
}

func (h *submitResearchController) Handle(c *gin.Context) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	task, err := h.svc.Submit(c.Request.Context(), req.Query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID})
}
