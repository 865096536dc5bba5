package controllers

import (
	"errors"
	"net/http"

	"github.com/lemonbanan4/ai-web-research/internal/services"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"github.com/gin-gonic/gin"
)

type getResearchController struct{ svc services.ResearchService }

func NewGetResearchController(svc services.ResearchService) *getResearchController {
	return &getResearchController{svc}
}

func (h *getResearchController) Handle(c *gin.Context) {
	task, err := h.svc.Get(c.Request.Context(), c.Param("task_id"))
	if errors.Is(err, domain.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}
