package controllers

import (
	"net/http"

	"github.com/lemonbanan4/ai-web-research/internal/repository"

	"github.com/gin-gonic/gin"
)

type healthController struct{ registry repository.TaskRegistry }

func NewHealthController(registry repository.TaskRegistry) *healthController {
	return &healthController{registry}
}

func (h *healthController) Handle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "tasks": h.registry.Len()})
}
