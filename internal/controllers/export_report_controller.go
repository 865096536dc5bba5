package controllers

import (
	"net/http"

	"github.com/lemonbanan4/ai-web-research/internal/services"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"github.com/gin-gonic/gin"
)

type exportReportController struct{ svc services.ReportService }

func NewExportReportController(svc services.ReportService) *exportReportController {
	return &exportReportController{svc}
}

func (h *exportReportController) Handle(c *gin.Context) {
	var req domain.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	res, err := h.svc.Export(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
