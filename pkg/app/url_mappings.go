package app

import (
	"github.com/lemonbanan4/ai-web-research/internal/controllers"
	"github.com/lemonbanan4/ai-web-research/internal/providers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupMappings(app *Application) {
	r := app.Engine
	{
		r.POST("/research", controllers.NewSubmitResearchController(app.Research).Handle)
		r.GET("/research/:task_id", controllers.NewGetResearchController(app.Research).Handle)
		r.POST("/export_pdf", controllers.NewExportReportController(app.Reports).Handle)
		r.POST("/chat", controllers.NewChatController(app.Chat).Handle)
	}

	r.Static("/"+providers.ReportsDir, app.Artifacts.Dir(providers.ReportsDir))
	r.Static("/"+providers.ScreenshotsDir, app.Artifacts.Dir(providers.ScreenshotsDir))

	r.GET("/healthz", controllers.NewHealthController(app.Registry).Handle)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
