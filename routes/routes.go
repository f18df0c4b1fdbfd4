package routes

import (
	"city-samadhan/handlers"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires every endpoint. authMW must put the signed-in user on
// the request context; everything under the authed group depends on it.
func SetupRouter(h *handlers.Handler, authMW gin.HandlerFunc) *gin.Engine {
	r := gin.Default()

	r.GET("/", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/assistant", h.AskAssistant)
	}

	authed := api.Group("", authMW)
	{
		authed.POST("/location/resolve", h.ResolveLocation)

		drafts := authed.Group("/drafts")
		{
			drafts.POST("", h.CreateDraft)
			drafts.GET("/:id", h.GetDraft)
			drafts.PATCH("/:id", h.UpdateDraft)
			drafts.DELETE("/:id", h.DeleteDraft)
			drafts.POST("/:id/images", h.AddDraftImage)
			drafts.DELETE("/:id/images/:assetId", h.RemoveDraftImage)
			drafts.PUT("/:id/voice", h.SetDraftVoiceNote)
			drafts.DELETE("/:id/voice", h.ClearDraftVoiceNote)
			drafts.PUT("/:id/location", h.SetDraftLocation)
			drafts.POST("/:id/submit", h.SubmitDraft)
		}

		authed.POST("/reports", h.SubmitReport)
		// the websocket route is registered outside the gzip group; a
		// compressing writer cannot be hijacked
		authed.GET("/reports/live", h.LiveReports)

		lists := authed.Group("", gzip.Gzip(gzip.DefaultCompression))
		{
			lists.GET("/reports", h.ListReports)
			lists.GET("/reports/:id", h.GetReport)
			lists.GET("/issues/nearby", h.NearbyIssues)
		}
		authed.POST("/issues/:id/upvote", h.UpvoteIssue)
	}

	return r
}
