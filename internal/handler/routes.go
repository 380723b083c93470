package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the timetable and export endpoints on group.
func RegisterRoutes(group *gin.RouterGroup, timetables *TimetableHandler, exports *ExportHandler) {
	tt := group.Group("/timetables")
	tt.POST("/generate", timetables.Generate)
	tt.GET("", timetables.List)
	tt.GET("/:id", timetables.Get)
	tt.DELETE("/:id", timetables.Delete)
	tt.POST("/:id/sessions", timetables.Open)

	sessions := tt.Group("/sessions/:sessionId")
	sessions.GET("", timetables.Session)
	sessions.DELETE("", timetables.CloseSession)
	sessions.GET("/blocks", timetables.Blocks)
	sessions.GET("/conflicts", timetables.Conflicts)
	sessions.POST("/moves", timetables.Move)
	sessions.POST("/selection", timetables.Select)
	sessions.DELETE("/selection", timetables.CancelSelection)
	sessions.POST("/selection/drop", timetables.Drop)
	sessions.POST("/reset", timetables.Reset)
	sessions.POST("/save", timetables.Save)
	sessions.POST("/exports", timetables.Export)

	ex := group.Group("/exports")
	ex.GET("/jobs/:jobId", exports.Status)
	ex.GET("/download/:token", exports.Download)
}

// RegisterObservability mounts health, readiness and metrics endpoints on the engine root.
func RegisterObservability(r *gin.Engine, metrics *MetricsHandler) {
	r.GET("/health", metrics.Health)
	r.GET("/ready", metrics.Ready)
	r.GET("/metrics", metrics.Prometheus)
	r.GET("/metrics/summary", metrics.Snapshot)
}
