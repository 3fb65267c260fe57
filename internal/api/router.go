package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all routes for the autofill service.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.GET("/healthz", api.HealthzHandler)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/documents", api.UploadDocumentHandler)
		v1.POST("/query", api.QueryHandler)
		v1.POST("/extract", api.ExtractHandler)
		v1.POST("/schema", api.InferSchemaHandler)
		v1.POST("/fill", api.FillHandler)
		v1.POST("/session/reset", api.ResetSessionHandler)
	}
}
