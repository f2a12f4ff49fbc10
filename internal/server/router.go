// Package server wires handlers into a gin engine.
package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"reportgen/internal/handlers"
)

type RouterConfig struct {
	ReportTypeHandler *handlers.ReportTypeHandler
	RecordHandler     *handlers.RecordHandler
	APIHandler        *handlers.APIHandler
	SettingsHandler   *handlers.SettingsHandler
	// StaticDir, when set, is served under /static so stored upload keys
	// resolve as /static/<key>.
	StaticDir string
	// MaxMultipartMemory caps the in-memory part of multipart parsing.
	MaxMultipartMemory int64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	if cfg.MaxMultipartMemory > 0 {
		router.MaxMultipartMemory = cfg.MaxMultipartMemory
	}

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsCfg))

	if cfg.StaticDir != "" {
		router.Static("/static", cfg.StaticDir)
	}

	router.GET("/healthcheck", handlers.HealthCheck)

	// Report types
	rt := cfg.ReportTypeHandler
	router.GET("/report-types", rt.List)
	router.POST("/report-types", rt.Create)
	router.POST("/report-types/import", rt.Import)
	router.GET("/report-types/:id", rt.Get)
	router.DELETE("/report-types/:id", rt.Delete)
	router.PUT("/report-types/:id/fields", rt.UpdateFields)
	router.PUT("/report-types/:id/questions", rt.UpdateQuestions)
	router.PUT("/report-types/:id/prompt", rt.UpdatePrompt)

	// Records
	rec := cfg.RecordHandler
	router.GET("/report-types/:id/records", rec.List)
	router.POST("/report-types/:id/records", rec.Create)
	router.POST("/report-types/:id/upload", rec.Upload)
	router.POST("/report-types/:id/records/delete", rec.DeleteBatch)
	router.PUT("/report-types/:id/records/:rec_id", rec.Update)
	router.DELETE("/report-types/:id/records/:rec_id", rec.Delete)
	router.GET("/report-types/:id/records/:rec_id/excel", rec.Export)

	// Settings and chat
	st := cfg.SettingsHandler
	router.GET("/settings/openai", st.GetOpenAI)
	router.PUT("/settings/openai", st.SaveOpenAI)
	router.POST("/chat", st.Chat)

	// Name-addressed API
	api := router.Group("/api")
	{
		api.GET("/report-types", cfg.APIHandler.ReportNames)
		api.POST("/report/fields", cfg.APIHandler.Fields)
		api.POST("/report/questions", cfg.APIHandler.Questions)
		api.POST("/report/parse", cfg.APIHandler.Parse)
		api.POST("/report/record", cfg.APIHandler.CreateRecord)
	}

	return router
}
