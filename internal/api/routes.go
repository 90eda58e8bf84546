package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvforge/internal/ai"
	"cvforge/internal/api/middleware"
	"cvforge/internal/auth"
	"cvforge/internal/config"
	"cvforge/internal/database"
	"cvforge/internal/editor"
	"cvforge/internal/handoff"
	"cvforge/internal/intake"
	"cvforge/internal/render"
	"cvforge/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	aiService *ai.Service,
) {
	engine := render.NewEngine(logger)
	saver := editor.NewSaver(database.NewCVStore(db), logger)
	slot := handoff.NewSlot(redisClient)
	scanner := intake.NewScanner(cfg.Upload.ClamdAddr)

	authHandler := NewAuthHandler(
		db, authService, redisClient, logger,
		cfg.Auth.LoginRatePerHour,
		cfg.Auth.LoginLockAfter,
		time.Duration(cfg.Auth.LoginLockTTLMin)*time.Minute,
		"",
	)
	cvHandler := NewCVHandler(db, asynqClient, saver, engine)
	templateHandler := NewTemplateHandler(db, engine)
	packageHandler := NewPackageHandler(db)
	adminHandler := NewAdminHandler(db, cfg.API.AdminEmail, logger)
	editorHandler := NewEditorHandler(db, slot, database.NewTemplateCatalog(db), engine)
	profileImageHandler := NewProfileImageHandler(storageClient, scanner, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger, nil)

	var aiHandler *AIHandler
	if aiService != nil {
		aiHandler = NewAIHandler(aiService, slot, scanner, cfg.Upload.MaxBytes)
	}

	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
			authGroup.GET("/profile", authMiddleware, authHandler.Profile)
		}

		v1.GET("/templates", templateHandler.ListTemplates)
		v1.GET("/templates/:id", templateHandler.GetTemplate)
		v1.GET("/templates/:id/preview", templateHandler.PreviewTemplate)
		v1.GET("/packages", packageHandler.ListPackages)

		cvGroup := v1.Group("/cvs")
		cvGroup.Use(authMiddleware)
		{
			cvGroup.POST("", cvHandler.CreateCV)
			cvGroup.GET("", cvHandler.ListCVs)
			cvGroup.GET("/:id", cvHandler.GetCV)
			cvGroup.PUT("/:id", cvHandler.UpdateCV)
			cvGroup.DELETE("/:id", cvHandler.DeleteCV)
			cvGroup.GET("/:id/export/pdf", cvHandler.ExportPDF)
			cvGroup.GET("/:id/export/docx", cvHandler.ExportDOCX)
			cvGroup.GET("/:id/export/html", cvHandler.ExportHTML)
		}

		editorGroup := v1.Group("/editor")
		editorGroup.Use(authMiddleware)
		{
			editorGroup.GET("/bootstrap", editorHandler.Bootstrap)
			editorGroup.POST("/select-template", editorHandler.SelectTemplate)
		}

		if aiHandler != nil {
			aiGroup := v1.Group("/ai")
			aiGroup.Use(authMiddleware)
			{
				aiGroup.POST("/chat", aiHandler.Chat)
				aiGroup.POST("/generate", aiHandler.Generate)
				aiGroup.POST("/upload-resume", aiHandler.UploadResume)
			}
		}

		imageGroup := v1.Group("/profile-image")
		imageGroup.Use(authMiddleware)
		{
			imageGroup.POST("", profileImageHandler.Upload)
			imageGroup.GET("/url", profileImageHandler.GetURL)
		}

		adminGroup := v1.Group("/admin")
		adminGroup.Use(authMiddleware, adminHandler.RequireAdmin())
		{
			adminGroup.POST("/templates", adminHandler.UpsertTemplate)
			adminGroup.PUT("/templates", adminHandler.UpsertTemplate)
			adminGroup.DELETE("/templates/:id", adminHandler.DeleteTemplate)
			adminGroup.POST("/templates/repair", adminHandler.RepairTemplates)
			adminGroup.POST("/packages", adminHandler.CreatePackage)
			adminGroup.PUT("/packages/:id", adminHandler.UpdatePackage)
			adminGroup.DELETE("/packages/:id", adminHandler.DeletePackage)
		}
	}
}
