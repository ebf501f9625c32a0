package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "teamkb/internal/app"
	"teamkb/internal/bootstrap"
	"teamkb/internal/repository"
	"teamkb/internal/transport/http/handler"
	"teamkb/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	docRepo := repository.NewDocumentRepository(app.MySQL)
	folderRepo := repository.NewFolderRepository(app.MySQL)
	kbRepo := repository.NewKnowledgeBaseRepository(app.MySQL)
	versionRepo := repository.NewDocumentVersionRepository(app.MySQL)
	favoriteRepo := repository.NewFavoriteRepository(app.MySQL)
	settingsRepo := repository.NewProjectSettingsRepository(app.MySQL)

	folderService := appsvc.NewFolderService(
		folderRepo, docRepo, versionRepo, kbRepo,
		app.Blobs, app.VectorIndex, app.Logger,
	)
	docService := appsvc.NewDocumentService(
		docRepo, folderRepo, versionRepo, favoriteRepo,
		app.Blobs, app.IngestPublisher, app.Logger,
		time.Duration(app.Config.Storage.SignedURLTTLSecs)*time.Second,
	)
	versionService := appsvc.NewVersionService(
		docRepo, versionRepo, app.Blobs, app.IngestPublisher, app.Logger,
	)
	transcriptService := appsvc.NewTranscriptService(
		docRepo, folderRepo, kbRepo, settingsRepo,
		app.Blobs, app.IngestPublisher, app.Logger,
	)
	searchService := appsvc.NewSearchService(
		docRepo, app.Embedder, app.VectorIndex, app.SearchCache, app.Logger,
		appsvc.SearchOptions{
			KeywordScore:       app.Config.Search.KeywordScore,
			SemanticTopKFactor: app.Config.Search.SemanticTopKFactor,
			DefaultLimit:       app.Config.Search.DefaultLimit,
			MaxLimit:           app.Config.Search.MaxLimit,
			SemanticTimeout:    time.Duration(app.Config.Search.SemanticTimeoutMSec) * time.Millisecond,
		},
	)

	folderHandler := handler.NewFolderHandler(folderService)
	docHandler := handler.NewDocumentHandler(docService, versionService)
	searchHandler := handler.NewSearchHandler(searchService, app.Reprocessor)
	transcriptHandler := handler.NewTranscriptHandler(transcriptService)
	blobHandler := handler.NewBlobHandler(app.Blobs, app.Signer)

	v1 := router.Group("/api/v1")

	// Signed URLs carry their own authorization.
	v1.GET("/blobs/*key", blobHandler.Download)

	scoped := v1.Group("")
	scoped.Use(middleware.RequireTeam())

	scoped.POST("/folders", folderHandler.Create)
	scoped.GET("/folders", folderHandler.List)
	scoped.PATCH("/folders/:id", folderHandler.Move)
	scoped.DELETE("/folders/:id", folderHandler.Delete)

	scoped.POST("/documents", docHandler.Upload)
	scoped.GET("/documents", docHandler.List)
	scoped.GET("/documents/:id", docHandler.Get)
	scoped.DELETE("/documents/:id", docHandler.Archive)
	scoped.GET("/documents/:id/download", docHandler.Download)
	scoped.POST("/documents/:id/versions", docHandler.UploadVersion)
	scoped.GET("/documents/:id/versions", docHandler.ListVersions)
	scoped.POST("/documents/:id/favorite", docHandler.AddFavorite)
	scoped.DELETE("/documents/:id/favorite", docHandler.RemoveFavorite)
	scoped.GET("/favorites", docHandler.ListFavorites)

	scoped.POST("/transcripts", transcriptHandler.Save)
	scoped.POST("/search", searchHandler.Search)
	scoped.POST("/reprocess", searchHandler.Reprocess)

	return router
}
