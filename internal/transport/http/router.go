package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/sonoralabs/sonora/internal/transport/http/handler"
	"github.com/sonoralabs/sonora/internal/transport/http/middleware"
)

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, catalogHandler *handler.CatalogHandler, sessions middleware.SessionParser) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(sessions)

	// Public auth routes
	auth := r.Group("/auth")
	auth.POST("/signup", authHandler.SignUp)
	auth.GET("/verify-email", authHandler.VerifyEmail)
	auth.POST("/login", authHandler.Login)
	auth.POST("/magic-link", authHandler.RequestMagicLink)
	auth.GET("/magic-link/verify", authHandler.VerifyMagicLink)
	auth.POST("/google", authHandler.GoogleCallback)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.GET("/me", authMW, authHandler.Me)

	// Catalog reads are public; writes require a session.
	api := r.Group("/api")
	api.GET("/artists", catalogHandler.ListArtists)
	api.GET("/artists/:id", catalogHandler.GetArtist)
	api.GET("/artists/:id/albums", catalogHandler.ListArtistAlbums)
	api.GET("/albums/:id", catalogHandler.GetAlbum)
	api.GET("/albums/:id/tracks", catalogHandler.ListAlbumTracks)
	api.GET("/tracks/:id", catalogHandler.GetTrack)

	protected := api.Group("", authMW)
	protected.POST("/artists", catalogHandler.CreateArtist)
	protected.PUT("/artists/:id", catalogHandler.UpdateArtist)
	protected.DELETE("/artists/:id", catalogHandler.DeleteArtist)
	protected.POST("/albums", catalogHandler.CreateAlbum)
	protected.PUT("/albums/:id", catalogHandler.UpdateAlbum)
	protected.DELETE("/albums/:id", catalogHandler.DeleteAlbum)
	protected.POST("/tracks", catalogHandler.CreateTrack)
	protected.PUT("/tracks/:id", catalogHandler.UpdateTrack)
	protected.DELETE("/tracks/:id", catalogHandler.DeleteTrack)

	return r
}
