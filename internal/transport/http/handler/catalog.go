package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sonoralabs/sonora/internal/domain"
	"github.com/sonoralabs/sonora/internal/usecase"
)

type CatalogHandler struct {
	catalog *usecase.CatalogUsecase
	logger  *slog.Logger
}

func NewCatalogHandler(catalog *usecase.CatalogUsecase, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger.With("component", "catalog_handler")}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *CatalogHandler) notFoundOr500(c *gin.Context, op string, err error) {
	if errors.Is(err, domain.ErrArtistNotFound) ||
		errors.Is(err, domain.ErrAlbumNotFound) ||
		errors.Is(err, domain.ErrTrackNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": errNotFound})
		return
	}
	h.logger.Error(op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
}

// Artists

type artistRequest struct {
	Name     string  `json:"name" binding:"required"`
	Bio      *string `json:"bio"`
	ImageURL *string `json:"image_url" binding:"omitempty,url"`
}

func (h *CatalogHandler) CreateArtist(c *gin.Context) {
	var req artistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	artist, err := h.catalog.CreateArtist(c.Request.Context(), &domain.Artist{
		Name: req.Name, Bio: req.Bio, ImageURL: req.ImageURL,
	})
	if err != nil {
		h.notFoundOr500(c, "create artist", err)
		return
	}
	c.JSON(http.StatusCreated, artist)
}

func (h *CatalogHandler) GetArtist(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	artist, err := h.catalog.GetArtist(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr500(c, "get artist", err)
		return
	}
	c.JSON(http.StatusOK, artist)
}

func (h *CatalogHandler) ListArtists(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	artists, err := h.catalog.ListArtists(c.Request.Context(), limit, offset)
	if err != nil {
		h.notFoundOr500(c, "list artists", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artists": artists})
}

func (h *CatalogHandler) UpdateArtist(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req artistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.catalog.UpdateArtist(c.Request.Context(), &domain.Artist{
		ID: id, Name: req.Name, Bio: req.Bio, ImageURL: req.ImageURL,
	})
	if err != nil {
		h.notFoundOr500(c, "update artist", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) DeleteArtist(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteArtist(c.Request.Context(), id); err != nil {
		h.notFoundOr500(c, "delete artist", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Albums

type albumRequest struct {
	ArtistID    int64   `json:"artist_id" binding:"required"`
	Title       string  `json:"title"     binding:"required"`
	ReleaseYear *int    `json:"release_year"`
	CoverURL    *string `json:"cover_url" binding:"omitempty,url"`
}

func (h *CatalogHandler) CreateAlbum(c *gin.Context) {
	var req albumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	album, err := h.catalog.CreateAlbum(c.Request.Context(), &domain.Album{
		ArtistID: req.ArtistID, Title: req.Title,
		ReleaseYear: req.ReleaseYear, CoverURL: req.CoverURL,
	})
	if err != nil {
		h.notFoundOr500(c, "create album", err)
		return
	}
	c.JSON(http.StatusCreated, album)
}

func (h *CatalogHandler) GetAlbum(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	album, err := h.catalog.GetAlbum(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr500(c, "get album", err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func (h *CatalogHandler) ListArtistAlbums(c *gin.Context) {
	artistID, ok := pathID(c, "id")
	if !ok {
		return
	}
	albums, err := h.catalog.ListAlbumsByArtist(c.Request.Context(), artistID)
	if err != nil {
		h.notFoundOr500(c, "list albums", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": albums})
}

func (h *CatalogHandler) UpdateAlbum(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req albumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.catalog.UpdateAlbum(c.Request.Context(), &domain.Album{
		ID: id, Title: req.Title, ReleaseYear: req.ReleaseYear, CoverURL: req.CoverURL,
	})
	if err != nil {
		h.notFoundOr500(c, "update album", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) DeleteAlbum(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteAlbum(c.Request.Context(), id); err != nil {
		h.notFoundOr500(c, "delete album", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Tracks

type trackRequest struct {
	AlbumID     int64   `json:"album_id"  binding:"required"`
	Title       string  `json:"title"     binding:"required"`
	DurationSec int     `json:"duration_sec"`
	TrackNumber int     `json:"track_number"`
	AudioURL    *string `json:"audio_url" binding:"omitempty,url"`
}

func (h *CatalogHandler) CreateTrack(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	track, err := h.catalog.CreateTrack(c.Request.Context(), &domain.Track{
		AlbumID: req.AlbumID, Title: req.Title,
		DurationSec: req.DurationSec, TrackNumber: req.TrackNumber, AudioURL: req.AudioURL,
	})
	if err != nil {
		h.notFoundOr500(c, "create track", err)
		return
	}
	c.JSON(http.StatusCreated, track)
}

func (h *CatalogHandler) GetTrack(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	track, err := h.catalog.GetTrack(c.Request.Context(), id)
	if err != nil {
		h.notFoundOr500(c, "get track", err)
		return
	}
	c.JSON(http.StatusOK, track)
}

func (h *CatalogHandler) ListAlbumTracks(c *gin.Context) {
	albumID, ok := pathID(c, "id")
	if !ok {
		return
	}
	tracks, err := h.catalog.ListTracksByAlbum(c.Request.Context(), albumID)
	if err != nil {
		h.notFoundOr500(c, "list tracks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

func (h *CatalogHandler) UpdateTrack(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.catalog.UpdateTrack(c.Request.Context(), &domain.Track{
		ID: id, Title: req.Title, DurationSec: req.DurationSec,
		TrackNumber: req.TrackNumber, AudioURL: req.AudioURL,
	})
	if err != nil {
		h.notFoundOr500(c, "update track", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) DeleteTrack(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteTrack(c.Request.Context(), id); err != nil {
		h.notFoundOr500(c, "delete track", err)
		return
	}
	c.Status(http.StatusNoContent)
}
