package usecase

import (
	"context"

	"github.com/sonoralabs/sonora/internal/domain"
	"github.com/sonoralabs/sonora/internal/repository"
)

const defaultListLimit = 50

// CatalogUsecase is thin CRUD over the music catalog.
type CatalogUsecase struct {
	artists repository.ArtistRepository
	albums  repository.AlbumRepository
	tracks  repository.TrackRepository
}

func NewCatalogUsecase(artists repository.ArtistRepository, albums repository.AlbumRepository, tracks repository.TrackRepository) *CatalogUsecase {
	return &CatalogUsecase{artists: artists, albums: albums, tracks: tracks}
}

func (u *CatalogUsecase) CreateArtist(ctx context.Context, a *domain.Artist) (*domain.Artist, error) {
	return u.artists.Create(ctx, a)
}

func (u *CatalogUsecase) GetArtist(ctx context.Context, id int64) (*domain.Artist, error) {
	return u.artists.FindByID(ctx, id)
}

func (u *CatalogUsecase) ListArtists(ctx context.Context, limit, offset int) ([]*domain.Artist, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return u.artists.List(ctx, limit, offset)
}

func (u *CatalogUsecase) UpdateArtist(ctx context.Context, a *domain.Artist) error {
	return u.artists.Update(ctx, a)
}

func (u *CatalogUsecase) DeleteArtist(ctx context.Context, id int64) error {
	return u.artists.Delete(ctx, id)
}

func (u *CatalogUsecase) CreateAlbum(ctx context.Context, a *domain.Album) (*domain.Album, error) {
	if _, err := u.artists.FindByID(ctx, a.ArtistID); err != nil {
		return nil, err
	}
	return u.albums.Create(ctx, a)
}

func (u *CatalogUsecase) GetAlbum(ctx context.Context, id int64) (*domain.Album, error) {
	return u.albums.FindByID(ctx, id)
}

func (u *CatalogUsecase) ListAlbumsByArtist(ctx context.Context, artistID int64) ([]*domain.Album, error) {
	return u.albums.ListByArtist(ctx, artistID)
}

func (u *CatalogUsecase) UpdateAlbum(ctx context.Context, a *domain.Album) error {
	return u.albums.Update(ctx, a)
}

func (u *CatalogUsecase) DeleteAlbum(ctx context.Context, id int64) error {
	return u.albums.Delete(ctx, id)
}

func (u *CatalogUsecase) CreateTrack(ctx context.Context, t *domain.Track) (*domain.Track, error) {
	if _, err := u.albums.FindByID(ctx, t.AlbumID); err != nil {
		return nil, err
	}
	return u.tracks.Create(ctx, t)
}

func (u *CatalogUsecase) GetTrack(ctx context.Context, id int64) (*domain.Track, error) {
	return u.tracks.FindByID(ctx, id)
}

func (u *CatalogUsecase) ListTracksByAlbum(ctx context.Context, albumID int64) ([]*domain.Track, error) {
	return u.tracks.ListByAlbum(ctx, albumID)
}

func (u *CatalogUsecase) UpdateTrack(ctx context.Context, t *domain.Track) error {
	return u.tracks.Update(ctx, t)
}

func (u *CatalogUsecase) DeleteTrack(ctx context.Context, id int64) error {
	return u.tracks.Delete(ctx, id)
}
