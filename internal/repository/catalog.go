package repository

import (
	"context"

	"github.com/sonoralabs/sonora/internal/domain"
)

type ArtistRepository interface {
	Create(ctx context.Context, a *domain.Artist) (*domain.Artist, error)
	FindByID(ctx context.Context, id int64) (*domain.Artist, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Artist, error)
	Update(ctx context.Context, a *domain.Artist) error
	Delete(ctx context.Context, id int64) error
}

type AlbumRepository interface {
	Create(ctx context.Context, a *domain.Album) (*domain.Album, error)
	FindByID(ctx context.Context, id int64) (*domain.Album, error)
	ListByArtist(ctx context.Context, artistID int64) ([]*domain.Album, error)
	Update(ctx context.Context, a *domain.Album) error
	Delete(ctx context.Context, id int64) error
}

type TrackRepository interface {
	Create(ctx context.Context, t *domain.Track) (*domain.Track, error)
	FindByID(ctx context.Context, id int64) (*domain.Track, error)
	ListByAlbum(ctx context.Context, albumID int64) ([]*domain.Track, error)
	Update(ctx context.Context, t *domain.Track) error
	Delete(ctx context.Context, id int64) error
}
