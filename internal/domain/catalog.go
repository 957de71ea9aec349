package domain

import (
	"errors"
	"time"
)

var (
	ErrArtistNotFound = errors.New("artist not found")
	ErrAlbumNotFound  = errors.New("album not found")
	ErrTrackNotFound  = errors.New("track not found")
)

type Artist struct {
	ID        int64
	Name      string
	Bio       *string
	ImageURL  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Album struct {
	ID          int64
	ArtistID    int64
	Title       string
	ReleaseYear *int
	CoverURL    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Track struct {
	ID          int64
	AlbumID     int64
	Title       string
	DurationSec int
	TrackNumber int
	AudioURL    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
