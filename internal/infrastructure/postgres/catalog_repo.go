package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sonoralabs/sonora/internal/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// ArtistRepository

type ArtistRepository struct {
	pool *pgxpool.Pool
}

func NewArtistRepository(pool *pgxpool.Pool) *ArtistRepository {
	return &ArtistRepository{pool: pool}
}

const artistColumns = `id, name, bio, image_url, created_at, updated_at`

func (r *ArtistRepository) Create(ctx context.Context, a *domain.Artist) (*domain.Artist, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO artists (name, bio, image_url)
		VALUES ($1, $2, $3)
		RETURNING `+artistColumns,
		a.Name, a.Bio, a.ImageURL,
	)
	return scanArtist(row)
}

func (r *ArtistRepository) FindByID(ctx context.Context, id int64) (*domain.Artist, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE id = $1`, id)
	a, err := scanArtist(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrArtistNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *ArtistRepository) List(ctx context.Context, limit, offset int) ([]*domain.Artist, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+artistColumns+` FROM artists ORDER BY name ASC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	defer rows.Close()

	var artists []*domain.Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

func (r *ArtistRepository) Update(ctx context.Context, a *domain.Artist) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE artists
		SET name = $2, bio = $3, image_url = $4, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.Name, a.Bio, a.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("update artist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrArtistNotFound
	}
	return nil
}

func (r *ArtistRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM artists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete artist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrArtistNotFound
	}
	return nil
}

func scanArtist(row rowScanner) (*domain.Artist, error) {
	var a domain.Artist
	err := row.Scan(&a.ID, &a.Name, &a.Bio, &a.ImageURL, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan artist: %w", err)
	}
	return &a, nil
}

// AlbumRepository

type AlbumRepository struct {
	pool *pgxpool.Pool
}

func NewAlbumRepository(pool *pgxpool.Pool) *AlbumRepository {
	return &AlbumRepository{pool: pool}
}

const albumColumns = `id, artist_id, title, release_year, cover_url, created_at, updated_at`

func (r *AlbumRepository) Create(ctx context.Context, a *domain.Album) (*domain.Album, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO albums (artist_id, title, release_year, cover_url)
		VALUES ($1, $2, $3, $4)
		RETURNING `+albumColumns,
		a.ArtistID, a.Title, a.ReleaseYear, a.CoverURL,
	)
	return scanAlbum(row)
}

func (r *AlbumRepository) FindByID(ctx context.Context, id int64) (*domain.Album, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE id = $1`, id)
	a, err := scanAlbum(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlbumNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AlbumRepository) ListByArtist(ctx context.Context, artistID int64) ([]*domain.Album, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE artist_id = $1 ORDER BY release_year ASC`,
		artistID)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()

	var albums []*domain.Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

func (r *AlbumRepository) Update(ctx context.Context, a *domain.Album) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE albums
		SET title = $2, release_year = $3, cover_url = $4, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.Title, a.ReleaseYear, a.CoverURL,
	)
	if err != nil {
		return fmt.Errorf("update album: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlbumNotFound
	}
	return nil
}

func (r *AlbumRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM albums WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlbumNotFound
	}
	return nil
}

func scanAlbum(row rowScanner) (*domain.Album, error) {
	var a domain.Album
	err := row.Scan(&a.ID, &a.ArtistID, &a.Title, &a.ReleaseYear, &a.CoverURL, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan album: %w", err)
	}
	return &a, nil
}

// TrackRepository

type TrackRepository struct {
	pool *pgxpool.Pool
}

func NewTrackRepository(pool *pgxpool.Pool) *TrackRepository {
	return &TrackRepository{pool: pool}
}

const trackColumns = `id, album_id, title, duration_sec, track_number, audio_url, created_at, updated_at`

func (r *TrackRepository) Create(ctx context.Context, t *domain.Track) (*domain.Track, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tracks (album_id, title, duration_sec, track_number, audio_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+trackColumns,
		t.AlbumID, t.Title, t.DurationSec, t.TrackNumber, t.AudioURL,
	)
	return scanTrack(row)
}

func (r *TrackRepository) FindByID(ctx context.Context, id int64) (*domain.Track, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE id = $1`, id)
	t, err := scanTrack(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTrackNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TrackRepository) ListByAlbum(ctx context.Context, albumID int64) ([]*domain.Track, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE album_id = $1 ORDER BY track_number ASC`,
		albumID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*domain.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func (r *TrackRepository) Update(ctx context.Context, t *domain.Track) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tracks
		SET title = $2, duration_sec = $3, track_number = $4, audio_url = $5, updated_at = NOW()
		WHERE id = $1`,
		t.ID, t.Title, t.DurationSec, t.TrackNumber, t.AudioURL,
	)
	if err != nil {
		return fmt.Errorf("update track: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTrackNotFound
	}
	return nil
}

func (r *TrackRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tracks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTrackNotFound
	}
	return nil
}

func scanTrack(row rowScanner) (*domain.Track, error) {
	var t domain.Track
	err := row.Scan(&t.ID, &t.AlbumID, &t.Title, &t.DurationSec, &t.TrackNumber, &t.AudioURL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan track: %w", err)
	}
	return &t, nil
}
