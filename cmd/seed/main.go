// seed inserts a verified dev user and a small sample catalog into the
// local dev database. Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/sonoralabs/sonora/internal/infrastructure/postgres"
)

const (
	seedEmail    = "seed@test.local"
	seedPassword = "seed-password"
)

type albumSpec struct {
	title  string
	year   int
	tracks []string
}

type artistSpec struct {
	name   string
	albums []albumSpec
}

var catalog = []artistSpec{
	{
		name: "The Midnight Static",
		albums: []albumSpec{
			{"Signal Lost", 2019, []string{"Carrier Wave", "White Noise", "Dead Air"}},
			{"Retuned", 2022, []string{"Frequency", "Modulation", "Broadcast"}},
		},
	},
	{
		name: "Velvet Harbor",
		albums: []albumSpec{
			{"Low Tide", 2020, []string{"Driftwood", "Undertow", "Salt & Light"}},
		},
	},
	{
		name: "Paper Satellites",
		albums: []albumSpec{
			{"Orbital", 2021, []string{"Launch", "Apogee", "Re-entry", "Splashdown"}},
		},
	},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set — run: direnv allow")
	}

	if err := postgres.Migrate(ctx, dbURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	// Upsert a verified local user so login works out of the box.
	var userID int64
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, display_name, password_hash, auth_provider, email_verified)
		VALUES ($1, 'Seed User', $2, 'local', TRUE)
		ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
		RETURNING id`,
		seedEmail, string(hash),
	).Scan(&userID)
	if err != nil {
		log.Fatalf("upsert user: %v", err)
	}

	var artists, albums, tracks int
	for _, a := range catalog {
		var artistID int64
		err := pool.QueryRow(ctx,
			`INSERT INTO artists (name) VALUES ($1) RETURNING id`, a.name,
		).Scan(&artistID)
		if err != nil {
			log.Fatalf("insert artist %s: %v", a.name, err)
		}
		artists++

		for _, al := range a.albums {
			var albumID int64
			err := pool.QueryRow(ctx, `
				INSERT INTO albums (artist_id, title, release_year)
				VALUES ($1, $2, $3) RETURNING id`,
				artistID, al.title, al.year,
			).Scan(&albumID)
			if err != nil {
				log.Fatalf("insert album %s: %v", al.title, err)
			}
			albums++

			for i, tr := range al.tracks {
				_, err := pool.Exec(ctx, `
					INSERT INTO tracks (album_id, title, track_number, duration_sec)
					VALUES ($1, $2, $3, $4)`,
					albumID, tr, i+1, 180+i*17,
				)
				if err != nil {
					log.Fatalf("insert track %s: %v", tr, err)
				}
				tracks++
			}
		}
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  User:     %s / %s (verified)\n", seedEmail, seedPassword)
	fmt.Printf("  Catalog:  %d artists, %d albums, %d tracks\n", artists, albums, tracks)
}
