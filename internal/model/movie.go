package model

import "time"

// Movie is a catalog record as stored in the `movies` table.  Movies are
// not scoped to a user: every authenticated caller sees the same catalog.
//
// Fields:
//
//	ID             – opaque identifier (UUIDv7 string, time ordered).
//	Title          – non-empty display title.
//	PublishingYear – year the movie was published.
//	PosterURL      – public URL of the poster at the media host.
//	PosterKey      – media host object identifier backing PosterURL.
//	CreatedAt      – creation timestamp, microsecond precision.
//	UpdatedAt      – last update timestamp.
type Movie struct {
	ID             string    // movies.id
	Title          string    // movies.title
	PublishingYear int       // movies.publishing_year
	PosterURL      *string   // movies.poster_url (nullable)
	PosterKey      *string   // movies.poster_key (nullable)
	CreatedAt      time.Time // movies.created_at
	UpdatedAt      time.Time // movies.updated_at
}
