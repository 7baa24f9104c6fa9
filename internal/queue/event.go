// Package queue defines the catalog lifecycle events exchanged over
// RabbitMQ, the publisher used by the catalog service and the background
// consumer that appends them to a log file.
package queue

import "time"

// Event types published on the catalog queue.
const (
	MovieCreated = "movie.created"
	MovieUpdated = "movie.updated"
	MovieDeleted = "movie.deleted"
)

// MovieEvent is published after a catalog write succeeds.  It carries
// enough for downstream consumers to log or index the change without
// querying the primary database.
type MovieEvent struct {
	Type           string    `json:"type"`
	MovieID        string    `json:"movie_id"`
	Title          string    `json:"title"`
	PublishingYear int       `json:"publishing_year"`
	PosterURL      string    `json:"poster_url,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
