// Package store defines the document-store boundary for posts and user
// profiles, with a Firestore-backed implementation and an in-memory one
// for tests and local development.
package store

import (
	"context"

	"framez.app/framez/models"
)

// Query selects posts. The zero value matches all posts; a non-empty
// AuthorID restricts the result to one author. Results are always ordered
// by creation time, most recent first.
type Query struct {
	AuthorID string
}

// NewPost carries the caller-supplied fields of a post. The store assigns
// the identifier and the creation timestamp at write time.
type NewPost struct {
	UserID      string
	DisplayName string
	Content     string
	ImageURL    string
}

// Store is the persistence port for posts and profiles.
//
// WatchPosts establishes a live subscription for q: onSnapshot is invoked
// with the full current result set on every change (the first delivery
// fires shortly after registration, including the empty case), and
// onError terminates the subscription. The returned stop function releases
// the subscription and must be called on every exit path; after stop
// returns no further callbacks are delivered for new snapshots.
type Store interface {
	AddPost(ctx context.Context, p NewPost) (string, error)
	SetUserProfile(ctx context.Context, profile models.UserProfile) error
	GetUserProfile(ctx context.Context, uid string) (models.UserProfile, error)
	ListPosts(ctx context.Context, q Query) ([]models.Post, error)
	WatchPosts(ctx context.Context, q Query, onSnapshot func([]models.Post), onError func(error)) (stop func())
}
