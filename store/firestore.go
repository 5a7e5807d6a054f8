package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"framez.app/framez/models"
)

const (
	postsCollection = "posts"
	usersCollection = "users"
)

// FirestoreStore persists posts and profiles in Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
	log    *logrus.Entry
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client: client,
		log:    logrus.WithField("component", "store"),
	}
}

func (s *FirestoreStore) posts() *firestore.CollectionRef {
	return s.client.Collection(postsCollection)
}

func (s *FirestoreStore) users() *firestore.CollectionRef {
	return s.client.Collection(usersCollection)
}

type postDoc struct {
	UserID      string    `firestore:"userId"`
	DisplayName string    `firestore:"displayName"`
	Content     string    `firestore:"content"`
	ImageURL    string    `firestore:"imageUrl"`
	CreatedAt   time.Time `firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time `firestore:"updatedAt,serverTimestamp"`
}

type userDoc struct {
	UID         string    `firestore:"uid"`
	Email       string    `firestore:"email"`
	DisplayName string    `firestore:"displayName"`
	Bio         string    `firestore:"bio"`
	CreatedAt   time.Time `firestore:"createdAt,serverTimestamp"`
}

// decodePost validates the raw record shape before trusting it. A record
// missing its author or display name is a decode failure, not a transport
// failure.
func decodePost(snap *firestore.DocumentSnapshot) (models.Post, error) {
	var doc postDoc
	if err := snap.DataTo(&doc); err != nil {
		return models.Post{}, models.NewDecodeError("malformed post record", err)
	}
	if doc.UserID == "" || doc.DisplayName == "" {
		return models.Post{}, models.NewDecodeError(
			fmt.Sprintf("post %s is missing required fields", snap.Ref.ID), nil)
	}
	return models.Post{
		ID:          snap.Ref.ID,
		UserID:      doc.UserID,
		DisplayName: doc.DisplayName,
		Content:     doc.Content,
		ImageURL:    doc.ImageURL,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

func (s *FirestoreStore) AddPost(ctx context.Context, p NewPost) (string, error) {
	doc := postDoc{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Content:     p.Content,
		ImageURL:    p.ImageURL,
	}

	ref, _, err := s.posts().Add(ctx, doc)
	if err != nil {
		return "", models.NewStoreError(fmt.Errorf("firestore AddPost: %w", err))
	}
	return ref.ID, nil
}

func (s *FirestoreStore) SetUserProfile(ctx context.Context, profile models.UserProfile) error {
	doc := userDoc{
		UID:         profile.UID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		Bio:         profile.Bio,
	}

	// Set on a fixed document id keeps the write idempotent by uid.
	_, err := s.users().Doc(profile.UID).Set(ctx, doc)
	if err != nil {
		return models.NewStoreError(fmt.Errorf("firestore SetUserProfile: %w", err))
	}
	return nil
}

func (s *FirestoreStore) GetUserProfile(ctx context.Context, uid string) (models.UserProfile, error) {
	snap, err := s.users().Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.UserProfile{}, models.NewNotFoundError("user", uid)
		}
		return models.UserProfile{}, models.NewStoreError(fmt.Errorf("firestore GetUserProfile: %w", err))
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return models.UserProfile{}, models.NewDecodeError("malformed user record", err)
	}
	if doc.UID == "" {
		return models.UserProfile{}, models.NewDecodeError(
			fmt.Sprintf("user %s is missing required fields", uid), nil)
	}

	return models.UserProfile{
		UID:         doc.UID,
		Email:       doc.Email,
		DisplayName: doc.DisplayName,
		Bio:         doc.Bio,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

func (s *FirestoreStore) buildQuery(q Query) firestore.Query {
	fq := s.posts().Query
	if q.AuthorID != "" {
		fq = fq.Where("userId", "==", q.AuthorID)
	}
	return fq.OrderBy("createdAt", firestore.Desc)
}

func (s *FirestoreStore) ListPosts(ctx context.Context, q Query) ([]models.Post, error) {
	iter := s.buildQuery(q).Documents(ctx)
	defer iter.Stop()

	posts := []models.Post{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, models.NewStoreError(fmt.Errorf("firestore ListPosts: %w", err))
		}

		post, err := decodePost(snap)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// WatchPosts streams full result-set snapshots until stop is called or the
// subscription fails. Malformed records are skipped with a warning so one
// bad document does not take the whole feed down.
func (s *FirestoreStore) WatchPosts(ctx context.Context, q Query, onSnapshot func([]models.Post), onError func(error)) func() {
	watchCtx, cancel := context.WithCancel(ctx)
	snaps := s.buildQuery(q).Snapshots(watchCtx)

	go func() {
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled || errors.Is(err, context.Canceled) {
					return
				}
				s.log.WithError(err).Error("posts subscription terminated")
				onError(models.NewSubscriptionError(err))
				return
			}

			posts := []models.Post{}
			for {
				doc, err := snap.Documents.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					s.log.WithError(err).Error("posts subscription terminated")
					onError(models.NewSubscriptionError(err))
					return
				}
				post, err := decodePost(doc)
				if err != nil {
					s.log.WithError(err).Warnf("skipping post %s", doc.Ref.ID)
					continue
				}
				posts = append(posts, post)
			}
			onSnapshot(posts)
		}
	}()

	return cancel
}
