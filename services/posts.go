package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"framez.app/framez/models"
	"framez.app/framez/store"
	"framez.app/framez/validation"
)

// Uploader is the media-upload dependency of the post service.
type Uploader interface {
	UploadImage(ctx context.Context, imageURI string) (string, error)
}

// PostService creates and retrieves post and profile records.
type PostService struct {
	store    store.Store
	uploader Uploader
	log      *logrus.Entry
}

func NewPostService(st store.Store, uploader Uploader) *PostService {
	return &PostService{
		store:    st,
		uploader: uploader,
		log:      logrus.WithField("component", "posts"),
	}
}

// CreateUserProfile writes the profile record for uid. Re-invocation with
// the same uid overwrites the previous fields.
func (s *PostService) CreateUserProfile(ctx context.Context, uid, email, displayName string) error {
	err := s.store.SetUserProfile(ctx, models.UserProfile{
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		Bio:         "",
	})
	if err != nil {
		s.log.WithError(err).Error("failed to create user profile")
		return err
	}
	return nil
}

// CreatePost validates the input, uploads the image when one is given and
// writes the post record. An upload failure aborts before any store write,
// so no partial post exists.
//
// The upload and the record write are not transactional: if the process
// dies between a successful upload and the write, the uploaded asset is
// orphaned on the image host. Known gap, accepted for this client.
func (s *PostService) CreatePost(ctx context.Context, userID, displayName, content, imageURI string) (string, error) {
	if fieldErrs := validation.Post(content, imageURI); len(fieldErrs) > 0 {
		return "", models.NewValidationError(fieldErrs["content"])
	}

	imageURL := ""
	if imageURI != "" {
		url, err := s.uploader.UploadImage(ctx, imageURI)
		if err != nil {
			s.log.WithError(err).Error("image upload failed, post aborted")
			return "", err
		}
		imageURL = url
	}

	id, err := s.store.AddPost(ctx, store.NewPost{
		UserID:      userID,
		DisplayName: displayName,
		Content:     strings.TrimSpace(content),
		ImageURL:    imageURL,
	})
	if err != nil {
		s.log.WithError(err).Error("failed to create post")
		return "", err
	}

	s.log.Infof("created post %s for user %s", id, userID)
	return id, nil
}

// GetAllPosts returns every post, most recent first. An empty feed is an
// empty slice, never nil.
func (s *PostService) GetAllPosts(ctx context.Context) ([]models.Post, error) {
	return s.listPosts(ctx, store.Query{})
}

// GetUserPosts returns userID's posts, most recent first.
func (s *PostService) GetUserPosts(ctx context.Context, userID string) ([]models.Post, error) {
	return s.listPosts(ctx, store.Query{AuthorID: userID})
}

func (s *PostService) listPosts(ctx context.Context, q store.Query) ([]models.Post, error) {
	posts, err := s.store.ListPosts(ctx, q)
	if err != nil {
		s.log.WithError(err).Error("failed to fetch posts")
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// GetUserProfile looks up the profile for uid. A missing profile is a
// not-found failure, distinct from a transport failure.
func (s *PostService) GetUserProfile(ctx context.Context, uid string) (models.UserProfile, error) {
	profile, err := s.store.GetUserProfile(ctx, uid)
	if err != nil {
		if !models.IsNotFound(err) {
			s.log.WithError(err).Error("failed to fetch user profile")
		}
		return models.UserProfile{}, err
	}
	return profile, nil
}
