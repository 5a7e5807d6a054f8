package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framez.app/framez/models"
	"framez.app/framez/store"
)

type fakeUploader struct {
	url  string
	err  error
	hits int
}

func (f *fakeUploader) UploadImage(ctx context.Context, imageURI string) (string, error) {
	f.hits++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func TestCreatePost_TextOnlyRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewPostService(st, &fakeUploader{})
	before := time.Now().UTC()

	id, err := svc.CreatePost(context.Background(), "u1", "alice", "hello world", "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	posts, err := svc.GetAllPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)

	assert.Equal(t, id, posts[0].ID)
	assert.Equal(t, "hello world", posts[0].Content)
	assert.Equal(t, "u1", posts[0].UserID)
	assert.Equal(t, "alice", posts[0].DisplayName)
	assert.False(t, posts[0].CreatedAt.Before(before))
}

func TestCreatePost_UploadFailureWritesNothing(t *testing.T) {
	st := store.NewMemoryStore()
	uploader := &fakeUploader{err: models.NewUploadError("Invalid upload preset", nil)}
	svc := NewPostService(st, uploader)

	_, err := svc.CreatePost(context.Background(), "u1", "alice", "caption", "file://bad.jpg")
	require.Error(t, err)
	assert.Equal(t, models.CodeUpload, models.CodeOf(err))
	assert.Equal(t, 1, uploader.hits)

	posts, listErr := svc.GetAllPosts(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, posts, "no partial post may exist after a failed upload")
}

func TestCreatePost_WithImage(t *testing.T) {
	st := store.NewMemoryStore()
	uploader := &fakeUploader{url: "https://res.cloudinary.com/demo/image/upload/v1/pic.jpg"}
	svc := NewPostService(st, uploader)

	id, err := svc.CreatePost(context.Background(), "u1", "alice", "", "file://pic.jpg")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	posts, err := svc.GetAllPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, uploader.url, posts[0].ImageURL)
	assert.Empty(t, posts[0].Content)
}

func TestCreatePost_Validation(t *testing.T) {
	svc := NewPostService(store.NewMemoryStore(), &fakeUploader{})

	tests := []struct {
		name     string
		content  string
		imageURI string
	}{
		{"empty post", "", ""},
		{"whitespace only", "   ", ""},
		{"too short without image", "hey", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(context.Background(), "u1", "alice", tt.content, tt.imageURI)
			require.Error(t, err)
			assert.Equal(t, models.CodeValidation, models.CodeOf(err))
		})
	}
}

func TestGetAllPosts_EmptyFeed(t *testing.T) {
	svc := NewPostService(store.NewMemoryStore(), &fakeUploader{})

	posts, err := svc.GetAllPosts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestGetUserPosts_FiltersByAuthor(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewPostService(st, &fakeUploader{})
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, "u1", "alice", "alice post", "")
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, "u2", "bob", "bob post", "")
	require.NoError(t, err)

	posts, err := svc.GetUserPosts(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "bob post", posts[0].Content)
}

func TestCreateUserProfile_IdempotentByUID(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewPostService(st, &fakeUploader{})
	ctx := context.Background()

	require.NoError(t, svc.CreateUserProfile(ctx, "u1", "a@b.c", "alice"))
	require.NoError(t, svc.CreateUserProfile(ctx, "u1", "a@b.c", "renamed"))

	profile, err := svc.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", profile.DisplayName)
	assert.Equal(t, "a@b.c", profile.Email)
}

func TestGetUserProfile_NotFoundIsDistinct(t *testing.T) {
	svc := NewPostService(store.NewMemoryStore(), &fakeUploader{})

	_, err := svc.GetUserProfile(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
	assert.NotEqual(t, models.CodeStore, models.CodeOf(err))
}
