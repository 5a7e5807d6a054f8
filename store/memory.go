package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"framez.app/framez/models"
)

// MemoryStore is an in-process Store with full watch semantics. It backs
// tests and the STORAGE_BACKEND=memory local mode.
type MemoryStore struct {
	mu       sync.Mutex
	posts    []models.Post
	profiles map[string]models.UserProfile
	watchers map[int]*memWatcher
	nextID   int
}

type memWatcher struct {
	query      Query
	onSnapshot func([]models.Post)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]models.UserProfile),
		watchers: make(map[int]*memWatcher),
	}
}

func (s *MemoryStore) AddPost(ctx context.Context, p NewPost) (string, error) {
	s.mu.Lock()
	post := models.Post{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Content:     p.Content,
		ImageURL:    p.ImageURL,
		CreatedAt:   time.Now().UTC(),
	}
	s.posts = append(s.posts, post)
	notify := s.pendingNotifications()
	s.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return post.ID, nil
}

func (s *MemoryStore) SetUserProfile(ctx context.Context, profile models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.profiles[profile.UID]; ok {
		// Overwrite keeps the original creation time, like a keyed Set.
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.CreatedAt = time.Now().UTC()
	}
	s.profiles[profile.UID] = profile
	return nil
}

func (s *MemoryStore) GetUserProfile(ctx context.Context, uid string) (models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[uid]
	if !ok {
		return models.UserProfile{}, models.NewNotFoundError("user", uid)
	}
	return profile, nil
}

func (s *MemoryStore) ListPosts(ctx context.Context, q Query) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matching(q), nil
}

func (s *MemoryStore) WatchPosts(ctx context.Context, q Query, onSnapshot func([]models.Post), onError func(error)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = &memWatcher{query: q, onSnapshot: onSnapshot}
	initial := s.matching(q)
	s.mu.Unlock()

	// First delivery fires asynchronously, like a real subscription.
	go onSnapshot(initial)

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// ActiveWatchers reports the number of live subscriptions. Used by tests
// to verify subscriptions are released.
func (s *MemoryStore) ActiveWatchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// matching returns the current result set for q, creation time descending.
// Caller must hold s.mu.
func (s *MemoryStore) matching(q Query) []models.Post {
	out := []models.Post{}
	// Reverse insertion order so equal timestamps still come out newest first.
	for i := len(s.posts) - 1; i >= 0; i-- {
		p := s.posts[i]
		if q.AuthorID != "" && p.UserID != q.AuthorID {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// pendingNotifications snapshots watcher callbacks so they can run outside
// the lock. Caller must hold s.mu.
func (s *MemoryStore) pendingNotifications() []func() {
	var notify []func()
	for _, w := range s.watchers {
		w := w
		snap := s.matching(w.query)
		notify = append(notify, func() { w.onSnapshot(snap) })
	}
	return notify
}
