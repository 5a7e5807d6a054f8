package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framez.app/framez/models"
	"framez.app/framez/store"
)

// scriptedSource hands each subscription's callbacks back to the test so
// snapshot/error arrival order can be controlled exactly.
type scriptedSource struct {
	mu     sync.Mutex
	subs   []*scriptedSub
	active int
}

type scriptedSub struct {
	onSnapshot func([]models.Post)
	onError    func(error)
	stopped    bool
}

func (s *scriptedSource) WatchPosts(ctx context.Context, q store.Query, onSnapshot func([]models.Post), onError func(error)) func() {
	s.mu.Lock()
	sub := &scriptedSub{onSnapshot: onSnapshot, onError: onError}
	s.subs = append(s.subs, sub)
	s.active++
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if !sub.stopped {
			sub.stopped = true
			s.active--
		}
		s.mu.Unlock()
	}
}

func (s *scriptedSource) sub(i int) *scriptedSub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[i]
}

func (s *scriptedSource) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond, msg)
}

func TestView_EmptySnapshotIsReadyNotError(t *testing.T) {
	st := store.NewMemoryStore()
	v := NewView(st, store.Query{})
	defer v.Close()

	waitFor(t, func() bool { return v.State().Phase == Ready }, "view never became ready")

	state := v.State()
	assert.NotNil(t, state.Posts)
	assert.Empty(t, state.Posts)
	assert.Empty(t, state.Err)
}

func TestView_SnapshotWhollyReplacesList(t *testing.T) {
	st := store.NewMemoryStore()
	v := NewView(st, store.Query{})
	defer v.Close()

	waitFor(t, func() bool { return v.State().Phase == Ready }, "view never became ready")

	_, err := st.AddPost(context.Background(), store.NewPost{UserID: "u1", DisplayName: "alice", Content: "first post"})
	require.NoError(t, err)

	waitFor(t, func() bool { return len(v.State().Posts) == 1 }, "first post never arrived")

	_, err = st.AddPost(context.Background(), store.NewPost{UserID: "u2", DisplayName: "bob", Content: "second post"})
	require.NoError(t, err)

	waitFor(t, func() bool { return len(v.State().Posts) == 2 }, "second post never arrived")

	// Most recent first, as delivered by the store.
	state := v.State()
	assert.Equal(t, "second post", state.Posts[0].Content)
	assert.Equal(t, "first post", state.Posts[1].Content)
}

func TestView_AuthorFilter(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	_, err := st.AddPost(ctx, store.NewPost{UserID: "u1", DisplayName: "alice", Content: "alice post"})
	require.NoError(t, err)
	_, err = st.AddPost(ctx, store.NewPost{UserID: "u2", DisplayName: "bob", Content: "bob post"})
	require.NoError(t, err)

	v := NewView(st, store.Query{AuthorID: "u1"})
	defer v.Close()

	waitFor(t, func() bool { return v.State().Phase == Ready }, "view never became ready")

	state := v.State()
	require.Len(t, state.Posts, 1)
	assert.Equal(t, "alice post", state.Posts[0].Content)
}

func TestView_ErrorThenRetry(t *testing.T) {
	src := &scriptedSource{}
	v := NewView(src, store.Query{})
	defer v.Close()

	src.sub(0).onError(models.NewSubscriptionError(assert.AnError))
	state := v.State()
	assert.Equal(t, Failed, state.Phase)
	assert.Equal(t, "Failed to load posts", state.Err)

	// Only an explicit retry leaves the error state.
	v.Retry()
	assert.Equal(t, Loading, v.State().Phase)
	assert.Equal(t, 1, v.State().Retries)

	src.sub(1).onSnapshot([]models.Post{{ID: "p1", UserID: "u1", DisplayName: "alice"}})
	state = v.State()
	assert.Equal(t, Ready, state.Phase)
	require.Len(t, state.Posts, 1)
}

func TestView_AtMostOneActiveSubscription(t *testing.T) {
	src := &scriptedSource{}
	v := NewView(src, store.Query{})
	defer v.Close()

	assert.Equal(t, 1, src.activeCount())

	v.Retry()
	v.Retry()
	v.Retry()
	assert.Equal(t, 1, src.activeCount(), "superseded subscriptions must be released")
}

func TestView_SupersededSnapshotIsIgnored(t *testing.T) {
	src := &scriptedSource{}
	v := NewView(src, store.Query{})
	defer v.Close()

	v.Retry()

	// A late snapshot from the superseded subscription must not win.
	src.sub(0).onSnapshot([]models.Post{{ID: "stale", UserID: "u1", DisplayName: "alice"}})
	assert.Equal(t, Loading, v.State().Phase)

	src.sub(1).onSnapshot([]models.Post{{ID: "fresh", UserID: "u1", DisplayName: "alice"}})
	state := v.State()
	assert.Equal(t, Ready, state.Phase)
	require.Len(t, state.Posts, 1)
	assert.Equal(t, "fresh", state.Posts[0].ID)

	// Even after becoming ready, the stale generation stays dead.
	src.sub(0).onSnapshot([]models.Post{{ID: "staler", UserID: "u1", DisplayName: "alice"}})
	assert.Equal(t, "fresh", v.State().Posts[0].ID)
}

func TestView_SupersededErrorIsIgnored(t *testing.T) {
	src := &scriptedSource{}
	v := NewView(src, store.Query{})
	defer v.Close()

	v.Retry()
	src.sub(1).onSnapshot([]models.Post{})
	require.Equal(t, Ready, v.State().Phase)

	src.sub(0).onError(models.NewSubscriptionError(assert.AnError))
	assert.Equal(t, Ready, v.State().Phase, "stale subscription error must not flip the state")
}

func TestView_CloseReleasesSubscription(t *testing.T) {
	st := store.NewMemoryStore()
	v := NewView(st, store.Query{})

	waitFor(t, func() bool { return v.State().Phase == Ready }, "view never became ready")

	v.Close()
	assert.Equal(t, 0, st.ActiveWatchers())
}

func TestView_ExitDuringPendingLoad(t *testing.T) {
	src := &scriptedSource{}
	v := NewView(src, store.Query{})

	// Leave before the first snapshot arrives.
	v.Close()
	assert.Equal(t, 0, src.activeCount())

	// A snapshot already in flight must not mutate state after exit.
	src.sub(0).onSnapshot([]models.Post{{ID: "late", UserID: "u1", DisplayName: "alice"}})
	assert.Equal(t, Loading, v.State().Phase)
	assert.Empty(t, v.State().Posts)
}

func TestView_WatchObservesStateChanges(t *testing.T) {
	st := store.NewMemoryStore()
	v := NewView(st, store.Query{})
	defer v.Close()

	states := make(chan State, 8)
	cancel := v.Watch(func(s State) { states <- s })
	defer cancel()

	waitFor(t, func() bool {
		select {
		case s := <-states:
			return s.Phase == Ready
		default:
			return false
		}
	}, "observer never saw the ready state")
}

func TestView_RetryAfterCloseIsNoOp(t *testing.T) {
	src := &scriptedSource{}
	v := NewView(src, store.Query{})
	v.Close()

	v.Retry()
	assert.Equal(t, 0, src.activeCount())
	assert.Equal(t, 0, v.State().Retries)
}
