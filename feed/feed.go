// Package feed maintains an always-current ordered post list for one
// screen, backed by a live store subscription.
package feed

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"framez.app/framez/models"
	"framez.app/framez/store"
)

// Phase is the screen-visible state of a View.
type Phase int

const (
	Loading Phase = iota
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "error"
	}
	return "unknown"
}

// State is one observable snapshot of a View. In Ready, Posts holds the
// full current result set in the order the store delivered it (creation
// time descending); an empty feed is Ready with an empty list, not Failed.
type State struct {
	Phase   Phase
	Posts   []models.Post
	Err     string
	Retries int
}

// Source is the subset of the store a View needs.
type Source interface {
	WatchPosts(ctx context.Context, q store.Query, onSnapshot func([]models.Post), onError func(error)) (stop func())
}

// View drives the Loading -> Ready | Failed state machine for one query.
// At most one live subscription is active at any instant; each snapshot
// wholly replaces the list. Failed only returns to Loading through an
// explicit Retry. Close releases the subscription and must run on every
// exit path.
type View struct {
	src   Source
	query store.Query
	log   *logrus.Entry

	mu        sync.Mutex
	state     State
	gen       int
	stop      func()
	closed    bool
	observers map[int]func(State)
	nextObs   int
}

// NewView subscribes immediately and returns the View in Loading state.
func NewView(src Source, q store.Query) *View {
	v := &View{
		src:       src,
		query:     q,
		log:       logrus.WithField("component", "feed"),
		state:     State{Phase: Loading},
		observers: make(map[int]func(State)),
	}
	v.subscribe()
	return v
}

// State returns a copy of the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return copyState(v.state)
}

// Watch registers fn for every state change; it fires once right away with
// the current state. The returned function cancels the registration.
func (v *View) Watch(fn func(State)) (cancel func()) {
	v.mu.Lock()
	id := v.nextObs
	v.nextObs++
	v.observers[id] = fn
	current := copyState(v.state)
	v.mu.Unlock()

	go fn(current)

	return func() {
		v.mu.Lock()
		delete(v.observers, id)
		v.mu.Unlock()
	}
}

// Retry tears the subscription down and re-establishes it. This is the
// only path out of the Failed state; there is no automatic retry.
func (v *View) Retry() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.state.Retries++
	v.mu.Unlock()

	v.subscribe()
}

// Close releases the live subscription. No state update occurs after Close
// returns, even if a snapshot was already in flight.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	stop := v.stop
	v.stop = nil
	v.observers = nil
	v.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// subscribe establishes a new subscription generation. The superseded
// subscription is fully released before the replacement is established,
// and its late callbacks are discarded by the generation check, so the
// visible list always reflects the most recently established
// subscription.
func (v *View) subscribe() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.gen++
	gen := v.gen
	old := v.stop
	v.stop = nil
	v.state = State{Phase: Loading, Retries: v.state.Retries}
	observers := v.observerList()
	current := copyState(v.state)
	v.mu.Unlock()

	for _, fn := range observers {
		fn(current)
	}
	if old != nil {
		old()
	}

	stop := v.src.WatchPosts(context.Background(), v.query,
		func(posts []models.Post) { v.applySnapshot(gen, posts) },
		func(err error) { v.applyError(gen, err) },
	)

	v.mu.Lock()
	if v.closed || gen != v.gen {
		// Superseded while we were registering; release right away.
		v.mu.Unlock()
		stop()
		return
	}
	v.stop = stop
	v.mu.Unlock()
}

func (v *View) applySnapshot(gen int, posts []models.Post) {
	v.mu.Lock()
	if v.closed || gen != v.gen {
		v.mu.Unlock()
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	v.state = State{Phase: Ready, Posts: posts, Retries: v.state.Retries}
	observers := v.observerList()
	current := copyState(v.state)
	v.mu.Unlock()

	for _, fn := range observers {
		fn(current)
	}
}

func (v *View) applyError(gen int, err error) {
	v.mu.Lock()
	if v.closed || gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.log.WithError(err).Error("feed subscription failed")
	v.state = State{Phase: Failed, Err: "Failed to load posts", Retries: v.state.Retries}
	observers := v.observerList()
	current := copyState(v.state)
	v.mu.Unlock()

	for _, fn := range observers {
		fn(current)
	}
}

// observerList snapshots observers for invocation outside the lock.
// Caller must hold v.mu.
func (v *View) observerList() []func(State) {
	out := make([]func(State), 0, len(v.observers))
	for _, fn := range v.observers {
		out = append(out, fn)
	}
	return out
}

func copyState(s State) State {
	cp := s
	cp.Posts = make([]models.Post, len(s.Posts))
	copy(cp.Posts, s.Posts)
	return cp
}
