package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"framez.app/framez/feed"
	"framez.app/framez/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local gateway, same-origin checks are not useful here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// pushLatest enqueues s, evicting the oldest pending state when the buffer
// is full. Each state wholly supersedes the previous ones, so a slow
// writer skips intermediates but always ends on the newest state.
func pushLatest(updates chan feed.State, s feed.State) {
	for {
		select {
		case updates <- s:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
	}
}

// LiveFeed streams feed states over a websocket: one JSON message per
// state change, each carrying the full replacement list. The view (and its
// store subscription) is released when the client disconnects.
func LiveFeed(src feed.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logrus.WithField("component", "ws")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Error("websocket upgrade failed")
			return
		}
		defer conn.Close()

		query := store.Query{AuthorID: r.URL.Query().Get("user_id")}
		view := feed.NewView(src, query)
		defer view.Close()

		updates := make(chan feed.State, 8)
		cancel := view.Watch(func(s feed.State) {
			pushLatest(updates, s)
		})
		defer cancel()

		// Read pump exists only to notice the client going away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case state := <-updates:
				msg := map[string]any{
					"phase":   state.Phase.String(),
					"posts":   state.Posts,
					"retries": state.Retries,
				}
				if state.Err != "" {
					msg["error"] = state.Err
				}
				if err := conn.WriteJSON(msg); err != nil {
					log.WithError(err).Warn("websocket write failed")
					return
				}
			}
		}
	}
}
