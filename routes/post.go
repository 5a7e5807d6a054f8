package routes

import (
	"github.com/gorilla/mux"

	"framez.app/framez/handlers"
	"framez.app/framez/services"
	"framez.app/framez/session"
	"framez.app/framez/store"
)

func CreatePostRoutes(router *mux.Router, m *session.Manager, ps *services.PostService, st store.Store) *mux.Router {
	router.HandleFunc("/posts", handlers.GetFeed(ps)).Methods("GET")
	router.HandleFunc("/posts", handlers.CreatePost(m, ps)).Methods("POST")
	router.HandleFunc("/posts/user/{userId}", handlers.GetPostsByUser(ps)).Methods("GET")
	router.HandleFunc("/ws/feed", handlers.LiveFeed(st)).Methods("GET")

	return router
}
