package routes

import (
	"github.com/gorilla/mux"

	"framez.app/framez/handlers"
	"framez.app/framez/services"
	"framez.app/framez/session"
)

func CreateUserRoutes(router *mux.Router, m *session.Manager, ps *services.PostService) *mux.Router {
	router.HandleFunc("/auth/signup", handlers.Signup(m)).Methods("POST")
	router.HandleFunc("/auth/login", handlers.Login(m)).Methods("POST")
	router.HandleFunc("/auth/logout", handlers.Logout(m)).Methods("POST")
	router.HandleFunc("/session", handlers.GetSession(m)).Methods("GET")

	router.HandleFunc("/users/{userId}", handlers.GetUserProfile(ps)).Methods("GET")

	return router
}
