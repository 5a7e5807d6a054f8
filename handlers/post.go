package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"framez.app/framez/services"
	"framez.app/framez/session"
	"framez.app/framez/validation"
)

type createPostRequest struct {
	Content  string `json:"content"`
	ImageURI string `json:"image_uri"`
}

// GetFeed returns every post, most recent first.
func GetFeed(ps *services.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := ps.GetAllPosts(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, posts)
	}
}

// GetPostsByUser returns one author's posts, most recent first.
func GetPostsByUser(ps *services.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		userID, ok := vars["userId"]
		if !ok || userID == "" {
			http.Error(w, "userId parameter missing", http.StatusBadRequest)
			return
		}

		posts, err := ps.GetUserPosts(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, posts)
	}
}

// GetUserProfile returns the profile record for a user id.
func GetUserProfile(ps *services.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		userID, ok := vars["userId"]
		if !ok || userID == "" {
			http.Error(w, "userId parameter missing", http.StatusBadRequest)
			return
		}

		profile, err := ps.GetUserProfile(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// CreatePost creates a post for the signed-in user. The image, when given,
// is uploaded first; an upload failure aborts without writing a record.
func CreatePost(m *session.Manager, ps *services.PostService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := m.Current()
		if user == nil {
			http.Error(w, "Please log in to create a post", http.StatusUnauthorized)
			return
		}

		var req createPostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if fieldErrs := validation.Post(req.Content, req.ImageURI); len(fieldErrs) > 0 {
			writeFieldErrors(w, fieldErrs)
			return
		}

		id, err := ps.CreatePost(r.Context(), user.UID, user.DisplayName, req.Content, req.ImageURI)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"post_id": id})
	}
}
