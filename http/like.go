package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"loopLife/errs"
)

// registerLikeRoutes is a helper for registering all Like routes.
func (s *Server) registerLikeRoutes(r *mux.Router) {
	// Like a loop.
	r.HandleFunc("/loop/{id:[0-9]+}/like", s.requireAuth(s.handleCreateLike)).Methods("POST")

	// Unlike a previously liked loop.
	r.HandleFunc("/loop/{id:[0-9]+}/like", s.requireAuth(s.handleDeleteLike)).Methods("DELETE")
}

// handleCreateLike handles the route "POST /loop/:id/like".
// It reads the loop ID from the url and creates the like edge for the
// authed user. Liking twice returns a conflict and changes nothing.
func (s *Server) handleCreateLike(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	like, err := s.likes.Like(r.Context(), s.getUserFromContext(r.Context()), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(like); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleDeleteLike handles the route "DELETE /loop/:id/like".
// It reads the loop ID from the url and destroys the authed user's like
// edge. Unliking without a like returns a conflict and changes nothing.
func (s *Server) handleDeleteLike(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	err = s.likes.Unlike(r.Context(), s.getUserFromContext(r.Context()), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Like removed."})
}
