package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"loopLife/domain"
	"loopLife/errs"
)

// registerCommentRoutes is a helper for registering all Comment routes.
func (s *Server) registerCommentRoutes(r *mux.Router) {
	// Read a loop's comments, public.
	r.HandleFunc("/loop/{id:[0-9]+}/comments", s.handleGetComments).Methods("GET")

	// Comment on a loop.
	r.HandleFunc("/loop/{id:[0-9]+}/comments", s.requireAuth(s.handleCreateComment)).Methods("POST")

	// Delete a comment, author or admin only.
	r.HandleFunc("/loop/{id:[0-9]+}/comments/{comment_id:[0-9]+}", s.requireAuth(s.handleDeleteComment)).Methods("DELETE")
}

// handleGetComments handles the route "GET /loop/:id/comments".
// It returns the loop's comments, newest first, with their authors.
func (s *Server) handleGetComments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	comments, err := s.cs.ByLoopID(id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"comments": comments}); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleCreateComment handles the route "POST /loop/:id/comments".
// It runs the comment through the admission sequence of the comment service,
// which includes the per-day-per-loop cap.
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	var comment domain.Comment
	if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}
	comment.LoopID = id

	err = s.cs.Create(r.Context(), s.getUserFromContext(r.Context()), &comment)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(&comment); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleDeleteComment handles the route "DELETE /loop/:id/comments/:comment_id".
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	loopID, err := strconv.Atoi(vars["id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}
	commentID, err := strconv.Atoi(vars["comment_id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	err = s.cs.Delete(r.Context(), s.getUserFromContext(r.Context()), loopID, commentID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Comment deleted."})
}
