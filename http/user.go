package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"loopLife/domain"
	"loopLife/errs"
)

// registerUserRoutes is a helper for registering all User routes.
func (s *Server) registerUserRoutes(r *mux.Router) {
	// List all users, admin only.
	r.HandleFunc("/users", s.requireAuth(s.handleGetUsers)).Methods("GET")

	// Get the public profile of a specific user.
	r.HandleFunc("/users/{id:[0-9]+}", s.handleGetUser).Methods("GET")

	// Update a user's profile, self or admin.
	r.HandleFunc("/users/{id:[0-9]+}", s.requireAuth(s.handleUpdateUser)).Methods("PUT")

	// Delete a user, self or admin.
	r.HandleFunc("/users/{id:[0-9]+}", s.requireAuth(s.handleDeleteUser)).Methods("DELETE")
}

// handleGetUsers handles the route "GET /users".
// The service rejects everyone but admins.
func (s *Server) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.us.All(s.getUserFromContext(r.Context()))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(users); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleGetUser handles the route "GET /users/:id".
// The email address is only included when the viewer is the user themself
// or an admin.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	user, err := s.us.ByID(id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	viewer := s.getUserFromContext(r.Context())
	if viewer == nil || (viewer.ID != user.ID && !viewer.IsAdmin()) {
		user.StripPrivate()
	}

	if err := json.NewEncoder(w).Encode(map[string]interface{}{"user": user}); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleUpdateUser handles the route "PUT /users/:id".
// It applies a partial profile update, only fields present in the body are
// modified. The service applies the self-or-admin rule.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	var upd domain.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid update data."))
		return
	}

	user, err := s.us.UpdateProfile(r.Context(), s.getUserFromContext(r.Context()), id, &upd)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	if err := json.NewEncoder(w).Encode(user); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleDeleteUser handles the route "DELETE /users/:id".
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	err = s.us.Delete(r.Context(), s.getUserFromContext(r.Context()), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "User deleted."})
}
