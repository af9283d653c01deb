package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"loopLife/domain"
	"loopLife/errs"
)

// registerLoopRoutes is a helper for registering all Loop routes.
func (s *Server) registerLoopRoutes(r *mux.Router) {
	// The loop feed and single-loop reads are public.
	r.HandleFunc("/loops", s.handleGetLoops).Methods("GET")
	r.HandleFunc("/loops/genre/{genre}", s.handleGetLoopsByGenre).Methods("GET")
	r.HandleFunc("/loops/search", s.handleSearchLoops).Methods("GET")
	r.HandleFunc("/loop/{id:[0-9]+}", s.handleGetLoop).Methods("GET")
	r.HandleFunc("/users/{user_id:[0-9]+}/loops", s.handleGetUserLoops).Methods("GET")

	// Mutations go through the services, which check everything.
	r.HandleFunc("/loop", s.requireAuth(s.handleCreateLoop)).Methods("POST")
	r.HandleFunc("/loop/update/{id:[0-9]+}", s.requireAuth(s.handleUpdateLoop)).Methods("PUT")
	r.HandleFunc("/loop/delete/{id:[0-9]+}", s.requireAuth(s.handleDeleteLoop)).Methods("DELETE")
}

// handleGetLoops handles the route "GET /loops".
// It returns the loop feed, newest first, with the viewer's like state.
func (s *Server) handleGetLoops(w http.ResponseWriter, r *http.Request) {
	loops, err := s.ls.All(s.getUserFromContext(r.Context()))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"loops": loops}); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleGetLoop handles the route "GET /loop/:id".
func (s *Server) handleGetLoop(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	loop, err := s.ls.ByID(id, s.getUserFromContext(r.Context()))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"loop": loop}); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleGetLoopsByGenre handles the route "GET /loops/genre/:genre".
func (s *Server) handleGetLoopsByGenre(w http.ResponseWriter, r *http.Request) {
	loops, err := s.ls.ByGenre(mux.Vars(r)["genre"], s.getUserFromContext(r.Context()))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"loops": loops}); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleGetUserLoops handles the route "GET /users/:user_id/loops".
func (s *Server) handleGetUserLoops(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(mux.Vars(r)["user_id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	loops, err := s.ls.ByUserID(userID, s.getUserFromContext(r.Context()))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"loops": loops}); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleSearchLoops handles the route "GET /loops/search?query=term".
// An empty query returns an empty result instead of an error.
func (s *Server) handleSearchLoops(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("query")
	if term == "" {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []domain.Loop{}})
		return
	}

	loops, err := s.ls.Search(term, s.getUserFromContext(r.Context()))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"results": loops}); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleCreateLoop handles the route "POST /loop".
// It reads the loop data from the json body and runs it through the
// admission sequence of the loop service.
func (s *Server) handleCreateLoop(w http.ResponseWriter, r *http.Request) {
	var loop domain.Loop
	if err := json.NewDecoder(r.Body).Decode(&loop); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid json body."))
		return
	}
	loop.IPAddress = clientIP(r)

	err := s.ls.Create(r.Context(), s.getUserFromContext(r.Context()), &loop)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(&loop); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleUpdateLoop handles the route "PUT /loop/update/:id".
// It applies a partial update, only fields present in the body are modified.
func (s *Server) handleUpdateLoop(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	var upd domain.LoopUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid update data."))
		return
	}

	loop, err := s.ls.Update(r.Context(), s.getUserFromContext(r.Context()), id, &upd)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	if err := json.NewEncoder(w).Encode(loop); err != nil {
		errs.LogError(r, err)
		return
	}
}

// handleDeleteLoop handles the route "DELETE /loop/delete/:id".
func (s *Server) handleDeleteLoop(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid Id format."))
		return
	}

	err = s.ls.Delete(r.Context(), s.getUserFromContext(r.Context()), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Loop deleted."})
}
