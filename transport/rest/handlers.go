package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/litergames/litergames-backend/internal/apperror"
)

type loginRequest struct {
	Username string `json:"username"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (that *Server) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// loginHandler creates or returns the guest account for a username.
func (that *Server) loginHandler(w http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "loginHandler")

	var body loginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Username == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Username is required"})
		return
	}

	user, err := that.users.GetOrCreate(req.Context(), body.Username)
	if err != nil {
		log.Error("failed to get or create user", "username", body.Username, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Server Error"})
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (that *Server) meHandler(w http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "meHandler")

	user, err := that.users.GetByID(req.Context(), req.PathValue("id"))
	if errors.Is(err, apperror.ErrUserNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "User not found"})
		return
	}
	if err != nil {
		log.Error("failed to get user", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Server Error"})
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
