package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	switch {
	case len(req.Username) < 3:
		badRequest(w, "username must be at least 3 characters")
		return
	case len(req.Password) < 8:
		badRequest(w, "password must be at least 8 characters")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		badRequest(w, "invalid email address")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	user := &core.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			respondJSON(w, http.StatusConflict, errorResponse{Error: "username or email already registered"})
			return
		}
		respondError(w, r, err)
		return
	}

	// New accounts get the standard category set so the first
	// transaction has something to attach to.
	if err := s.store.SeedDefaultCategories(r.Context(), user.ID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to seed default categories",
			"user_id", user.ID, "error", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "User registered", "user_id", user.ID)
	respondJSON(w, http.StatusCreated, authResponse{
		Token: token,
		User:  userView{ID: user.ID, Username: user.Username, Email: user.Email},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// Same response for unknown user and wrong password.
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  userView{ID: user.ID, Username: user.Username, Email: user.Email},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUserByID(r.Context(), UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, userView{ID: user.ID, Username: user.Username, Email: user.Email})
}
