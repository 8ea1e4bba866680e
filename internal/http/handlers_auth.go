package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lavanderia/internal/auth"
	"lavanderia/internal/core"
)

type registrarRequest struct {
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type loginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"usuario"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{
		ID:    u.ID,
		Nome:  u.Nome,
		Email: u.Email,
		Role:  string(u.Role),
	}
}

func (s *Server) handleRegistrar(w http.ResponseWriter, r *http.Request) {
	var req registrarRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	nome := sanitizeInput(req.Nome)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if nome == "" || email == "" || !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "nome and a valid email are required")
		return
	}

	hash, err := auth.HashSenha(req.Senha)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := s.repo.CreateUser(r.Context(), core.User{
		Nome:      nome,
		Email:     email,
		SenhaHash: hash,
		Role:      core.RoleUser,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "User registered", "user_id", user.ID, "email", email)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.repo.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	if !auth.CheckSenha(user.SenhaHash, req.Senha) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.tokens.Issue(user, time.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: toUserResponse(user)})
}

func (s *Server) handleListUsuarios(w http.ResponseWriter, r *http.Request) {
	users, err := s.repo.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}
