package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lavanderia/internal/core"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Erro string `json:"erro"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Erro: message})
}

// writeServiceError translates the service error taxonomy to HTTP statuses:
// validation to 400, missing rows to 404, everything else to 500 with the
// detail kept out of the response body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.NewValidationError("invalid request body")
	}
	return nil
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError("invalid id")
	}
	return id, nil
}

// parseAnoMes reads ano/mes query parameters, defaulting to the current
// month.
func parseAnoMes(r *http.Request) (int, time.Month, error) {
	now := time.Now()
	ano := now.Year()
	mes := now.Month()

	if v := strings.TrimSpace(r.URL.Query().Get("ano")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return 0, 0, core.NewValidationError("invalid ano")
		}
		ano = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("mes")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, core.NewValidationError("invalid mes")
		}
		mes = time.Month(m)
	}
	return ano, mes, nil
}

// sanitizeInput trims and strips control characters from free-text fields.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}
