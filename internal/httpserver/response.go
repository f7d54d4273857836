package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	authdomain "forum/backend/internal/domain/auth"
	categorydomain "forum/backend/internal/domain/category"
	categoryusecase "forum/backend/internal/usecase/category"
)

// Codes for failures outside the auth taxonomy.
const (
	codeBadRequest       = "BAD_REQUEST"
	codeInvalidID        = "INVALID_ID"
	codeNotFound         = "NOT_FOUND"
	codeConflict         = "CONFLICT"
	codeProtectedAccount = "PROTECTED_ACCOUNT"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codeInternal         = "INTERNAL_ERROR"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeOK writes {"success": true, ...fields}.
func writeOK(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Success: false, Code: code, Message: message})
}

func writeAuthError(w http.ResponseWriter, err *authdomain.Error) {
	writeError(w, err.Kind.Status(), string(err.Kind), err.Message)
}

// writeServiceError maps use case errors onto HTTP responses. Unknown errors
// are logged and reported as 500 without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *authdomain.Error
	switch {
	case errors.As(err, &authErr):
		writeAuthError(w, authErr)
	case errors.Is(err, authdomain.ErrProtectedAccount):
		writeError(w, http.StatusForbidden, codeProtectedAccount, err.Error())
	case errors.Is(err, authdomain.ErrAlreadyValidated):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, authdomain.ErrNotInstructor), errors.Is(err, authdomain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
	case errors.Is(err, categorydomain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, categorydomain.ErrDuplicateSlug):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, categoryusecase.ErrNameRequired), errors.Is(err, categoryusecase.ErrSlugRequired):
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
	default:
		s.log.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON payload")
		return false
	}
	return true
}
