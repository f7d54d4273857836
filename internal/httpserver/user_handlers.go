package httpserver

import (
	"net/http"
	"strconv"

	authdomain "forum/backend/internal/domain/auth"
	userusecase "forum/backend/internal/usecase/user"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context(), userusecase.Filter{
		Role:   r.URL.Query().Get("role"),
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"data": users, "total": len(users)})
}

func (s *Server) handleListActiveUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListActive(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"data": users, "total": len(users)})
}

func (s *Server) handlePendingInstructors(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.PendingInstructors(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"data": users, "total": len(users)})
}

func (s *Server) handleListUsersByType(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListByType(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"data": users, "total": len(users)})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		LastName string `json:"last_name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	account, err := s.users.Create(r.Context(), userusecase.CreateInput{
		Email:    payload.Email,
		Name:     payload.Name,
		LastName: payload.LastName,
		Password: payload.Password,
		Role:     payload.Role,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"data": account})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	account, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"data": account})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	claims, _ := claimsFromContext(r.Context())

	var payload struct {
		Email    *string `json:"email"`
		Name     *string `json:"name"`
		LastName *string `json:"last_name"`
		Role     *string `json:"role"`
		Status   *string `json:"account_status"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	account, err := s.users.Update(r.Context(), claims, id, userusecase.UpdateInput{
		Email:    payload.Email,
		Name:     payload.Name,
		LastName: payload.LastName,
		Role:     payload.Role,
		Status:   payload.Status,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"data": account})
}

// handleChangeUserPassword requires the current password when an account
// changes its own secret; administrators resetting another account do not.
func (s *Server) handleChangeUserPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	claims, _ := claimsFromContext(r.Context())

	var payload struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	var err error
	if claims.SubjectID == id {
		err = s.auth.ChangePassword(r.Context(), id, payload.Current, payload.New)
	} else {
		err = s.users.ResetPassword(r.Context(), id, payload.New)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "password updated"})
}

func (s *Server) handleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"account_status"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	account, err := s.users.SetStatus(r.Context(), id, payload.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"data": account})
}

func (s *Server) handleValidateInstructor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	claims, _ := claimsFromContext(r.Context())

	var payload struct {
		Approve *bool  `json:"approve"`
		Comment string `json:"comment"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.Approve == nil {
		writeAuthError(w, authdomain.ErrMissingFields.WithMessage("approve is required"))
		return
	}

	account, err := s.users.ValidateInstructor(r.Context(), claims.SubjectID, id, *payload.Approve, payload.Comment)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"data": account})
}

func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.users.Deactivate(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "account deactivated"})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid id")
		return 0, false
	}
	return id, true
}
