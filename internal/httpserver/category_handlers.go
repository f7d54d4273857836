package httpserver

import (
	"net/http"

	categoryusecase "forum/backend/internal/usecase/category"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"data": categories, "total": len(categories)})
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	category, err := s.categories.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"data": category})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	var input categoryusecase.CreateInput
	if !decodeJSON(w, r, &input) {
		return
	}
	category, err := s.categories.Create(r.Context(), claims.SubjectID, input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"data": category})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input categoryusecase.UpdateInput
	if !decodeJSON(w, r, &input) {
		return
	}
	category, err := s.categories.Update(r.Context(), id, input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"data": category})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.categories.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "category deactivated"})
}
