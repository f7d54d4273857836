package httpserver

import (
	"net"
	"net/http"

	authdomain "forum/backend/internal/domain/auth"
	authusecase "forum/backend/internal/usecase/auth"

	"github.com/go-chi/chi/v5"
)

// loginRequest accepts the current field names and the legacy ones.
type loginRequest struct {
	Email      string `json:"email"`
	Identifier string `json:"identifier"`
	Correo     string `json:"correo"`
	Password   string `json:"password"`
	Secret     string `json:"secret"`
	Contrasena string `json:"contrasena"`
}

func (p loginRequest) credentials() authdomain.Credentials {
	return authdomain.Credentials{
		Identifier: firstNonEmpty(p.Identifier, p.Email, p.Correo),
		Secret:     firstNonEmpty(p.Secret, p.Password, p.Contrasena),
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	creds := payload.credentials()
	creds.ClientIP = clientIP(r)

	result, err := s.auth.Login(r.Context(), creds)
	if err != nil {
		if s.unifyLogin && authdomain.KindOf(err) == authdomain.KindAccountNotFound {
			err = authdomain.ErrInvalidCredential
		}
		s.writeServiceError(w, r, err)
		return
	}

	s.log.InfoContext(r.Context(), "login succeeded", "account_id", result.Profile.ID, "role", result.Profile.RoleName)
	writeOK(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"token":   result.Token,
		"profile": result.Profile,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		LastName string `json:"last_name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Type     string `json:"type"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	profile, err := s.auth.Register(r.Context(), authusecase.RegisterInput{
		Name:     payload.Name,
		LastName: payload.LastName,
		Email:    payload.Email,
		Password: payload.Password,
		Type:     payload.Type,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeOK(w, http.StatusCreated, map[string]any{"profile": profile})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	info, err := s.auth.Introspect(r.Context(), bearerToken(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"valid":      info.Valid,
		"profile":    info.Profile,
		"token_info": info.TokenInfo,
	})
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request) {
	result, err := s.auth.RenewToken(r.Context(), bearerToken(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"token":   result.Token,
		"profile": result.Profile,
	})
}

// handleLogout only acknowledges; tokens stay valid until they expire.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := claimsFromContext(r.Context()); ok {
		s.log.InfoContext(r.Context(), "logout", "account_id", claims.SubjectID)
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeAuthError(w, authdomain.ErrNoToken)
		return
	}
	account, err := s.users.Get(r.Context(), claims.SubjectID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"profile": authdomain.ProfileOf(account)})
}

func (s *Server) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	exists, err := s.auth.CheckEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"exists": exists})
}

// clientIP strips the port from RemoteAddr, which RealIP may already have replaced.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
