package httpserver

import (
	"net"
	"net/http"
	"strings"

	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type adminView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type verifyResponse struct {
	model.Tokens
	Admin adminView `json:"admin"`
}

func requireEmail(email string) error {
	if e := strings.TrimSpace(email); e == "" || !strings.Contains(e, "@") {
		ve := errs.NewValidation()
		ve.Add("email", "must be a valid e-mail address")
		return ve
	}
	return nil
}

func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := requireEmail(req.Email); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.auth.Login(r.Context(), req.Email, req.Password, remoteIP(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "code_sent"})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := requireEmail(req.Email); err != nil {
		s.fail(w, r, err)
		return
	}
	tok, a, err := s.auth.Confirm(r.Context(), req.Email, req.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Tokens: tok,
		Admin:  adminView{ID: a.ID.String(), Email: a.Email, Name: a.Name},
	})
}

func (s *Server) resend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := requireEmail(req.Email); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.auth.Resend(r.Context(), req.Email); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "code_sent"})
}
