package httpserver

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/and161185/grader-market/internal/errs"
)

const maxChatMessage = 500

type chatRequest struct {
	Message string `json:"message"`
	Consent bool   `json:"consent"`
}

func (s *Server) chatReply(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if utf8.RuneCountInString(req.Message) > maxChatMessage {
		ve := errs.NewValidation()
		ve.Add("message", "is too long")
		s.fail(w, r, ve)
		return
	}
	reply := s.chat.Reply(r.Context(), clientID(r), strings.TrimSpace(req.Message), req.Consent)
	if s.metrics != nil {
		s.metrics.ChatReplies.WithLabelValues(string(reply.Source)).Inc()
	}
	writeJSON(w, http.StatusOK, reply)
}
