package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ziadkadry99/llmlibrarian/internal/query"
)

// askRequest is the POST /api/ask body: a query request plus an output
// format.
type askRequest struct {
	query.Request
	// Format is "text" (default) or "html".
	Format string `json:"format,omitempty"`
}

type askResponse struct {
	*query.Response
	HTML string `json:"html,omitempty"`
}

type errorResponse struct {
	Error    string `json:"error"`
	ExitCode int    `json:"exit_code,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	resp, status, err := s.ask(r, req)
	if err != nil {
		writeJSON(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ask runs one request and renders it. On failure it returns the status
// and error body to send.
func (s *Server) ask(r *http.Request, req askRequest) (*askResponse, int, *errorResponse) {
	resp, err := s.engine.Ask(r.Context(), req.Request)
	if err != nil {
		var pe *query.PolicyError
		if errors.As(err, &pe) {
			return nil, http.StatusUnprocessableEntity, &errorResponse{Error: pe.Message, ExitCode: pe.ExitCode}
		}
		s.logger.Error("ask failed", "query", req.Query, "error", err)
		return nil, http.StatusInternalServerError, &errorResponse{Error: err.Error(), ExitCode: 1}
	}

	out := &askResponse{Response: resp}
	if strings.EqualFold(req.Format, "html") {
		html, err := s.markdown.render(resp.Answer)
		if err != nil {
			return nil, http.StatusInternalServerError, &errorResponse{Error: "rendering answer: " + err.Error(), ExitCode: 1}
		}
		out.HTML = html
	}
	return out, http.StatusOK, nil
}

func (s *Server) handleSilos(w http.ResponseWriter, r *http.Request) {
	silos, err := s.engine.Silos()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: err.Error(), ExitCode: 1})
		return
	}
	if silos == nil {
		silos = []query.SiloStatus{}
	}
	writeJSON(w, http.StatusOK, silos)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
