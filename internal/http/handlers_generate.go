package http

import (
	"context"
	"errors"
	"net/http"

	"datainsight/internal/services"
)

type generateView struct {
	services.RunSummary
	Records int `json:"records"`
}

// handleGenerate runs one generation job. The run outlives the request context.
// Reports are invalidated whenever the run committed anything, even if it failed.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	params, err := parseGenerationParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	summary, err := s.gen.Run(context.WithoutCancel(r.Context()), params)
	if summary.Records() > 0 {
		s.InvalidateReports()
	}
	if err != nil {
		var partial *services.PartialRunError
		if errors.As(err, &partial) {
			respondErrorData(w, r, err, generateView{RunSummary: partial.Summary, Records: partial.Summary.Records()})
			return
		}
		respondError(w, r, err)
		return
	}

	s.structured.LogRunCompleted(r.Context(), summary.Clients.RunID.String(),
		summary.Clients.Committed, summary.Transactions.Committed, summary.Rate)

	respondData(w, http.StatusCreated, generateView{RunSummary: summary, Records: summary.Records()})
}
