package http

import (
	"fmt"
	"net/http"
	"strings"

	"datainsight/internal/core"
)

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	var (
		clients []core.Client
		err     error
	)
	if country := strings.TrimSpace(r.URL.Query().Get("country")); country != "" {
		clients, err = s.records.FindClientsByCountry(r.Context(), country)
	} else {
		clients, err = s.records.FindAllClients(r.Context())
	}
	if err != nil {
		respondError(w, r, fmt.Errorf("list clients: %w", err))
		return
	}
	respondList(w, mapViews(clients, toClientView))
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	c, err := s.records.FindClient(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toClientView(c))
}

// handleDeleteClient removes a client with its transactions and drops cached reports.
func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.records.DeleteClient(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	s.InvalidateReports()
	s.logger.InfoContext(r.Context(), "Client deleted", "client_id", id)
	respondData(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (s *Server) handleClientTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := s.records.FindClient(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	txs, err := s.records.TransactionsByClient(r.Context(), id)
	if err != nil {
		respondError(w, r, fmt.Errorf("transactions of client %d: %w", id, err))
		return
	}
	respondList(w, mapViews(txs, toTransactionView))
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query(), "limit", DefaultRecentLimit, 1, MaxRecentLimit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	txs, err := s.records.RecentTransactions(r.Context(), limit)
	if err != nil {
		respondError(w, r, fmt.Errorf("recent transactions: %w", err))
		return
	}
	respondList(w, mapViews(txs, toTransactionView))
}
