package http

import (
	"context"
	"fmt"
	"net/http"

	"datainsight/internal/analytics"
	"datainsight/internal/core"
)

const (
	maxTopClients = 1000
	maxSalesDays  = 3650
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.engine.Overview(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, ov)
}

func (s *Server) handleRevenueByCountry(w http.ResponseWriter, r *http.Request) {
	listOrError(w, r, s.engine.RevenueByCountry)
}

func (s *Server) handleRevenueByCategory(w http.ResponseWriter, r *http.Request) {
	listOrError(w, r, s.engine.RevenueByCategory)
}

func (s *Server) handleTopClients(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r.URL.Query(), "limit", s.topClients(), 1, maxTopClients)
	if err != nil {
		respondError(w, r, err)
		return
	}
	listOrError(w, r, func(ctx context.Context) ([]core.ClientSpend, error) {
		return s.engine.TopClients(ctx, n)
	})
}

func (s *Server) handleSalesByMonth(w http.ResponseWriter, r *http.Request) {
	listOrError(w, r, s.engine.SalesByMonth)
}

func (s *Server) handleSalesByDay(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r.URL.Query(), "days", s.salesDays(), 1, maxSalesDays)
	if err != nil {
		respondError(w, r, err)
		return
	}
	listOrError(w, r, func(ctx context.Context) ([]core.DaySales, error) {
		return s.engine.SalesByDay(ctx, days)
	})
}

func (s *Server) handleClientsByCountry(w http.ResponseWriter, r *http.Request) {
	listOrError(w, r, s.engine.ClientsByCountry)
}

func (s *Server) handleClientsByProfession(w http.ResponseWriter, r *http.Request) {
	listOrError(w, r, s.engine.ClientsByProfession)
}

func (s *Server) handleAgeByCountry(w http.ResponseWriter, r *http.Request) {
	listOrError(w, r, s.engine.AverageAgeByCountry)
}

// handleReport serves the full report from the cache while it is fresh.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	top, err := queryInt(q, "top", s.topClients(), 1, maxTopClients)
	if err != nil {
		respondError(w, r, err)
		return
	}
	days, err := queryInt(q, "days", s.salesDays(), 1, maxSalesDays)
	if err != nil {
		respondError(w, r, err)
		return
	}

	rep, err := s.cachedReport(r.Context(), analytics.ReportOptions{TopClients: top, SalesDays: days})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, rep)
}

func (s *Server) cachedReport(ctx context.Context, opts analytics.ReportOptions) (core.Report, error) {
	key := fmt.Sprintf("report:top=%d:days=%d", opts.TopClients, opts.SalesDays)
	if rep, ok := s.reportCache.Get(key); ok {
		s.logger.DebugContext(ctx, "Report cache hit", "key", key)
		return rep, nil
	}

	s.reportMu.Lock()
	epoch := s.reportEpoch
	s.reportMu.Unlock()

	rep, err := s.engine.Report(ctx, opts)
	if err != nil {
		return core.Report{}, err
	}

	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	if s.reportEpoch != epoch {
		// invalidated while computing; the report may predate the new data
		s.logger.DebugContext(ctx, "Report not cached, invalidated during computation", "key", key)
		return rep, nil
	}
	s.reportCache.Set(key, rep)
	s.logger.DebugContext(ctx, "Report cached", "key", key, "clients", rep.Overview.TotalClients)
	return rep, nil
}

func (s *Server) topClients() int {
	if s.report.TopClients > 0 {
		return s.report.TopClients
	}
	return analytics.DefaultTopClients
}

func (s *Server) salesDays() int {
	if s.report.SalesDays > 0 {
		return s.report.SalesDays
	}
	return analytics.DefaultSalesDays
}

func listOrError[T any](w http.ResponseWriter, r *http.Request, fn func(context.Context) ([]T, error)) {
	rows, err := fn(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondList(w, rows)
}
