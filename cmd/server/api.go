package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/ledger"
	"covered-call-lab/internal/monitor"
	"covered-call-lab/internal/observability"
	"covered-call-lab/internal/reporting"
	"covered-call-lab/internal/scanner"
	"covered-call-lab/internal/storage"
	"covered-call-lab/internal/whale"
)

// startHTTPServer serves the API until ctx is cancelled.
func (s *Server) startHTTPServer(ctx context.Context, addr string) {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/positions", s.handleListPositions).Methods(http.MethodGet)
	api.HandleFunc("/positions", s.handleAddPosition).Methods(http.MethodPost)
	api.HandleFunc("/positions/eligible", s.handleEligible).Methods(http.MethodGet)
	api.HandleFunc("/positions/capacity", s.handleCapacity).Methods(http.MethodGet)
	api.HandleFunc("/positions/value", s.handleValue).Methods(http.MethodPost)
	api.HandleFunc("/positions/{symbol}/{account}", s.handleGetPosition).Methods(http.MethodGet)
	api.HandleFunc("/positions/{symbol}/{account}", s.handleUpdatePosition).Methods(http.MethodPatch)
	api.HandleFunc("/positions/{symbol}/{account}", s.handleDeletePosition).Methods(http.MethodDelete)

	api.HandleFunc("/opportunities", s.handleOpportunities).Methods(http.MethodGet)
	api.HandleFunc("/scan", s.handleScanNow).Methods(http.MethodPost)

	api.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/recommendations", s.handleRecommendations).Methods(http.MethodGet)
	api.HandleFunc("/monitor", s.handleMonitorNow).Methods(http.MethodPost)

	api.HandleFunc("/flows", s.handleFlows).Methods(http.MethodGet)
	api.HandleFunc("/flows/summary", s.handleFlowSummary).Methods(http.MethodGet)
	api.HandleFunc("/flows/{id}/plan", s.handleFollowPlan).Methods(http.MethodGet)
	api.HandleFunc("/flows/{id}/follow", s.handleFollowFlow).Methods(http.MethodPost)
	api.HandleFunc("/flows/{id}/outcome", s.handleFlowOutcome).Methods(http.MethodPost)

	api.HandleFunc("/decisions", s.handleRecentDecisions).Methods(http.MethodGet)
	api.HandleFunc("/decisions", s.handleLogDecision).Methods(http.MethodPost)
	api.HandleFunc("/decisions/{id}/action", s.handleDecide).Methods(http.MethodPost)
	api.HandleFunc("/decisions/{id}/outcome", s.handleOutcome).Methods(http.MethodPost)

	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/patterns", s.handlePatterns).Methods(http.MethodGet)
	api.HandleFunc("/stats/symbols", s.handleSymbolStats).Methods(http.MethodGet)
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)

	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps storage sentinels to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrDuplicateKey),
		errors.Is(err, storage.ErrOutcomeRecorded),
		errors.Is(err, storage.ErrNotFollowed):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	LastScan    time.Time `json:"last_scan,omitempty"`
	LastMonitor time.Time `json:"last_monitor,omitempty"`
	ScanRuns    int       `json:"scan_runs"`
	MonitorRuns int       `json:"monitor_runs"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		LastScan:    s.lastScan,
		LastMonitor: s.lastMonitor,
		ScanRuns:    s.scanRuns,
		MonitorRuns: s.monitorRuns,
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// Position handlers

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.ledger.AllPositions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

type positionRequest struct {
	Symbol      string  `json:"symbol"`
	Shares      int     `json:"shares"`
	CostBasis   float64 `json:"cost_basis"`
	AccountType string  `json:"account_type"`
	Notes       string  `json:"notes"`
}

func (s *Server) handleAddPosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := s.ledger.Add(r.Context(), req.Symbol, req.Shares, req.CostBasis,
		domain.AccountType(req.AccountType), req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func positionKey(r *http.Request) domain.PositionKey {
	vars := mux.Vars(r)
	return domain.PositionKey{
		Symbol:      vars["symbol"],
		AccountType: domain.AccountType(vars["account"]),
	}
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	p, err := s.stores.positions.GetByKey(r.Context(), positionKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type positionUpdateRequest struct {
	Shares      *int     `json:"shares"`
	CostBasis   *float64 `json:"cost_basis"`
	AccountType *string  `json:"account_type"`
	Notes       *string  `json:"notes"`
}

func (s *Server) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	var req positionUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	upd := ledger.Update{
		Shares:    req.Shares,
		CostBasis: req.CostBasis,
		Notes:     req.Notes,
	}
	if req.AccountType != nil {
		account := domain.AccountType(*req.AccountType)
		upd.AccountType = &account
	}

	p, err := s.ledger.UpdatePosition(r.Context(), positionKey(r), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePosition(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.ledger.Delete(r.Context(), positionKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleEligible(w http.ResponseWriter, r *http.Request) {
	positions, err := s.ledger.EligiblePositions(r.Context(), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	capacity, err := s.ledger.CoveredCallCapacity(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, capacity)
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prices map[string]float64 `json:"prices"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	summary, err := s.ledger.TotalValue(r.Context(), req.Prices)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Opportunity handlers

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	opportunities := append([]*domain.Opportunity(nil), s.opportunities...)
	s.mu.Unlock()

	q := r.URL.Query()
	var criteria scanner.Criteria
	if v := q.Get("min_yield"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			criteria.MinYield = &f
		}
	}
	if v := q.Get("min_confidence"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			criteria.MinConfidence = &f
		}
	}
	if v := q.Get("max_delta"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			criteria.MaxDelta = &f
		}
	}
	criteria.ExcludeEarnings = q.Get("exclude_earnings") == "true"

	opportunities = scanner.FilterByCriteria(opportunities, criteria)
	if q.Get("best") == "true" {
		best := scanner.BestBySymbol(opportunities)
		opportunities = opportunities[:0]
		for _, o := range best {
			opportunities = append(opportunities, o)
		}
		sort.Slice(opportunities, func(i, j int) bool {
			return opportunities[i].ConfidenceScore > opportunities[j].ConfidenceScore
		})
	}
	writeJSON(w, http.StatusOK, opportunities)
}

func (s *Server) handleScanNow(w http.ResponseWriter, r *http.Request) {
	s.runScan(r.Context())

	s.mu.Lock()
	opportunities := append([]*domain.Opportunity(nil), s.opportunities...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, opportunities)
}

// Monitor handlers

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	report := s.report
	s.mu.Unlock()

	if report == nil {
		writeJSON(w, http.StatusOK, &monitor.Report{})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	report := s.report
	s.mu.Unlock()

	if report == nil {
		writeJSON(w, http.StatusOK, []*monitor.Alert{})
		return
	}

	minProfit := 0.40
	if v := r.URL.Query().Get("min_profit"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			minProfit = f
		}
	}
	writeJSON(w, http.StatusOK, monitor.ClosingRecommendations(report, minProfit))
}

func (s *Server) handleMonitorNow(w http.ResponseWriter, r *http.Request) {
	s.runMonitor(r.Context())

	s.mu.Lock()
	report := s.report
	s.mu.Unlock()
	if report == nil {
		report = &monitor.Report{}
	}
	writeJSON(w, http.StatusOK, monitor.Summarize(report))
}

// Whale flow handlers

func (s *Server) handleFlows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		flows, err := s.stores.flows.GetBySymbol(ctx, symbol)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, flows)
		return
	}

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}
	end := time.Now()
	flows, err := s.stores.flows.GetByTimeRange(ctx, end.Add(-time.Duration(hours)*time.Hour), end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flows)
}

func (s *Server) handleFlowSummary(w http.ResponseWriter, r *http.Request) {
	end := time.Now()
	flows, err := s.stores.flows.GetByTimeRange(r.Context(), end.Add(-24*time.Hour), end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, whale.DailySummary(flows))
}

func (s *Server) handleFollowPlan(w http.ResponseWriter, r *http.Request) {
	flow, err := s.stores.flows.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	plan, ok := whale.FollowTrade(flow)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"follow": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"follow": true, "plan": plan})
}

func (s *Server) handleFollowFlow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Contracts int     `json:"contracts"`
		Cost      float64 `json:"cost"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.tracker.FollowWhaleFlow(r.Context(), mux.Vars(r)["id"], req.Contracts, req.Cost); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"followed": true})
}

func (s *Server) handleFlowOutcome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Outcome   string  `json:"outcome"`
		ResultPnL float64 `json:"result_pnl"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	err := s.tracker.RecordWhaleOutcome(r.Context(), mux.Vars(r)["id"],
		domain.Outcome(req.Outcome), req.ResultPnL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"recorded": true})
}

// Decision handlers

func (s *Server) handleRecentDecisions(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	decisions, err := s.tracker.RecentDecisions(r.Context(), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decisions)
}

type decisionRequest struct {
	Symbol     string  `json:"symbol"`
	Strike     float64 `json:"strike"`
	Expiration string  `json:"expiration"` // yyyy-mm-dd
	Action     string  `json:"action"`
	Contracts  int     `json:"contracts"`
	Notes      string  `json:"notes"`
}

// handleLogDecision records the user's response to an opportunity from
// the latest scan.
func (s *Server) handleLogDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	var match *domain.Opportunity
	for _, o := range s.opportunities {
		if o.Symbol == req.Symbol && o.Strike == req.Strike &&
			o.Expiration.Format("2006-01-02") == req.Expiration {
			match = o
			break
		}
	}
	s.mu.Unlock()

	if match == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no such opportunity in the latest scan",
		})
		return
	}

	d, err := s.tracker.LogOpportunity(r.Context(), match,
		domain.DecisionAction(req.Action), req.Contracts, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	observability.RecordDecision(string(d.Decision))
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action    string `json:"action"`
		Contracts int    `json:"contracts"`
		Notes     string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	err := s.tracker.Decide(r.Context(), mux.Vars(r)["id"],
		domain.DecisionAction(req.Action), req.Contracts, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	observability.RecordDecision(req.Action)
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Outcome     string   `json:"outcome"`
		ClosedPrice *float64 `json:"closed_price"`
		ClosedDate  *string  `json:"closed_date"` // yyyy-mm-dd
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var closedDate *time.Time
	if req.ClosedDate != nil {
		t, err := time.Parse("2006-01-02", *req.ClosedDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed closed_date"})
			return
		}
		closedDate = &t
	}

	actual, err := s.tracker.RecordOutcome(r.Context(), mux.Vars(r)["id"],
		domain.Outcome(req.Outcome), req.ClosedPrice, closedDate)
	if err != nil {
		writeError(w, err)
		return
	}
	observability.RecordOutcome(req.Outcome)
	writeJSON(w, http.StatusOK, map[string]float64{"actual_return": actual})
}

// Stats handlers

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tracker.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	report, err := s.tracker.PatternAnalysis(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSymbolStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tracker.SymbolPerformance(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.generator.Generate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, report)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(report)))
}
