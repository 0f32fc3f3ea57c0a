package server

import (
	"net/http"
	"time"

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/models"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Calendar
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/earnings", s.handleEarnings)

	// Cache administration
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/cache/status", s.handleCacheStatus)
	mux.HandleFunc("/api/cache/cleanup", s.handleCacheCleanup)
}

// handleHealth reports process and database health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	status := "ok"
	code := http.StatusOK
	if err := s.app.Storage.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		s.logger.Warn().Err(err).Msg("Health check database ping failed")
	}

	WriteJSON(w, code, map[string]interface{}{
		"status": status,
		"uptime": time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"commit":  common.GitCommit,
	})
}

// handleEvents handles GET /api/events — cached economic events for a query
// shape. force=true bypasses cache freshness and revives disabled keys.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	params := r.URL.Query()
	q := models.EventQuery{
		Country:    params.Get("country"),
		Importance: params.Get("importance"),
		From:       params.Get("from"),
		To:         params.Get("to"),
		Force:      QueryBool(r, "force"),
	}

	if !ValidDateParam(q.From) || !ValidDateParam(q.To) {
		WriteError(w, http.StatusBadRequest, "from/to must be YYYY-MM-DD")
		return
	}
	switch q.Importance {
	case "", string(models.ImportanceHigh), string(models.ImportanceMedium), string(models.ImportanceLow):
	default:
		WriteError(w, http.StatusBadRequest, "importance must be high, medium, or low")
		return
	}

	events, err := s.app.Cache.GetEconomicEvents(r.Context(), q)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to read events: "+err.Error())
		return
	}
	if events == nil {
		events = []models.EconomicEvent{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// handleEarnings handles GET /api/earnings — the earnings calendar for a
// date window, defaulting to the next 30 days.
func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	params := r.URL.Query()
	from := params.Get("from")
	to := params.Get("to")

	if !ValidDateParam(from) || !ValidDateParam(to) {
		WriteError(w, http.StatusBadRequest, "from/to must be YYYY-MM-DD")
		return
	}

	now := time.Now()
	if from == "" {
		from = now.Format("2006-01-02")
	}
	if to == "" {
		to = now.AddDate(0, 0, 30).Format("2006-01-02")
	}

	reports, err := s.app.EarningsService.GetEarnings(r.Context(), from, to, QueryBool(r, "force"))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to read earnings: "+err.Error())
		return
	}
	if reports == nil {
		reports = []models.EarningsReport{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"earnings": reports,
		"count":    len(reports),
		"from":     from,
		"to":       to,
	})
}

// handleRefresh handles POST /api/refresh — a synchronous forced refresh of
// every scheduled target.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	report, err := s.app.Scheduler.ManualUpdate(r.Context())
	if err != nil {
		// The report still carries per-target detail when everything failed
		WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":  err.Error(),
			"report": report,
		})
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// handleCacheStatus handles GET /api/cache/status — metadata for every
// tracked query shape.
func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	metas, err := s.app.Cache.Status(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to read cache status: "+err.Error())
		return
	}
	if metas == nil {
		metas = []*models.CacheMetadata{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": metas,
		"count":   len(metas),
	})
}

// handleCacheCleanup handles POST /api/cache/cleanup — removes events past
// the retention horizon.
func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	removed, err := s.app.Cache.Cleanup(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "cleanup failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}
