package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/models"
	"github.com/seclab-kr/blacklist-collector/common/services"
	"github.com/seclab-kr/blacklist-collector/common/utils"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// CollectionLogReader reads back persisted collection events.
// *logger.LogService satisfies it.
type CollectionLogReader interface {
	GetRecent(ctx context.Context, source string, limit, offset int) ([]models.CollectionLogResponse, error)
}

// CollectionHandler serves run history and collection logs for
// post-mortems: which runs happened, what they saved, what they logged.
type CollectionHandler struct {
	runs   services.CollectionRunService
	logs   CollectionLogReader
	router *chi.Mux
}

func NewCollectionHandler(runs services.CollectionRunService, logs CollectionLogReader) *CollectionHandler {
	router := chi.NewRouter()

	h := &CollectionHandler{
		runs:   runs,
		logs:   logs,
		router: router,
	}

	router.Get("/runs", h.handleLatestRuns)
	router.Get("/runs/{source}", h.handleRunsBySource)
	router.Get("/logs", h.handleRecentLogs)
	return h
}

func (h *CollectionHandler) Router() *chi.Mux {
	return h.router
}

// handleLatestRuns returns the most recent run of every source
func (h *CollectionHandler) handleLatestRuns(w http.ResponseWriter, r *http.Request) {
	latest, err := h.runs.LatestPerSource(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load latest runs")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load latest runs")
		return
	}

	utils.WriteJSON(w, http.StatusOK, latest)
}

// handleRunsBySource returns recent runs of one source, newest first
func (h *CollectionHandler) handleRunsBySource(w http.ResponseWriter, r *http.Request) {
	source := strings.ToUpper(chi.URLParam(r, "source"))

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultRunLimit
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}

	runs, err := h.runs.ListBySource(r.Context(), source, limit)
	if err != nil {
		log.Error().Err(err).Str("source", source).Msg("Failed to list runs")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	utils.WriteJSON(w, http.StatusOK, runs)
}

// handleRecentLogs returns collection log entries, newest first,
// optionally filtered by source
func (h *CollectionHandler) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	page, perPage := paginationParams(r)
	source := strings.ToUpper(r.URL.Query().Get("source"))

	offset := (page - 1) * perPage
	logs, err := h.logs.GetRecent(r.Context(), source, perPage, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load collection logs")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load collection logs")
		return
	}

	utils.WriteJSON(w, http.StatusOK, logs)
}
