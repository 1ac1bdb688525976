package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/models"
	"github.com/seclab-kr/blacklist-collector/common/services"
	"github.com/seclab-kr/blacklist-collector/common/utils"
	"github.com/seclab-kr/blacklist-collector/common/work"
	"github.com/seclab-kr/blacklist-collector/scheduler"
)

// SchedulerHandler exposes the scheduler control surface. Operational
// failures (run failed, source disabled, run already in flight) answer
// 200 with success:false so firewall-side pollers never mistake them for
// a dead service; 5xx is reserved for the scheduler itself being broken.
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	blacklist services.BlacklistService
	router    *chi.Mux
}

func NewSchedulerHandler(sched *scheduler.Scheduler, blacklist services.BlacklistService) *SchedulerHandler {
	router := chi.NewRouter()

	h := &SchedulerHandler{
		scheduler: sched,
		blacklist: blacklist,
		router:    router,
	}

	router.Get("/status", h.HandleStatus)
	router.Post("/force-collection/{source}", h.handleForceCollection)
	router.Post("/restart", h.handleRestart)
	return h
}

func (h *SchedulerHandler) Router() *chi.Mux {
	return h.router
}

// HandleStatus reports the scheduler state and per-source run counters.
// Exported so the server can also mount it at the root /status path the
// monitoring dashboards poll.
func (h *SchedulerHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	states := h.scheduler.GetStatus()

	// Row counts are garnish; the status surface stays up without them.
	var counts map[string]int64
	if h.blacklist != nil {
		var err error
		counts, err = h.blacklist.ActiveCountBySource(r.Context())
		if err != nil {
			log.Warn().Err(err).Msg("Active entry counts unavailable for status")
			counts = nil
		}
	}

	sources := make([]models.SourceStatusResponse, 0, len(states))
	for _, st := range states {
		entry := models.SourceStatusResponse{
			Name:       st.Source,
			Enabled:    st.Enabled,
			Status:     string(st.Status),
			RunCount:   st.RunCount,
			ErrorCount: st.ErrorCount,
			LastRun:    st.LastRun,
			NextRun:    st.NextRun,
			LastError:  st.LastError,
		}
		if counts != nil {
			n := counts[st.Source]
			entry.ActiveIPs = &n
		}
		sources = append(sources, entry)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })

	response := models.SchedulerStatusResponse{
		Running:       h.scheduler.Running(),
		UptimeSeconds: int64(h.scheduler.Uptime().Seconds()),
		Timestamp:     time.Now().UTC(),
		Sources:       sources,
	}
	if counts != nil {
		var total int64
		for _, n := range counts {
			total += n
		}
		response.TotalActiveEntries = &total
	}

	utils.WriteJSON(w, http.StatusOK, response)
}

// handleForceCollection runs one source immediately and waits for the
// outcome. The run is synchronous; clients get the full result, not a job
// handle.
func (h *SchedulerHandler) handleForceCollection(w http.ResponseWriter, r *http.Request) {
	source := strings.ToUpper(chi.URLParam(r, "source"))
	if source == "" {
		utils.WriteError(w, http.StatusBadRequest, "Source is required")
		return
	}

	res, err := h.scheduler.ForceCollection(r.Context(), source)
	switch {
	case errors.Is(err, scheduler.ErrUnknownSource):
		utils.WriteError(w, http.StatusNotFound, "Unknown source: "+source)
		return
	case errors.Is(err, work.ErrAlreadyRunning):
		utils.WriteJSON(w, http.StatusOK, models.ForceCollectionResponse{
			Success: false,
			Source:  source,
			RunID:   res.RunID,
			Message: "collection already running",
		})
		return
	case err != nil:
		log.Error().Err(err).Str("source", source).Msg("Force collection could not start")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to start collection")
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.ForceCollectionResponse{
		Success:    res.Success,
		Source:     res.Source,
		RunID:      res.RunID,
		Collected:  res.Collected,
		Saved:      res.Saved,
		Dropped:    res.Dropped,
		SaveErrors: res.SaveErrors,
		DurationMs: res.Duration().Milliseconds(),
		Message:    res.Message,
		Error:      res.ErrorString(),
	})
}

// handleRestart rebuilds the collectors from current configuration and
// re-arms the timers. Credential rotations take effect here without a
// process restart.
func (h *SchedulerHandler) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Restart(); err != nil {
		log.Error().Err(err).Msg("Scheduler restart failed")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to restart scheduler")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "scheduler restarted",
		"sources": h.scheduler.Sources(),
	})
}
