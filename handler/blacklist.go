package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/services"
	"github.com/seclab-kr/blacklist-collector/common/utils"
)

const (
	defaultPerPage = 50
	maxPerPage     = 1000
)

// BlacklistHandler serves the collected blacklist: the newline-delimited
// active list firewall appliances pull, and a paginated JSON listing for
// operators.
type BlacklistHandler struct {
	blacklist services.BlacklistService
	router    *chi.Mux
}

func NewBlacklistHandler(blacklist services.BlacklistService) *BlacklistHandler {
	router := chi.NewRouter()

	h := &BlacklistHandler{
		blacklist: blacklist,
		router:    router,
	}

	router.Get("/active", h.handleActiveList)
	router.Get("/entries", h.handleListEntries)
	return h
}

func (h *BlacklistHandler) Router() *chi.Mux {
	return h.router
}

// handleActiveList writes the active public addresses, one per line.
// Whitelisted addresses are already excluded by the query. The format is
// what FortiGate external block list pulls expect, so errors answer in
// plain text too.
func (h *BlacklistHandler) handleActiveList(w http.ResponseWriter, r *http.Request) {
	ips, err := h.blacklist.ActiveIPs(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load active blacklist")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		http.Error(w, "blacklist unavailable", http.StatusServiceUnavailable)
		return
	}

	utils.WriteLines(w, http.StatusOK, ips)
}

func (h *BlacklistHandler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	page, perPage := paginationParams(r)
	source := strings.ToUpper(r.URL.Query().Get("source"))

	// active defaults to true; all=1 includes deactivated rows
	activeOnly := r.URL.Query().Get("all") != "1"

	offset := (page - 1) * perPage
	entries, err := h.blacklist.List(r.Context(), source, activeOnly, perPage, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list blacklist entries")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list blacklist entries")
		return
	}

	total, err := h.blacklist.Count(r.Context(), source, activeOnly)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count blacklist entries")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to count blacklist entries")
		return
	}

	utils.WritePagination(w, http.StatusOK, entries, page, perPage, total)
}

// paginationParams reads page/per_page with the listing defaults
func paginationParams(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
