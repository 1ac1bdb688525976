package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/ipaddr"
	"github.com/seclab-kr/blacklist-collector/common/services"
	"github.com/seclab-kr/blacklist-collector/common/utils"
)

// WhitelistHandler manages the exclusion list. A whitelisted address is
// dropped from every active-blacklist read no matter how many sources
// report it.
type WhitelistHandler struct {
	whitelist services.WhitelistService
	router    *chi.Mux
}

func NewWhitelistHandler(whitelist services.WhitelistService) *WhitelistHandler {
	router := chi.NewRouter()

	h := &WhitelistHandler{
		whitelist: whitelist,
		router:    router,
	}

	router.Get("/", h.handleListWhitelist)
	router.Post("/", h.handleCreateWhitelist)
	router.Delete("/{ip}", h.handleDeleteWhitelist)
	return h
}

func (h *WhitelistHandler) Router() *chi.Mux {
	return h.router
}

type WhitelistCreateParams struct {
	IPAddress string `json:"ip_address" validate:"required"`
	Reason    string `json:"reason"`
	Source    string `json:"source"`
}

func (h *WhitelistHandler) handleListWhitelist(w http.ResponseWriter, r *http.Request) {
	page, perPage := paginationParams(r)

	offset := (page - 1) * perPage
	entries, err := h.whitelist.List(r.Context(), perPage, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list whitelist entries")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list whitelist entries")
		return
	}

	total, err := h.whitelist.Count(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to count whitelist entries")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to count whitelist entries")
		return
	}

	utils.WritePagination(w, http.StatusOK, entries, page, perPage, total)
}

func (h *WhitelistHandler) handleCreateWhitelist(w http.ResponseWriter, r *http.Request) {
	var p WhitelistCreateParams

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	normalized, ok := ipaddr.Normalize(p.IPAddress)
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid IPv4 address: "+p.IPAddress)
		return
	}

	source := p.Source
	if source == "" {
		source = "MANUAL"
	}

	entry, err := h.whitelist.Create(r.Context(), normalized, p.Reason, source)
	if err != nil {
		log.Error().Err(err).Str("ip", normalized).Msg("Failed to create whitelist entry")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create whitelist entry")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, entry)
}

func (h *WhitelistHandler) handleDeleteWhitelist(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")

	normalized, ok := ipaddr.Normalize(ip)
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Invalid IPv4 address: "+ip)
		return
	}

	removed, err := h.whitelist.Deactivate(r.Context(), normalized)
	if err != nil {
		log.Error().Err(err).Str("ip", normalized).Msg("Failed to deactivate whitelist entry")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to remove whitelist entry")
		return
	}
	if !removed {
		utils.WriteError(w, http.StatusNotFound, "Address not whitelisted: "+normalized)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})
}
