package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/username/priceboard/backend/src/logger"
	"github.com/username/priceboard/backend/src/models"
	"github.com/username/priceboard/backend/src/security/validation"
	"github.com/username/priceboard/backend/src/services"
	"github.com/username/priceboard/backend/src/utils"
)

type BoardHandler struct {
	board *services.BoardService
}

func NewBoardHandler(board *services.BoardService) *BoardHandler {
	return &BoardHandler{board: board}
}

type toggleWatchlistRequest struct {
	ProductName string `json:"productName"`
}

type toggleWatchlistResponse struct {
	Added   bool                    `json:"added"`
	Entries []models.WatchlistEntry `json:"entries"`
}

// filterStateFromQuery reads ?search=&product=&location=&sort=. An absent sort
// falls back to newest first.
func filterStateFromQuery(r *http.Request) models.FilterState {
	q := r.URL.Query()
	state := models.FilterState{
		SearchText:          validation.CleanInput(q.Get("search")),
		SelectedProductName: validation.CleanInput(q.Get("product")),
		SelectedLocation:    validation.CleanInput(q.Get("location")),
		SortKey:             models.SortKey(q.Get("sort")),
	}
	if state.SortKey == "" {
		state.SortKey = models.SortDate
	}
	return state
}

func (h *BoardHandler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	state := filterStateFromQuery(r)
	logger.L.Debug("Handling GetPrices request", "state", state)
	sendWithETag(w, r, h.board.View(state))
}

func (h *BoardHandler) HandleGetFilters(w http.ResponseWriter, r *http.Request) {
	view := h.board.View(models.FilterState{SortKey: models.SortDate})
	sendWithETag(w, r, view.Options)
}

func (h *BoardHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	view := h.board.View(filterStateFromQuery(r))
	utils.SendJSON(w, view.Stats, http.StatusOK)
}

func (h *BoardHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	logger.L.Info("Reload requested", "remoteAddr", r.RemoteAddr)
	if err := h.board.LoadData(r.Context()); err != nil {
		if errors.Is(err, services.ErrNoDataAvailable) {
			utils.SendJSONError(w, services.NoDataMessage, http.StatusServiceUnavailable)
			return
		}
		logger.L.Error("Reload failed", "error", err)
		utils.SendJSONError(w, "failed to reload prices", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, h.board.View(filterStateFromQuery(r)), http.StatusOK)
}

func (h *BoardHandler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	details, err := h.board.Details(name)
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			utils.SendJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, "failed to load item details", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, details, http.StatusOK)
}

func (h *BoardHandler) HandleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	entries := h.board.Watchlist()
	if entries == nil {
		entries = []models.WatchlistEntry{}
	}
	utils.SendJSON(w, entries, http.StatusOK)
}

func (h *BoardHandler) HandleToggleWatchlist(w http.ResponseWriter, r *http.Request) {
	var req toggleWatchlistRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.ProductName = strings.TrimSpace(validation.CleanInput(req.ProductName))
	if req.ProductName == "" {
		utils.SendJSONError(w, "productName is required", http.StatusBadRequest)
		return
	}

	entries, added, err := h.board.ToggleWatchlist(r.Context(), req.ProductName)
	if err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			utils.SendJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.L.Error("Watchlist toggle failed", "productName", req.ProductName, "error", err)
		utils.SendJSONError(w, "failed to save watchlist", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.WatchlistEntry{}
	}
	utils.SendJSON(w, toggleWatchlistResponse{Added: added, Entries: entries}, http.StatusOK)
}

// sendWithETag writes data with an ETag and answers 304 when the client
// already holds the same representation.
func sendWithETag(w http.ResponseWriter, r *http.Request, data interface{}) {
	w.Header().Set("Cache-Control", "no-cache")

	etag, err := utils.GenerateETag(data)
	if err != nil {
		logger.L.Warn("Proceeding without ETag check due to ETag generation error", "path", r.URL.Path, "error", err)
		utils.SendJSON(w, data, http.StatusOK)
		return
	}

	w.Header().Set("ETag", etag)
	for _, candidate := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		if strings.TrimSpace(candidate) == etag {
			logger.L.Debug("ETag match", "path", r.URL.Path, "etag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	utils.SendJSON(w, data, http.StatusOK)
}
