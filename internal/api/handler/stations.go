package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/seatwatch/internal/api/respond"
	"github.com/albapepper/seatwatch/internal/cache"
	"github.com/albapepper/seatwatch/internal/station"
)

const stationsCacheKey = "stations:all"

// StationList is the body of GET /stations.
type StationList struct {
	Stations []station.Station `json:"stations"`
	Count    int               `json:"count"`
}

// ListStations returns the station directory, optionally filtered by q.
// The unfiltered list is served from cache with an ETag.
// @Summary List stations
// @Description Returns every known station ordered by name. With q, returns stations whose name or ID contains q.
// @Tags stations
// @Produce json
// @Param q query string false "Name or ID fragment"
// @Success 200 {object} StationList
// @Success 304
// @Router /stations [get]
func (h *Handler) ListStations(w http.ResponseWriter, r *http.Request) {
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		found := h.stations.Search(q)
		if found == nil {
			found = []station.Station{}
		}
		respond.WriteJSONObject(w, http.StatusOK, StationList{Stations: found, Count: len(found)})
		return
	}

	ttl := cache.TTLStations
	if data, etag, ok := h.cache.Get(stationsCacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	all := h.stations.All()
	data, err := json.Marshal(StationList{Stations: all, Count: len(all)})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal, "Failed to encode stations")
		return
	}
	etag := h.cache.Set(stationsCacheKey, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}

// GetStation returns a single station.
// @Summary Get a station
// @Tags stations
// @Produce json
// @Param id path string true "Station ID"
// @Success 200 {object} station.Station
// @Failure 404 {object} respond.ErrorResponse
// @Router /stations/{id} [get]
func (h *Handler) GetStation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.stations.Has(id) {
		respond.WriteError(w, http.StatusNotFound, respond.CodeNotFound, "Unknown station "+id)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, station.Station{ID: id, Name: h.stations.NameOf(id)})
}
