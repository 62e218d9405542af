package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/seatwatch/internal/api/auth"
	"github.com/albapepper/seatwatch/internal/api/respond"
	"github.com/albapepper/seatwatch/internal/watch"
)

const maxBodyBytes = 16 << 10

// CreateWatchRequest is the body of POST /watches.
type CreateWatchRequest struct {
	FromStationID  string           `json:"from_station_id" example:"0001"`
	ToStationID    string           `json:"to_station_id" example:"0020"`
	TravelDate     string           `json:"travel_date" example:"2026-10-24"`
	CabinClass     watch.CabinClass `json:"cabin_class" example:"ECONOMY"`
	DepartureStart string           `json:"departure_start" example:"07:00"`
	DepartureEnd   string           `json:"departure_end" example:"10:00"`
	HighSpeedOnly  bool             `json:"high_speed_only"`
}

func (c CreateWatchRequest) input() watch.CreateInput {
	return watch.CreateInput{
		FromStationID: strings.TrimSpace(c.FromStationID),
		ToStationID:   strings.TrimSpace(c.ToStationID),
		TravelDate:    c.TravelDate,
		CabinClass:    watch.CabinClass(strings.ToUpper(string(c.CabinClass))),
		Window:        watch.Window{Start: c.DepartureStart, End: c.DepartureEnd},
		HighSpeedOnly: c.HighSpeedOnly,
	}
}

// WatchList is the body of GET /watches.
type WatchList struct {
	Watches []watch.View `json:"watches"`
	Count   int          `json:"count"`
}

// BulkResponse reports a bulk decline or delete.
type BulkResponse struct {
	Affected []watch.View     `json:"affected"`
	Skipped  []watch.BulkSkip `json:"skipped"`
}

// CreateWatch opens a new watch for the caller.
// @Summary Create a watch
// @Description Validates the request and stores a PENDING watch. A user may hold at most two open watches, and only one per unordered station pair.
// @Tags watches
// @Accept json
// @Produce json
// @Param body body CreateWatchRequest true "Watch definition"
// @Success 201 {object} watch.View
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Security BearerAuth
// @Router /watches [post]
func (h *Handler) CreateWatch(w http.ResponseWriter, r *http.Request) {
	var body CreateWatchRequest
	if err := decodeBody(r, &body); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, respond.CodeBadRequest, "Invalid request body", err.Error())
		return
	}

	req, err := h.watches.Create(r.Context(), auth.UserID(r.Context()), body.input())
	if err != nil {
		h.serviceError(w, r, "create", err)
		return
	}

	if h.scheduler != nil {
		h.scheduler.CheckCadence(r.Context())
	}
	respond.WriteJSONObject(w, http.StatusCreated, h.watches.View(req))
}

// ListWatches returns the caller's non-deleted watches.
// @Summary List watches
// @Description Returns the caller's watches newest first, with station names. Deleted watches are never listed.
// @Tags watches
// @Produce json
// @Param status query string false "Comma-separated statuses" example(PENDING,FAILED)
// @Success 200 {object} WatchList
// @Failure 400 {object} respond.ErrorResponse
// @Security BearerAuth
// @Router /watches [get]
func (h *Handler) ListWatches(w http.ResponseWriter, r *http.Request) {
	statuses, err := parseStatuses(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeBadRequest, err.Error())
		return
	}
	views, err := h.watches.ListActive(r.Context(), auth.UserID(r.Context()), statuses...)
	if err != nil {
		h.serviceError(w, r, "list", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, WatchList{Watches: views, Count: len(views)})
}

// DeclineWatch cancels one of the caller's pending watches.
// @Summary Decline a watch
// @Tags watches
// @Produce json
// @Param id path string true "Watch ID"
// @Success 200 {object} watch.View
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Security BearerAuth
// @Router /watches/{id}/decline [post]
func (h *Handler) DeclineWatch(w http.ResponseWriter, r *http.Request) {
	req, err := h.watches.Decline(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, r, "decline", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, h.watches.View(req))
}

// DeleteWatch soft-deletes one of the caller's finished watches.
// @Summary Delete a watch
// @Tags watches
// @Produce json
// @Param id path string true "Watch ID"
// @Success 200 {object} watch.View
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Security BearerAuth
// @Router /watches/{id} [delete]
func (h *Handler) DeleteWatch(w http.ResponseWriter, r *http.Request) {
	req, err := h.watches.Delete(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, r, "delete", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, h.watches.View(req))
}

// BulkDecline declines every matching pending watch of the caller.
// @Summary Decline watches in bulk
// @Tags watches
// @Produce json
// @Param status query string false "Comma-separated statuses (default PENDING)"
// @Success 200 {object} BulkResponse
// @Failure 400 {object} respond.ErrorResponse
// @Security BearerAuth
// @Router /watches/decline [post]
func (h *Handler) BulkDecline(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "bulk decline", h.watches.BulkDecline)
}

// BulkDelete soft-deletes every matching finished watch of the caller.
// @Summary Delete watches in bulk
// @Tags watches
// @Produce json
// @Param status query string false "Comma-separated statuses (default COMPLETED,FAILED)"
// @Success 200 {object} BulkResponse
// @Failure 400 {object} respond.ErrorResponse
// @Security BearerAuth
// @Router /watches/delete [post]
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "bulk delete", h.watches.BulkDelete)
}

type bulkFunc func(ctx context.Context, userID string, statuses ...watch.Status) (*watch.BulkResult, error)

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request, op string, fn bulkFunc) {
	statuses, err := parseStatuses(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeBadRequest, err.Error())
		return
	}
	res, err := fn(r.Context(), auth.UserID(r.Context()), statuses...)
	if err != nil {
		h.serviceError(w, r, op, err)
		return
	}

	out := BulkResponse{
		Affected: make([]watch.View, 0, len(res.Affected)),
		Skipped:  res.Skipped,
	}
	if out.Skipped == nil {
		out.Skipped = []watch.BulkSkip{}
	}
	for i := range res.Affected {
		out.Affected = append(out.Affected, h.watches.View(&res.Affected[i]))
	}
	respond.WriteJSONObject(w, http.StatusOK, out)
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !watch.IsValidation(err) && !watch.IsNotFound(err) {
		h.logger.Error("Watch operation failed", "op", op,
			"user_id", auth.UserID(r.Context()), "error", err)
	}
	respond.WriteServiceError(w, err)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

// parseStatuses reads ?status=A,B (repeatable) into validated statuses.
func parseStatuses(r *http.Request) ([]watch.Status, error) {
	var out []watch.Status
	for _, raw := range r.URL.Query()["status"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			s := watch.Status(part)
			if !s.Valid() {
				return nil, errors.New("unknown status " + part)
			}
			out = append(out, s)
		}
	}
	return out, nil
}
