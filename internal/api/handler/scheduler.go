package handler

import (
	"net/http"

	"github.com/albapepper/seatwatch/internal/api/respond"
)

// GetSchedulerStatus reports the scheduler's cadence and last pass.
// @Summary Scheduler status
// @Description Returns the current cadence (idle or active), tick interval, pending count and the result of the most recent pass.
// @Tags scheduler
// @Produce json
// @Success 200 {object} monitor.Status
// @Failure 503 {object} respond.ErrorResponse
// @Router /scheduler [get]
func (h *Handler) GetSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "SCHEDULER_DISABLED", "Scheduler is not running in this process")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, h.scheduler.Status())
}
