package handlers

import (
	"net/http"
	"time"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

type BatchHandler struct {
	orch *usecase.Orchestrator
	resp Responder
	now  func() time.Time
}

func NewBatchHandler(orch *usecase.Orchestrator, resp Responder) *BatchHandler {
	return &BatchHandler{orch: orch, resp: resp, now: time.Now}
}

type BatchResponse struct {
	Success bool                `json:"success"`
	Result  usecase.BatchResult `json:"result"`
}

// Handle POST /api/events/batch. Per-event failures are reported in the
// body; the request itself succeeds once every event was attempted.
func (h *BatchHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var in usecase.BatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.BadJSON(w, err)
		return
	}
	if errs := usecase.ValidateInput(in); len(errs) > 0 {
		h.resp.Error(w, usecase.ValidationFailed(errs))
		return
	}

	now := h.now()
	events := make([]entity.LifecycleEvent, len(in.Events))
	for i, e := range in.Events {
		events[i] = e.Event(now)
	}

	result := h.orch.HandleBatch(r.Context(), events)
	h.resp.JSON(w, http.StatusOK, BatchResponse{Success: result.Failed == 0, Result: result})
}
