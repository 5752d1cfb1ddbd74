package handlers

import (
	"fmt"
	"net/http"

	"github.com/xavierca1/ligue-lifecycle/internal/infra/config"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

// EmailHandler serves the email flows outside the payment webhooks: nurture
// enrollment, the daily program sends and unsubscribe links.
type EmailHandler struct {
	orch          *usecase.Orchestrator
	subscriptions *usecase.Subscriptions
	admission     *usecase.Admission
	limits        config.RateLimits
	resp          Responder
}

func NewEmailHandler(orch *usecase.Orchestrator, subscriptions *usecase.Subscriptions, admission *usecase.Admission, limits config.RateLimits, resp Responder) *EmailHandler {
	return &EmailHandler{orch: orch, subscriptions: subscriptions, admission: admission, limits: limits, resp: resp}
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type DailyBatchResponse struct {
	Success bool `json:"success"`
	usecase.DailyBatchResult
}

// Nurture POST /api/email/nurture-sequence
func (h *EmailHandler) Nurture(w http.ResponseWriter, r *http.Request) {
	var req usecase.NurtureInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.resp.BadJSON(w, err)
		return
	}

	action := config.ActionNurture
	id, err := h.admission.Admit(r.Context(), req.Email, action, h.limits.Rule(action))
	if err != nil {
		h.resp.Error(w, err)
		return
	}
	req.Email = id.String()

	res, err := h.orch.StartNurture(r.Context(), req)
	if err != nil {
		h.resp.Error(w, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: res.Sequence + " nurture sequence started",
	})
}

// DailyProgress POST /api/email/daily-progress (system token)
func (h *EmailHandler) DailyProgress(w http.ResponseWriter, r *http.Request) {
	var req usecase.DailyProgressInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.resp.BadJSON(w, err)
		return
	}

	if _, err := h.orch.SendDailyProgress(r.Context(), req); err != nil {
		h.resp.Error(w, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: fmt.Sprintf("Day %d email sent", req.Day),
	})
}

// DailyBatch POST /api/email/send-daily-batch (system token)
func (h *EmailHandler) DailyBatch(w http.ResponseWriter, r *http.Request) {
	var req usecase.DailyBatchInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.resp.BadJSON(w, err)
		return
	}

	result, err := h.orch.SendDailyBatch(r.Context(), req)
	if err != nil {
		h.resp.Error(w, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, DailyBatchResponse{Success: true, DailyBatchResult: result})
}

// Unsubscribe POST /api/email/unsubscribe
func (h *EmailHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req usecase.UnsubscribeInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.resp.BadJSON(w, err)
		return
	}

	if _, err := h.subscriptions.Unsubscribe(r.Context(), req); err != nil {
		h.resp.Error(w, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Successfully unsubscribed"})
}
