package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/config"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

type ProgressHandler struct {
	orch      *usecase.Orchestrator
	admission *usecase.Admission
	limits    config.RateLimits
	resp      Responder
}

func NewProgressHandler(orch *usecase.Orchestrator, admission *usecase.Admission, limits config.RateLimits, resp Responder) *ProgressHandler {
	return &ProgressHandler{orch: orch, admission: admission, limits: limits, resp: resp}
}

type CompleteStepResponse struct {
	Success     bool            `json:"success"`
	Progress    entity.Progress `json:"progress"`
	AllComplete bool            `json:"allComplete"`
}

type ResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type FunnelResponse struct {
	Success   bool                 `json:"success"`
	Analytics usecase.FunnelReport `json:"analytics"`
}

// admit valida o e-mail da rota antes de consumir o limite.
func (h *ProgressHandler) admit(w http.ResponseWriter, r *http.Request, action string) (entity.Identity, bool) {
	id, err := h.admission.Admit(r.Context(), chi.URLParam(r, "email"), action, h.limits.Rule(action))
	if err != nil {
		h.resp.Error(w, err)
		return "", false
	}
	return id, true
}

// Get GET /api/onboarding/progress/{email}
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.admit(w, r, config.ActionProgressRead)
	if !ok {
		return
	}
	p, err := h.orch.GetProgress(r.Context(), id)
	if err != nil {
		h.resp.Error(w, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, usecase.ProgressOutput{Success: true, Progress: p})
}

// Update POST /api/onboarding/progress/{email}
func (h *ProgressHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.admit(w, r, config.ActionProgressWrite)
	if !ok {
		return
	}
	var in usecase.UpdateProgressInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.resp.BadJSON(w, err)
		return
	}
	p, err := h.orch.UpdateProgress(r.Context(), id, in)
	if err != nil {
		h.resp.Error(w, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, usecase.ProgressOutput{
		Success:  true,
		Progress: p,
		Message:  "Progress updated successfully",
	})
}

// CompleteStep POST /api/onboarding/complete-step/{email}/{step}
func (h *ProgressHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	id, ok := h.admit(w, r, config.ActionCompleteStep)
	if !ok {
		return
	}
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil || !entity.ValidStep(step) {
		h.resp.Error(w, entity.ErrInvalidStep)
		return
	}

	res, err := h.orch.CompleteStep(r.Context(), id, step, r.URL.Query().Get("client_id"))
	if err != nil {
		h.resp.Error(w, err)
		return
	}
	out := CompleteStepResponse{Success: true, AllComplete: res.AllComplete}
	if res.Progress != nil {
		out.Progress = *res.Progress
	}
	h.resp.JSON(w, http.StatusOK, out)
}

// Reset DELETE /api/onboarding/progress/{email}
func (h *ProgressHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.admit(w, r, config.ActionProgressReset)
	if !ok {
		return
	}
	if _, err := h.orch.ResetProgress(r.Context(), id); err != nil {
		h.resp.Error(w, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, ResetResponse{Success: true, Message: "Progress reset successfully"})
}

// Funnel GET /api/onboarding/analytics, limitado por IP.
func (h *ProgressHandler) Funnel(w http.ResponseWriter, r *http.Request) {
	action := config.ActionAnalytics
	if err := h.admission.AdmitKey(r.Context(), clientIP(r), action, h.limits.Rule(action)); err != nil {
		h.resp.Error(w, err)
		return
	}
	report, err := h.orch.Funnel(r.Context())
	if err != nil {
		h.resp.Error(w, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, FunnelResponse{Success: true, Analytics: report})
}
