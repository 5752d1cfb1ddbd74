package handlers

import (
	"net/http"

	"github.com/xavierca1/ligue-lifecycle/internal/infra/config"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

type LeadHandler struct {
	orch      *usecase.Orchestrator
	admission *usecase.Admission
	limits    config.RateLimits
	resp      Responder
}

func NewLeadHandler(orch *usecase.Orchestrator, admission *usecase.Admission, limits config.RateLimits, resp Responder) *LeadHandler {
	return &LeadHandler{orch: orch, admission: admission, limits: limits, resp: resp}
}

type CaptureLeadResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Subscribed bool   `json:"subscribed"`
	LeadMagnet string `json:"leadMagnet,omitempty"`
}

// CaptureLead POST /api/email/lead-magnet
func (h *LeadHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	var req usecase.LeadMagnetInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.resp.BadJSON(w, err)
		return
	}

	action := config.ActionLeadMagnet
	id, err := h.admission.Admit(r.Context(), req.Email, action, h.limits.Rule(action))
	if err != nil {
		h.resp.Error(w, err)
		return
	}
	req.Email = id.String()

	res, err := h.orch.RequestLeadMagnet(r.Context(), req)
	if err != nil {
		h.resp.Error(w, err)
		return
	}

	h.resp.JSON(w, http.StatusOK, CaptureLeadResponse{
		Success:    true,
		Message:    "Checklist sent! Check your email.",
		Subscribed: !res.Duplicate,
		LeadMagnet: req.LeadMagnet,
	})
}
