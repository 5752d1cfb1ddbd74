package handlers

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

const stripeSignatureHeader = "Stripe-Signature"

type WebhookHandler struct {
	verifier usecase.WebhookVerifier
	orch     *usecase.Orchestrator
	resp     Responder
	logger   *zap.Logger
}

func NewWebhookHandler(verifier usecase.WebhookVerifier, orch *usecase.Orchestrator, resp Responder, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{verifier: verifier, orch: orch, resp: resp, logger: logger}
}

type WebhookResponse struct {
	Received bool                 `json:"received"`
	Result   *usecase.BatchResult `json:"result,omitempty"`
}

// Handle POST /api/payments/webhook. A 500 makes the provider redeliver,
// so it is only returned when some primary effect failed.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.resp.BadJSON(w, err)
		return
	}

	events, err := h.verifier.VerifyAndParseWebhook(payload, r.Header.Get(stripeSignatureHeader))
	if err != nil {
		h.logger.Warn("webhook rejected", zap.Error(err))
		h.resp.Error(w, err)
		return
	}
	if len(events) == 0 {
		h.resp.JSON(w, http.StatusOK, WebhookResponse{Received: true})
		return
	}

	result := h.orch.HandleBatch(r.Context(), events)
	status := http.StatusOK
	if result.Retryable() {
		status = http.StatusInternalServerError
		h.logger.Error("webhook processing failed, provider will retry",
			zap.Int("failed", result.Failed),
			zap.Int("total", result.Total),
		)
	}
	h.resp.JSON(w, status, WebhookResponse{Received: true, Result: &result})
}
