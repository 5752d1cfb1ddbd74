package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

// maxBodyBytes limits JSON request bodies.
const maxBodyBytes = 1 << 20

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type ErrorResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   ErrorBody `json:"error"`
}

// Responder writes JSON bodies and maps errors to status codes. Detail is
// only filled in diagnostic mode.
type Responder struct {
	diagnostic bool
	logger     *zap.Logger
}

func NewResponder(diagnostic bool, logger *zap.Logger) Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Responder{diagnostic: diagnostic, logger: logger}
}

func (rs Responder) JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rs.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (rs Responder) Error(w http.ResponseWriter, err error) {
	code := usecase.ErrorCode(err)
	status := statusFor(code)

	message := publicMessage(err)
	if status >= http.StatusInternalServerError {
		rs.logger.Error("request failed", zap.String("code", code), zap.Error(err))
	}

	body := ErrorResponse{
		Message: message,
		Error:   ErrorBody{Code: code, Message: message},
	}
	if rs.diagnostic {
		body.Error.Detail = err.Error()
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}
	rs.JSON(w, status, body)
}

func (rs Responder) BadJSON(w http.ResponseWriter, err error) {
	rs.Error(w, &usecase.DomainError{Code: usecase.CodeValidation, Message: "invalid JSON body", Err: err})
}

func statusFor(code string) int {
	switch code {
	case usecase.CodeInvalidIdentity, usecase.CodeInvalidStep, usecase.CodeValidation, usecase.CodeInvalidSignature:
		return http.StatusBadRequest
	case usecase.CodeThrottled:
		return http.StatusTooManyRequests
	case usecase.CodeForbidden:
		return http.StatusForbidden
	case usecase.CodeInvalidToken, usecase.CodeUnauthorized:
		return http.StatusUnauthorized
	case usecase.CodeNotFound:
		return http.StatusNotFound
	case usecase.CodeCollaboratorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides technical error text from clients.
func publicMessage(err error) string {
	switch e := asDomain(err); {
	case e != nil:
		return e.Message
	case usecase.ErrorCode(err) == usecase.CodeInvalidIdentity:
		return "valid email is required"
	case usecase.ErrorCode(err) == usecase.CodeInvalidStep:
		return "invalid step number"
	default:
		return "internal server error"
	}
}

func asDomain(err error) *usecase.DomainError {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// clientIP assumes chi's RealIP middleware already rewrote RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
