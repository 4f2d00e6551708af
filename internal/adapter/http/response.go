package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kweaver-ai/ai-store/internal/domain"
	"github.com/kweaver-ai/ai-store/internal/service"
)

const retryAfterSeconds = "30"

type envelope struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Stage string `json:"stage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

// writeError 把领域错误映射为 HTTP 状态码。
// ErrProvisioning 要先于 ErrNotFound 判断：下游返回 404 时也属于部署失败。
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
		msg = "package too large"
	case errors.Is(err, domain.ErrProvisioning):
		status = http.StatusBadGateway
		msg = err.Error()
	case errors.Is(err, domain.ErrVersionConflict):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, domain.ErrPackageFormat),
		errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, domain.ErrServiceUnavailable),
		errors.Is(err, domain.ErrServiceTimeout):
		status = http.StatusServiceUnavailable
		msg = err.Error()
	case errors.Is(err, domain.ErrServiceRejected):
		status = http.StatusBadGateway
		msg = err.Error()
	default:
		slog.Error("internal error", "error", err)
	}

	if service.IsRetryable(err) {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}

	body := envelope{Error: msg}
	var installErr *domain.InstallError
	if errors.As(err, &installErr) {
		body.Stage = string(installErr.Stage)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
