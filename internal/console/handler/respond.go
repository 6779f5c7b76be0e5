package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/threatwatch-dashboard/internal/backend"
	"github.com/xela07ax/threatwatch-dashboard/internal/console/service"
	"github.com/xela07ax/threatwatch-dashboard/internal/engine"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor разделяет ошибки клиента, недоступность сервиса детекции и остановку координатора.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable
	case backend.IsTransport(err), backend.IsProtocol(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
