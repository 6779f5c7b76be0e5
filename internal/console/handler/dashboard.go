package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

// DashboardService Описываем, что нам нужно от сервиса
type DashboardService interface {
	View() domain.View
	Alerts() []domain.Alert
	Refresh(ctx context.Context) (bool, error)
	SetLocalStats(ctx context.Context, local domain.LocalStats) error
}

type DashboardHandler struct {
	service DashboardService
}

func NewDashboardHandler(s DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetView отдает текущий снимок.
// GET /api/v1/dashboard
func (h *DashboardHandler) GetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.View())
}

// ListAlerts — новые первыми.
// GET /api/v1/alerts
func (h *DashboardHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Alerts())
}

// Refresh запускает пулл. accepted=false означает, что пулл уже шел и запрос отброшен.
// POST /api/v1/refresh
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	accepted, err := h.service.Refresh(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}

// PutLocalStats принимает результат детекции, выполненной вне дашборда.
// PUT /api/v1/local-stats
func (h *DashboardHandler) PutLocalStats(w http.ResponseWriter, r *http.Request) {
	var local domain.LocalStats
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&local); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.SetLocalStats(r.Context(), local); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
