package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/threatwatch-dashboard/internal/console/service"
)

type StatusProvider interface {
	System(ctx context.Context) (*service.SystemReport, error)
}

type SystemHandler struct {
	service StatusProvider
}

func NewSystemHandler(s StatusProvider) *SystemHandler {
	return &SystemHandler{service: s}
}

// Get — статус сервиса детекции (basic или advanced).
// GET /api/v1/system
func (h *SystemHandler) Get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.System(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
