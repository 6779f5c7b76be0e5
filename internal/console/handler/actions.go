package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/xela07ax/threatwatch-dashboard/internal/backend"
)

type ActionRunner interface {
	Train(ctx context.Context, mode backend.Mode) (*backend.TrainResult, error)
	TestDetection(ctx context.Context, mode backend.Mode) (*backend.DetectionResult, error)
	GenerateSampleData(ctx context.Context, normal, suspicious int) (*backend.SampleData, error)
}

type ActionHandler struct {
	service ActionRunner
}

func NewActionHandler(s ActionRunner) *ActionHandler {
	return &ActionHandler{service: s}
}

// Train POST /api/v1/actions/train?mode=basic|real
func (h *ActionHandler) Train(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(w, r)
	if !ok {
		return
	}
	res, err := h.service.Train(r.Context(), mode)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Test POST /api/v1/actions/test?mode=basic|real
func (h *ActionHandler) Test(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(w, r)
	if !ok {
		return
	}
	res, err := h.service.TestDetection(r.Context(), mode)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":             res.Mode,
		"total_logs":       res.TotalLogs,
		"normal_count":     res.NormalCount,
		"suspicious_count": res.SuspiciousCount,
		"threat_rate":      res.ThreatRate,
		"session_id":       res.SessionID,
		"summary":          res.Summary,
	})
}

// Generate POST /api/v1/actions/generate?normal=N&suspicious=M
func (h *ActionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	normal, err1 := queryInt(r, "normal", 100)
	suspicious, err2 := queryInt(r, "suspicious", 10)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "normal and suspicious must be integers")
		return
	}
	res, err := h.service.GenerateSampleData(r.Context(), normal, suspicious)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseMode(w http.ResponseWriter, r *http.Request) (backend.Mode, bool) {
	mode, err := backend.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return mode, true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
