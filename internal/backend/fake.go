package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
)

// FakeService имитирует сервис детекции для тестов и локальной отладки дашборда
// (twctl fake-backend поднимает его как отдельный HTTP-сервер).
// Поле Fail переводит все ответы в 500.
type FakeService struct {
	mu      sync.Mutex
	Fail    atomic.Bool
	Trained atomic.Bool

	chart   map[string]any
	calls   map[string]int
	handler http.Handler
}

func NewFakeService() *FakeService {
	f := &FakeService{
		calls: make(map[string]int),
		chart: map[string]any{
			"last_updated": "2026-01-01T00:00:00",
			"session_stats": map[string]any{
				"total_logs_processed":     50,
				"total_anomalies_detected": 5,
				"normal_activities":        45,
				"threat_rate_percent":      10.0,
				"session_id":               "session_20260101_000000",
				"avg_processing_time_ms":   1.25,
				"last_processed_time":      "2026-01-01T00:00:59",
			},
			"timeline_data": map[string]any{
				"timestamps":     []string{"00:00", "00:01"},
				"normal_counts":  []int{20, 25},
				"anomaly_counts": []int{2, 3},
				"confidence_scores": []float64{0.8, 0.8},
			},
			"threat_categories": map[string]any{
				"categories": []string{"Failed Authentication"},
				"counts":     []int{5},
			},
			"hourly_patterns": map[string]any{
				"time_periods":  []string{"00-03", "03-06", "06-09", "09-12", "12-15", "15-18", "18-21", "21-24"},
				"threat_counts": []int{5, 0, 0, 0, 0, 0, 0, 0},
			},
			"data_source": "session_based_analysis",
			"session_id":  "session_20260101_000000",
		},
	}

	router := chi.NewRouter()
	router.Get(PathChartData, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		payload := f.chart
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, payload)
	})
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":           "Advanced DevSecOps Anomaly Detection System v2.0",
			"status":            "operational",
			"model_trained":     f.Trained.Load(),
			"real_data_enabled": true,
			"session_based":     true,
			"version":           "2.0.0",
		})
	})
	router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"system_status": "healthy",
			"model_trained": f.Trained.Load(),
			"api_version":   "1.0.0",
		})
	})
	train := func(w http.ResponseWriter, r *http.Request) {
		f.Trained.Store(true)
		writeJSON(w, http.StatusOK, map[string]any{
			"message":          "Model training completed successfully!",
			"training_samples": 200,
			"training_time":    "0.42 seconds",
			"model_status":     "trained and ready",
		})
	}
	router.Post("/train", train)
	router.Post("/train-on-real-data", train)
	router.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		if !f.Trained.Load() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Model not trained yet"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total_logs":       11,
			"suspicious_found": 3,
			"normal_found":     8,
			"summary":          "Test completed: Found 3 suspicious activities out of 11 total logs",
		})
	})
	router.Get("/test-real-detection", func(w http.ResponseWriter, r *http.Request) {
		if !f.Trained.Load() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Advanced models not trained yet"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":            "Session analysis complete: 7 threats detected",
			"session_id":         "session_20260101_000001",
			"total_analyzed":     100,
			"anomalies_detected": 7,
			"normal_behavior":    93,
			"threat_rate":        7.0,
		})
	})
	router.Get("/generate-data", func(w http.ResponseWriter, r *http.Request) {
		normal, _ := strconv.Atoi(r.URL.Query().Get("normal_count"))
		suspicious, _ := strconv.Atoi(r.URL.Query().Get("suspicious_count"))
		writeJSON(w, http.StatusOK, map[string]any{
			"message":          fmt.Sprintf("Generated %d sample logs", normal+suspicious),
			"normal_count":     normal,
			"suspicious_count": suspicious,
			"sample_data":      []map[string]any{},
		})
	})
	f.handler = router
	return f
}

// SetChart подменяет ответ /real-time-chart-data.
func (f *FakeService) SetChart(payload map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chart = payload
}

// Calls — сколько раз был вызван путь.
func (f *FakeService) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *FakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.mu.Unlock()

	if f.Fail.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "simulated outage"})
		return
	}
	f.handler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
