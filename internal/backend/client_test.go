package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, 2*time.Second, nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com", time.Second, nil)
	assert.Error(t, err)

	_, err = NewClient("://nope", time.Second, nil)
	assert.Error(t, err)
}

func TestFetchSessionData_DecodesPayloadVerbatim(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathChartData, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"last_updated": "2026-01-01T10:00:00",
			"session_stats": {"total_logs_processed": 50, "total_anomalies_detected": 5, "normal_activities": 45,
				"threat_rate_percent": 10.0, "session_id": "session_1", "avg_processing_time_ms": 1.5,
				"last_processed_time": "2026-01-01T09:59:58"},
			"timeline_data": {"timestamps": ["10:00", "10:01"], "normal_counts": [20, 25], "anomaly_counts": [2, 3],
				"confidence_scores": [0.8, 0.8]},
			"threat_categories": {"categories": ["Failed Authentication", "Privilege Escalation"], "counts": [3, 2]},
			"hourly_patterns": {"time_periods": ["00-03", "03-06"], "threat_counts": [4, 1]},
			"data_source": "session_based_analysis",
			"session_id": "session_1"
		}`))
	})
	c := newTestClient(t, h)

	data, err := c.FetchSessionData(context.Background())
	require.NoError(t, err)

	sessionID := "session_1"
	avg := 1.5
	lastProcessed := "2026-01-01T09:59:58"
	assert.Equal(t, domain.SessionStats{
		TotalLogsProcessed:     50,
		TotalAnomaliesDetected: 5,
		NormalActivities:       45,
		ThreatRatePercent:      10.0,
		SessionID:              &sessionID,
		AvgProcessingTimeMs:    &avg,
		LastProcessedTime:      &lastProcessed,
	}, data.Stats)
	assert.Equal(t, "session_based_analysis", data.DataSource)
	require.NotNil(t, data.SessionID)
	assert.Equal(t, sessionID, *data.SessionID)
	assert.Equal(t, "2026-01-01T10:00:00", data.LastUpdated)
	assert.Equal(t, domain.ChartDataset{
		Timeline: domain.Timeline{
			Timestamps:       []string{"10:00", "10:01"},
			NormalCounts:     []uint64{20, 25},
			AnomalyCounts:    []uint64{2, 3},
			ConfidenceScores: []float64{0.8, 0.8},
		},
		ThreatCategories: domain.ThreatCategories{
			Categories: []string{"Failed Authentication", "Privilege Escalation"},
			Counts:     []uint64{3, 2},
		},
		HourlyPattern: domain.HourlyPattern{
			Periods: []string{"00-03", "03-06"},
			Counts:  []uint64{4, 1},
		},
		SourceKind: domain.SourceRemote,
	}, data.Charts)
}

// Поля, которые сервис прислал пустыми или null, должны дойти до рендерера в той же форме.
func TestFetchSessionData_KeepsEmptyAndNullFieldsOnTheWire(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"session_stats": {"total_logs_processed": 0, "total_anomalies_detected": 0, "normal_activities": 0,
				"threat_rate_percent": 0, "session_id": null, "avg_processing_time_ms": 0, "last_processed_time": null},
			"timeline_data": {"timestamps": [], "normal_counts": [], "anomaly_counts": [], "confidence_scores": []}}`))
	}))

	data, err := c.FetchSessionData(context.Background())
	require.NoError(t, err)

	timeline, err := json.Marshal(data.Charts.Timeline)
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamps":[],"normal_counts":[],"anomaly_counts":[],"confidence_scores":[]}`, string(timeline))

	stats, err := json.Marshal(data.Stats)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_logs_processed":0,"total_anomalies_detected":0,"normal_activities":0,
		"threat_rate_percent":0,"session_id":null,"avg_processing_time_ms":0,"last_processed_time":null}`, string(stats))
}

func TestFetchSessionData_NullSessionID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"session_stats": {"total_logs_processed": 0, "session_id": null},
			"timeline_data": {"timestamps": [], "normal_counts": [], "anomaly_counts": []}}`))
	}))

	data, err := c.FetchSessionData(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data.Stats.SessionID)
	assert.NotNil(t, data.Charts.Timeline.Timestamps)
	assert.Empty(t, data.Charts.Timeline.Timestamps)
}

func TestFetchSessionData_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transport bool
		protocol  bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"detail":"Chart data retrieval failed"}`, transport: true},
		{name: "not found", status: http.StatusNotFound, body: ``, transport: true},
		{name: "malformed json", status: http.StatusOK, body: `{"session_stats":`, protocol: true},
		{name: "missing stats", status: http.StatusOK, body: `{"timeline_data":{}}`, protocol: true},
		{name: "missing timeline", status: http.StatusOK, body: `{"session_stats":{}}`, protocol: true},
		{name: "negative count", status: http.StatusOK, body: `{"session_stats":{"total_logs_processed":-1},"timeline_data":{}}`, protocol: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := c.FetchSessionData(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.transport, IsTransport(err), "transport: %v", err)
			assert.Equal(t, tt.protocol, IsProtocol(err), "protocol: %v", err)
		})
	}
}

func TestFetchSessionData_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, time.Second, nil)
	require.NoError(t, err)

	_, err = c.FetchSessionData(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestFetchSessionData_Throttled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.FetchSessionData(context.Background())
	var tErr *ThrottleError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, 3*time.Second, tErr.RetryAfter)
	assert.True(t, IsTransport(err))
}

func TestTransportError_CarriesDetail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Model not trained yet"}`))
	}))

	_, err := c.TestDetection(context.Background(), ModeBasic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Model not trained yet")
	assert.Contains(t, err.Error(), "400")
}

func TestFetchSessionData_FakeServiceCarriesAdvancedFields(t *testing.T) {
	c := newTestClient(t, NewFakeService())

	data, err := c.FetchSessionData(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []float64{0.8, 0.8}, data.Charts.Timeline.ConfidenceScores)
	require.NotNil(t, data.Stats.AvgProcessingTimeMs)
	assert.Equal(t, 1.25, *data.Stats.AvgProcessingTimeMs)
	require.NotNil(t, data.Stats.LastProcessedTime)
	assert.Equal(t, "2026-01-01T00:00:59", *data.Stats.LastProcessedTime)
	assert.Equal(t, "session_based_analysis", data.DataSource)
	require.NotNil(t, data.SessionID)
	assert.Equal(t, "session_20260101_000000", *data.SessionID)
}
