package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Mode выбирает вариант сервиса: синтетические логи или реальный датасет Linux.
type Mode string

const (
	ModeBasic Mode = "basic"
	ModeReal  Mode = "real"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeBasic:
		return ModeBasic, nil
	case ModeReal:
		return ModeReal, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

type TrainResult struct {
	Message         string `json:"message"`
	TrainingSamples int    `json:"training_samples"`
	TrainingTime    string `json:"training_time"`
	ModelStatus     string `json:"model_status"`
}

// DetectionResult — нормализованный итог теста детекции для обоих вариантов сервиса.
type DetectionResult struct {
	Mode            Mode
	TotalLogs       uint64
	NormalCount     uint64
	SuspiciousCount uint64
	ThreatRate      float64
	SessionID       string
	Summary         string
}

type basicTestPayload struct {
	TotalLogs       uint64 `json:"total_logs"`
	SuspiciousFound uint64 `json:"suspicious_found"`
	NormalFound     uint64 `json:"normal_found"`
	Summary         string `json:"summary"`
}

type realTestPayload struct {
	Message           string  `json:"message"`
	SessionID         string  `json:"session_id"`
	TotalAnalyzed     uint64  `json:"total_analyzed"`
	AnomaliesDetected uint64  `json:"anomalies_detected"`
	NormalBehavior    uint64  `json:"normal_behavior"`
	ThreatRate        float64 `json:"threat_rate"`
}

type SampleData struct {
	Message         string           `json:"message"`
	NormalCount     int              `json:"normal_count"`
	SuspiciousCount int              `json:"suspicious_count"`
	SampleData      []map[string]any `json:"sample_data"`
}

func (c *Client) Train(ctx context.Context, mode Mode, sampleCount int) (*TrainResult, error) {
	var res TrainResult
	if mode == ModeReal {
		if err := c.do(ctx, http.MethodPost, "/train-on-real-data", nil, &res); err != nil {
			return nil, err
		}
		return &res, nil
	}

	q := url.Values{}
	if sampleCount > 0 {
		q.Set("sample_count", strconv.Itoa(sampleCount))
	}
	if err := c.do(ctx, http.MethodPost, "/train", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) TestDetection(ctx context.Context, mode Mode) (*DetectionResult, error) {
	if mode == ModeReal {
		var p realTestPayload
		if err := c.do(ctx, http.MethodGet, "/test-real-detection", nil, &p); err != nil {
			return nil, err
		}
		return &DetectionResult{
			Mode:            ModeReal,
			TotalLogs:       p.TotalAnalyzed,
			NormalCount:     p.NormalBehavior,
			SuspiciousCount: p.AnomaliesDetected,
			ThreatRate:      p.ThreatRate,
			SessionID:       p.SessionID,
			Summary:         p.Message,
		}, nil
	}

	var p basicTestPayload
	if err := c.do(ctx, http.MethodGet, "/test", nil, &p); err != nil {
		return nil, err
	}
	var rate float64
	if p.TotalLogs > 0 {
		rate = float64(p.SuspiciousFound) / float64(p.TotalLogs) * 100
	}
	return &DetectionResult{
		Mode:            ModeBasic,
		TotalLogs:       p.TotalLogs,
		NormalCount:     p.NormalFound,
		SuspiciousCount: p.SuspiciousFound,
		ThreatRate:      rate,
		Summary:         p.Summary,
	}, nil
}

func (c *Client) GenerateSampleData(ctx context.Context, normal, suspicious int) (*SampleData, error) {
	q := url.Values{}
	q.Set("normal_count", strconv.Itoa(normal))
	q.Set("suspicious_count", strconv.Itoa(suspicious))

	var res SampleData
	if err := c.do(ctx, http.MethodGet, "/generate-data", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
