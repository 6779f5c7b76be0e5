package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xela07ax/threatwatch-dashboard/internal/backend"
	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

// DetectionBackend — действия сервиса детекции, которые может запустить оператор.
type DetectionBackend interface {
	Train(ctx context.Context, mode backend.Mode, sampleCount int) (*backend.TrainResult, error)
	TestDetection(ctx context.Context, mode backend.Mode) (*backend.DetectionResult, error)
	GenerateSampleData(ctx context.Context, normal, suspicious int) (*backend.SampleData, error)
}

// LocalStatsUpdater — координатор: принимает результат теста как новые LocalStats.
type LocalStatsUpdater interface {
	UpdateLocalStats(ctx context.Context, local domain.LocalStats) error
}

type AlertRecorder interface {
	Record(kind domain.AlertKind, message string) domain.Alert
}

// ActionService — оператор запускает обучение и тесты, результат попадает в ленту уведомлений.
type ActionService struct {
	backend DetectionBackend
	stats   LocalStatsUpdater
	alerts  AlertRecorder
	logger  *zap.Logger

	// TrainSamples — sample_count для базового обучения (0 — дефолт сервиса)
	TrainSamples int
}

func NewActionService(b DetectionBackend, stats LocalStatsUpdater, alerts AlertRecorder, logger *zap.Logger) *ActionService {
	return &ActionService{
		backend: b,
		stats:   stats,
		alerts:  alerts,
		logger:  logger.Named("action-service"),
	}
}

func (s *ActionService) Train(ctx context.Context, mode backend.Mode) (*backend.TrainResult, error) {
	res, err := s.backend.Train(ctx, mode, s.TrainSamples)
	if err != nil {
		return nil, s.fail("training", mode, err)
	}

	s.alerts.Record(domain.AlertSuccess, fmt.Sprintf("Model training complete (%d samples, %s)", res.TrainingSamples, res.TrainingTime))
	s.logger.Info("model trained", zap.String("mode", string(mode)), zap.Int("samples", res.TrainingSamples))
	return res, nil
}

// TestDetection прогоняет тест и перезаписывает LocalStats его итогом.
func (s *ActionService) TestDetection(ctx context.Context, mode backend.Mode) (*backend.DetectionResult, error) {
	res, err := s.backend.TestDetection(ctx, mode)
	if err != nil {
		return nil, s.fail("detection test", mode, err)
	}

	local := domain.LocalStats{
		TotalLogs:       res.TotalLogs,
		NormalCount:     res.NormalCount,
		SuspiciousCount: res.SuspiciousCount,
	}
	if err := s.stats.UpdateLocalStats(ctx, local); err != nil {
		return nil, fmt.Errorf("action_service: failed to apply local stats: %w", err)
	}

	if res.SuspiciousCount > 0 {
		s.alerts.Record(domain.AlertWarning, fmt.Sprintf("Detection found %d suspicious of %d logs", res.SuspiciousCount, res.TotalLogs))
	} else {
		s.alerts.Record(domain.AlertSuccess, fmt.Sprintf("Detection complete: %d logs, no threats", res.TotalLogs))
	}
	s.logger.Info("detection test finished",
		zap.String("mode", string(mode)),
		zap.Uint64("total", res.TotalLogs),
		zap.Uint64("suspicious", res.SuspiciousCount))
	return res, nil
}

// GenerateSampleData только уведомляет: сгенерированные логи не являются результатом детекции.
func (s *ActionService) GenerateSampleData(ctx context.Context, normal, suspicious int) (*backend.SampleData, error) {
	if normal < 0 || suspicious < 0 {
		return nil, fmt.Errorf("%w: counts must be non-negative, got %d/%d", ErrInvalidInput, normal, suspicious)
	}
	res, err := s.backend.GenerateSampleData(ctx, normal, suspicious)
	if err != nil {
		return nil, s.fail("sample generation", backend.ModeBasic, err)
	}

	s.alerts.Record(domain.AlertInfo, fmt.Sprintf("Generated %d normal and %d suspicious sample logs", res.NormalCount, res.SuspiciousCount))
	return res, nil
}

func (s *ActionService) fail(action string, mode backend.Mode, err error) error {
	s.alerts.Record(domain.AlertError, fmt.Sprintf("%s failed: %v", action, err))
	s.logger.Warn("backend action failed",
		zap.String("action", action),
		zap.String("mode", string(mode)),
		zap.Error(err))
	return fmt.Errorf("action_service: %s: %w", action, err)
}
