package service

import (
	"context"
	"fmt"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

// ViewSource — координатор с точки зрения консоли.
type ViewSource interface {
	Snapshot() domain.View
	Refresh(ctx context.Context) (bool, error)
	UpdateLocalStats(ctx context.Context, local domain.LocalStats) error
}

type AlertLister interface {
	List() []domain.Alert
}

// DashboardService отдает снимки координатора и ленту уведомлений.
type DashboardService struct {
	views  ViewSource
	alerts AlertLister
}

func NewDashboardService(views ViewSource, alerts AlertLister) *DashboardService {
	return &DashboardService{views: views, alerts: alerts}
}

func (s *DashboardService) View() domain.View {
	return s.views.Snapshot()
}

func (s *DashboardService) Alerts() []domain.Alert {
	return s.alerts.List()
}

// Refresh — ручное обновление. false: пулл уже идет, запрос отброшен.
func (s *DashboardService) Refresh(ctx context.Context) (bool, error) {
	accepted, err := s.views.Refresh(ctx)
	if err != nil {
		return false, fmt.Errorf("dashboard_service: refresh: %w", err)
	}
	return accepted, nil
}

// SetLocalStats принимает внешний результат детекции.
func (s *DashboardService) SetLocalStats(ctx context.Context, local domain.LocalStats) error {
	if !local.Consistent() {
		return fmt.Errorf("%w: normal+suspicious exceeds total", ErrInvalidInput)
	}
	if err := s.views.UpdateLocalStats(ctx, local); err != nil {
		return fmt.Errorf("dashboard_service: update local stats: %w", err)
	}
	return nil
}
