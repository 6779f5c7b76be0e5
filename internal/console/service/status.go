package service

import (
	"context"
	"fmt"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

type StatusFetcher interface {
	FetchStatus(ctx context.Context) (domain.SystemStatus, error)
}

// SystemReport — тегированный вариант статуса для рендереров.
type SystemReport struct {
	Variant string              `json:"variant"`
	Trained bool                `json:"model_trained"`
	Status  domain.SystemStatus `json:"status"`
}

type StatusService struct {
	fetcher StatusFetcher
}

func NewStatusService(f StatusFetcher) *StatusService {
	return &StatusService{fetcher: f}
}

func (s *StatusService) System(ctx context.Context) (*SystemReport, error) {
	st, err := s.fetcher.FetchStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("status_service: failed to fetch status: %w", err)
	}
	return &SystemReport{Variant: st.Variant(), Trained: st.Trained(), Status: st}, nil
}
