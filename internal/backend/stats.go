package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

const PathChartData = "/real-time-chart-data"

// chartPayload — ответ /real-time-chart-data. Секции декодируются прямо в доменные типы.
type chartPayload struct {
	LastUpdated      string                   `json:"last_updated"`
	SessionStats     *domain.SessionStats     `json:"session_stats"`
	Timeline         *domain.Timeline         `json:"timeline_data"`
	ThreatCategories *domain.ThreatCategories `json:"threat_categories"`
	HourlyPatterns   *domain.HourlyPattern    `json:"hourly_patterns"`
	DataSource       string                   `json:"data_source"`
	SessionID        *string                  `json:"session_id"`
}

// FetchSessionData — идемпотентный пулл статистики и графиков текущей сессии.
// Ничего локально не мутирует: применять результат — дело координатора.
func (c *Client) FetchSessionData(ctx context.Context) (*domain.SessionData, error) {
	var p chartPayload
	if err := c.do(ctx, http.MethodGet, PathChartData, nil, &p); err != nil {
		return nil, err
	}

	op := http.MethodGet + " " + PathChartData
	if p.SessionStats == nil {
		return nil, &ProtocolError{Op: op, Err: errors.New("session_stats is missing")}
	}
	if p.Timeline == nil {
		return nil, &ProtocolError{Op: op, Err: errors.New("timeline_data is missing")}
	}

	data := &domain.SessionData{
		Stats:       *p.SessionStats,
		LastUpdated: p.LastUpdated,
		DataSource:  p.DataSource,
		SessionID:   p.SessionID,
		Charts: domain.ChartDataset{
			Timeline:   *p.Timeline,
			SourceKind: domain.SourceRemote,
		},
	}
	if p.ThreatCategories != nil {
		data.Charts.ThreatCategories = *p.ThreatCategories
	}
	if p.HourlyPatterns != nil {
		data.Charts.HourlyPattern = *p.HourlyPatterns
	}
	return data, nil
}
