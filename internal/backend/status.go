package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

const (
	PathHome   = "/"
	PathStatus = "/status"
)

// advancedMarkers — поля, по которым ответ GET / признается advanced-вариантом.
var advancedMarkers = []string{"session_based", "real_data_enabled"}

// ParseStatus классифицирует форму ответа один раз, на границе.
func ParseStatus(body []byte) (domain.SystemStatus, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &ProtocolError{Op: "parse status", Err: err}
	}

	for _, m := range advancedMarkers {
		if _, ok := fields[m]; ok {
			var s domain.AdvancedStatus
			if err := json.Unmarshal(body, &s); err != nil {
				return nil, &ProtocolError{Op: "parse advanced status", Err: err}
			}
			return s, nil
		}
	}

	if _, ok := fields["system_status"]; ok {
		var s domain.BasicStatus
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, &ProtocolError{Op: "parse basic status", Err: err}
		}
		return s, nil
	}
	return nil, &ProtocolError{Op: "parse status", Err: errors.New("unrecognized status shape")}
}

// FetchStatus спрашивает GET /; если advanced-признаков нет, откатывается на GET /status.
func (c *Client) FetchStatus(ctx context.Context) (domain.SystemStatus, error) {
	home, homeErr := c.raw(ctx, http.MethodGet, PathHome, nil)
	if homeErr == nil {
		if s, err := ParseStatus(home); err == nil {
			if adv, ok := s.(domain.AdvancedStatus); ok {
				return adv, nil
			}
		}
	}

	body, err := c.raw(ctx, http.MethodGet, PathStatus, nil)
	if err != nil {
		if homeErr != nil {
			return nil, fmt.Errorf("status unavailable: %w", errors.Join(homeErr, err))
		}
		return nil, err
	}
	s, err := ParseStatus(body)
	if err != nil {
		return nil, err
	}
	return s, nil
}
