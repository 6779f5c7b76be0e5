package channel

import (
	"encoding/json"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

// Типы push-сообщений, которые понимает дашборд. Остальные молча игнорируются.
const (
	KindSessionDetectionComplete = "session_detection_complete"
	KindPeriodicUpdate           = "periodic_update"
	KindStatsUpdate              = "stats_update"
	KindTrainingComplete         = "training_complete"
)

var recognized = map[string]bool{
	KindSessionDetectionComplete: true,
	KindPeriodicUpdate:           true,
	KindStatsUpdate:              true,
	KindTrainingComplete:         true,
}

// Recognized сообщает, знает ли дашборд такой тип сообщения.
func Recognized(kind string) bool { return recognized[kind] }

// Message — структурированное push-сообщение {type, data, timestamp, message}.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Text      string          `json:"message,omitempty"`
}

// TriggersRefresh — должен ли координатор запустить пулл по этому сообщению.
// training_complete только пишет уведомление: данные сессии от обучения не меняются.
func (m Message) TriggersRefresh() bool {
	switch m.Type {
	case KindSessionDetectionComplete, KindPeriodicUpdate, KindStatsUpdate:
		return true
	}
	return false
}

// DetectionSummary — полезная нагрузка session_detection_complete.
type DetectionSummary struct {
	SessionID      string  `json:"session_id"`
	TotalAnalyzed  uint64  `json:"total_analyzed"`
	AnomaliesFound uint64  `json:"anomalies_found"`
	NormalFound    uint64  `json:"normal_found"`
	ThreatRate     float64 `json:"threat_rate"`
	Message        string  `json:"message"`
}

// TrainingSummary — полезная нагрузка training_complete.
type TrainingSummary struct {
	Samples  int    `json:"samples"`
	Duration string `json:"duration"`
	Message  string `json:"message"`
}

type EventKind int

const (
	StateChanged EventKind = iota
	MessageReceived
)

// Event — типизированное событие канала, которое попадает в единую входящую очередь координатора.
type Event struct {
	Kind    EventKind
	State   domain.ConnectionState // для StateChanged
	Message Message                // для MessageReceived
	Err     error                  // причина для ConnError
}

// Sink принимает события канала в порядке их возникновения.
type Sink interface {
	Deliver(Event)
}
