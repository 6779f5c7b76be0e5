package domain

// ConnectionState — состояние связи с сервисом детекции.
// Меняется только push-каналом и исходом пулла.
type ConnectionState string

const (
	ConnConnecting   ConnectionState = "connecting"
	ConnConnected    ConnectionState = "connected"
	ConnDisconnected ConnectionState = "disconnected"
	ConnError        ConnectionState = "error"
)

// View — неизменяемый снимок того, что сейчас показывает дашборд.
// Координатор публикует новый View после каждого перехода, рендереры только читают.
type View struct {
	Session     *SessionStats   `json:"session_stats"`
	Charts      *ChartDataset   `json:"charts"`
	Source      SourceKind      `json:"source_kind"`
	Connection  ConnectionState `json:"connection_state"`
	Local       LocalStats      `json:"local_stats"`
	Fetching    bool            `json:"fetching"`
	DataSource  string          `json:"data_source"` // data_source последнего удачного пулла, пусто при синтезе
	SessionID   *string         `json:"session_id"`
	LastUpdated string          `json:"last_updated,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
}

// Clone возвращает глубокую копию, чтобы читатели не делили слайсы с координатором.
func (v View) Clone() View {
	out := v
	if v.Session != nil {
		s := *v.Session
		if s.AvgProcessingTimeMs != nil {
			avg := *s.AvgProcessingTimeMs
			s.AvgProcessingTimeMs = &avg
		}
		out.Session = &s
	}
	if v.Charts != nil {
		c := v.Charts.Clone()
		out.Charts = &c
	}
	return out
}

func (d ChartDataset) Clone() ChartDataset {
	out := d
	out.Timeline.Timestamps = cloneSlice(d.Timeline.Timestamps)
	out.Timeline.NormalCounts = cloneSlice(d.Timeline.NormalCounts)
	out.Timeline.AnomalyCounts = cloneSlice(d.Timeline.AnomalyCounts)
	out.Timeline.ConfidenceScores = cloneSlice(d.Timeline.ConfidenceScores)
	out.ThreatCategories.Categories = cloneSlice(d.ThreatCategories.Categories)
	out.ThreatCategories.Counts = cloneSlice(d.ThreatCategories.Counts)
	out.HourlyPattern.Periods = cloneSlice(d.HourlyPattern.Periods)
	out.HourlyPattern.Counts = cloneSlice(d.HourlyPattern.Counts)
	return out
}

// cloneSlice сохраняет различие nil и пустого слайса: на проводе это null и [].
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
