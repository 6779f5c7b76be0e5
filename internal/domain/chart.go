package domain

// SourceKind — происхождение текущего набора графиков.
type SourceKind string

const (
	SourceNone        SourceKind = ""            // Ни одного пулла еще не завершилось
	SourceRemote      SourceKind = "remote"      // Данные сессии с сервера
	SourceSynthesized SourceKind = "synthesized" // Локальный fallback
)

// Timeline — ряд точек (старые первыми).
type Timeline struct {
	Timestamps       []string  `json:"timestamps"`
	NormalCounts     []uint64  `json:"normal_counts"`
	AnomalyCounts    []uint64  `json:"anomaly_counts"`
	ConfidenceScores []float64 `json:"confidence_scores"`
}

type ThreatCategories struct {
	Categories []string `json:"categories"`
	Counts     []uint64 `json:"counts"`
}

type HourlyPattern struct {
	Periods []string `json:"time_periods"`
	Counts  []uint64 `json:"threat_counts"`
}

// ChartDataset — полный набор данных для графиков дашборда.
// JSON-теги совпадают с форматом /real-time-chart-data, чтобы рендереры получали ту же форму.
type ChartDataset struct {
	Timeline         Timeline         `json:"timeline_data"`
	ThreatCategories ThreatCategories `json:"threat_categories"`
	HourlyPattern    HourlyPattern    `json:"hourly_patterns"`
	SourceKind       SourceKind       `json:"source_kind"`
}
