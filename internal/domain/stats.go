package domain

// SessionStats — агрегаты текущей сессии детектора, как их отдает удаленный сервис.
// Инвариант total = anomalies + normal не проверяется на клиенте: вход считается доверенным.
type SessionStats struct {
	TotalLogsProcessed     uint64  `json:"total_logs_processed"`
	TotalAnomaliesDetected uint64  `json:"total_anomalies_detected"`
	NormalActivities       uint64  `json:"normal_activities"`
	ThreatRatePercent      float64 `json:"threat_rate_percent"`
	SessionID              *string `json:"session_id"`

	// Поля advanced-сервиса; в basic-режиме приходят как null
	AvgProcessingTimeMs *float64 `json:"avg_processing_time_ms"`
	LastProcessedTime   *string  `json:"last_processed_time"`
}

// LocalStats — счетчики последнего теста детекции, выполненного из дашборда.
// Живут между пуллами и служат семенем для синтеза fallback-графиков.
type LocalStats struct {
	TotalLogs       uint64 `json:"total_logs"`
	NormalCount     uint64 `json:"normal_count"`
	SuspiciousCount uint64 `json:"suspicious_count"`
}

// Consistent — normal и suspicious вместе не превышают total. Сравнение без сложения: сумма uint64 может переполниться.
func (l LocalStats) Consistent() bool {
	return l.NormalCount <= l.TotalLogs && l.SuspiciousCount <= l.TotalLogs-l.NormalCount
}

// SessionData — результат одного успешного пулла: статистика и графики заменяются целиком.
type SessionData struct {
	Stats       SessionStats `json:"session_stats"`
	Charts      ChartDataset `json:"charts"`
	LastUpdated string       `json:"last_updated"`
	DataSource  string       `json:"data_source"`
	SessionID   *string      `json:"session_id"`
}
