package domain

// AlertKind — уровень важности пользовательского уведомления.
type AlertKind string

const (
	AlertInfo    AlertKind = "info"
	AlertSuccess AlertKind = "success"
	AlertWarning AlertKind = "warning"
	AlertError   AlertKind = "error"
)

type Alert struct {
	ID        uint64    `json:"id"` // Монотонный в пределах процесса
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	Timestamp string    `json:"timestamp"` // RFC3339, момент вставки
}
