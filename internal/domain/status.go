package domain

// SystemStatus — размеченное объединение BasicStatus | AdvancedStatus.
// Форма ответа классифицируется один раз на границе (backend.ParseStatus).
type SystemStatus interface {
	Variant() string
	Trained() bool
}

// BasicStatus — ответ GET /status базового сервиса.
type BasicStatus struct {
	SystemStatus       string   `json:"system_status"`
	ModelTrained       bool     `json:"model_trained"`
	APIVersion         string   `json:"api_version"`
	AvailableEndpoints []string `json:"available_endpoints"`
	LastCheck          string   `json:"last_check"`
}

func (BasicStatus) Variant() string  { return "basic" }
func (s BasicStatus) Trained() bool { return s.ModelTrained }

// AdvancedStatus — ответ GET / сервиса v2 с сессионным анализом.
type AdvancedStatus struct {
	Message         string   `json:"message"`
	Status          string   `json:"status"`
	ModelTrained    bool     `json:"model_trained"`
	RealDataEnabled bool     `json:"real_data_enabled"`
	SessionBased    bool     `json:"session_based"`
	Version         string   `json:"version"`
	Features        []string `json:"features"`
}

func (AdvancedStatus) Variant() string  { return "advanced" }
func (s AdvancedStatus) Trained() bool { return s.ModelTrained }
