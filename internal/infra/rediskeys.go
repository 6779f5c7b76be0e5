package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "threatwatch"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanView — каждый новый снимок View в JSON.
	RedisChanView = RedisNamespace + ":dashboard:view"
	// RedisChanAlerts — каждое новое уведомление.
	RedisChanAlerts = RedisNamespace + ":dashboard:alerts"
	// RedisChanRefresh — внешние запросы обновления (тело сообщения игнорируется).
	RedisChanRefresh = RedisNamespace + ":dashboard:refresh"
)
