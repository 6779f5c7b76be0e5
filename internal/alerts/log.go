// Package alerts хранит ограниченную ленту пользовательских уведомлений (новые первыми).
// Записи не удаляются явно: старые вытесняются при переполнении. Персистентности нет.
package alerts

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

// DefaultCapacity — сколько последних уведомлений видит пользователь.
const DefaultCapacity = 5

// Listener получает каждое новое уведомление (fan-out в Redis, метрики).
type Listener func(domain.Alert)

type Log struct {
	mu       sync.RWMutex
	entries  []domain.Alert // [0] — самое новое
	capacity int
	nextID   uint64
	now      func() time.Time
	logger   *zap.Logger
	listener Listener
}

func NewLog(capacity int, logger *zap.Logger) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		entries:  make([]domain.Alert, 0, capacity),
		capacity: capacity,
		now:      time.Now,
		logger:   logger.Named("alerts"),
	}
}

// OnRecord подключает слушателя. Вызывать до начала работы.
func (l *Log) OnRecord(fn Listener) {
	l.listener = fn
}

// Record добавляет уведомление в начало и обрезает ленту до capacity.
func (l *Log) Record(kind domain.AlertKind, message string) domain.Alert {
	l.mu.Lock()
	l.nextID++
	a := domain.Alert{
		ID:        l.nextID,
		Kind:      kind,
		Message:   message,
		Timestamp: l.now().UTC().Format(time.RFC3339),
	}

	n := min(len(l.entries)+1, l.capacity)
	next := make([]domain.Alert, n)
	next[0] = a
	copy(next[1:], l.entries)
	l.entries = next
	l.mu.Unlock()

	l.logger.Debug("alert recorded",
		zap.Uint64("id", a.ID),
		zap.String("kind", string(a.Kind)),
		zap.String("message", a.Message))

	if l.listener != nil {
		l.listener(a)
	}
	return a
}

// List возвращает копию ленты, новые первыми.
func (l *Log) List() []domain.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Alert{}, l.entries...)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
