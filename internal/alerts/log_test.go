package alerts

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

func TestLog_NewestFirst(t *testing.T) {
	l := NewLog(DefaultCapacity, nil)

	l.Record(domain.AlertInfo, "first")
	l.Record(domain.AlertSuccess, "second")

	got := l.List()
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Message)
	assert.Equal(t, domain.AlertSuccess, got[0].Kind)
	assert.Equal(t, "first", got[1].Message)
	assert.Greater(t, got[0].ID, got[1].ID)
}

func TestLog_TruncatesToCapacity(t *testing.T) {
	l := NewLog(DefaultCapacity, nil)

	for i := 1; i <= 6; i++ {
		l.Record(domain.AlertWarning, fmt.Sprintf("alert-%d", i))
		assert.LessOrEqual(t, l.Len(), 5)
	}

	got := l.List()
	require.Len(t, got, 5)
	assert.Equal(t, "alert-6", got[0].Message)
	assert.Equal(t, "alert-2", got[4].Message, "oldest entry must be evicted")
}

func TestLog_TimestampAtInsertion(t *testing.T) {
	l := NewLog(2, nil)
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	a := l.Record(domain.AlertError, "boom")

	assert.Equal(t, "2026-01-02T03:04:05Z", a.Timestamp)
}

func TestLog_ListIsCopy(t *testing.T) {
	l := NewLog(3, nil)
	l.Record(domain.AlertInfo, "x")

	got := l.List()
	got[0].Message = "mutated"

	assert.Equal(t, "x", l.List()[0].Message)
}

func TestLog_ListenerReceivesAlert(t *testing.T) {
	l := NewLog(3, nil)
	var seen []domain.Alert
	l.OnRecord(func(a domain.Alert) { seen = append(seen, a) })

	l.Record(domain.AlertInfo, "hello")

	require.Len(t, seen, 1)
	assert.Equal(t, "hello", seen[0].Message)
}

func TestLog_NonPositiveCapacityFallsBack(t *testing.T) {
	l := NewLog(0, nil)
	for i := 0; i < 10; i++ {
		l.Record(domain.AlertInfo, "x")
	}
	assert.Equal(t, DefaultCapacity, l.Len())
}
