// Package synth строит полный набор графиков из локальных счетчиков, когда пулл сессии не удался.
// Это не реконструкция истории, а фиксированная эвристика: константы политики менять нельзя,
// иначе разойдутся ожидания существующих рендереров.
package synth

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
)

// Policy — именованные константы эвристики.
type Policy struct {
	Points       int           // Точек на таймлайне
	Spacing      time.Duration // Шаг между точками
	DecayDivisor uint64        // Делитель для всех точек, кроме последней

	CategoryLabels  []string
	CategoryWeights []float64

	PeriodLabels      []string
	PeriodMultipliers []float64
	DefaultRate       float64 // baseRate, когда totalLogs == 0

	TimeFormat string
}

// DefaultPolicy возвращает эталонные значения.
func DefaultPolicy() Policy {
	return Policy{
		Points:       10,
		Spacing:      2 * time.Minute,
		DecayDivisor: 10,
		CategoryLabels: []string{
			"Failed Authentication",
			"Privilege Escalation",
			"Off-Hours Activity",
			"External IP Access",
		},
		CategoryWeights:   []float64{0.4, 0.3, 0.2, 0.1},
		PeriodLabels:      []string{"00-03", "03-06", "06-09", "09-12", "12-15", "15-18", "18-21", "21-24"},
		PeriodMultipliers: []float64{12, 8, 3, 2, 1, 2, 4, 6},
		DefaultRate:       0.02,
		TimeFormat:        "15:04",
	}
}

// Validate проверяет согласованность таблиц.
func (p Policy) Validate() error {
	var errs []error
	if p.Points < 1 {
		errs = append(errs, fmt.Errorf("points must be positive, got %d", p.Points))
	}
	if p.DecayDivisor == 0 {
		errs = append(errs, errors.New("decay divisor must be non-zero"))
	}
	if len(p.CategoryLabels) != len(p.CategoryWeights) {
		errs = append(errs, fmt.Errorf("category labels/weights mismatch: %d vs %d", len(p.CategoryLabels), len(p.CategoryWeights)))
	}
	if len(p.PeriodLabels) != len(p.PeriodMultipliers) {
		errs = append(errs, fmt.Errorf("period labels/multipliers mismatch: %d vs %d", len(p.PeriodLabels), len(p.PeriodMultipliers)))
	}
	return errors.Join(errs...)
}

// Synthesize — чистая тотальная функция: одинаковые (local, now) дают одинаковый результат.
func (p Policy) Synthesize(local domain.LocalStats, now time.Time) domain.ChartDataset {
	return domain.ChartDataset{
		Timeline:         p.timeline(local, now),
		ThreatCategories: p.categories(local),
		HourlyPattern:    p.hourly(local),
		SourceKind:       domain.SourceSynthesized,
	}
}

func (p Policy) timeline(local domain.LocalStats, now time.Time) domain.Timeline {
	t := domain.Timeline{
		Timestamps:    make([]string, p.Points),
		NormalCounts:  make([]uint64, p.Points),
		AnomalyCounts: make([]uint64, p.Points),
	}
	last := p.Points - 1
	for i := 0; i < p.Points; i++ {
		at := now.Add(-time.Duration(last-i) * p.Spacing)
		t.Timestamps[i] = at.Format(p.TimeFormat)

		if i == last {
			t.NormalCounts[i] = local.NormalCount
			t.AnomalyCounts[i] = local.SuspiciousCount
			continue
		}
		// Старые точки — текущие итоги, "уцененные" делителем
		t.NormalCounts[i] = local.NormalCount / p.DecayDivisor
		t.AnomalyCounts[i] = local.SuspiciousCount / p.DecayDivisor
	}
	return t
}

func (p Policy) categories(local domain.LocalStats) domain.ThreatCategories {
	// Минимум 1, чтобы круговая диаграмма не была пустой
	total := max(local.SuspiciousCount, 1)

	c := domain.ThreatCategories{
		Categories: append([]string(nil), p.CategoryLabels...),
		Counts:     make([]uint64, len(p.CategoryWeights)),
	}
	for i, w := range p.CategoryWeights {
		c.Counts[i] = ceilCount(float64(total) * w)
	}
	return c
}

func (p Policy) hourly(local domain.LocalStats) domain.HourlyPattern {
	rate := p.DefaultRate
	if local.TotalLogs > 0 {
		rate = float64(local.SuspiciousCount) / float64(local.TotalLogs)
	}

	h := domain.HourlyPattern{
		Periods: append([]string(nil), p.PeriodLabels...),
		Counts:  make([]uint64, len(p.PeriodMultipliers)),
	}
	for i, m := range p.PeriodMultipliers {
		h.Counts[i] = ceilCount(rate * m)
	}
	return h
}

// SessionStats выводит карточки из локальных счетчиков, чтобы рядом с синтетическими
// графиками не висели устаревшие серверные числа.
func SessionStats(local domain.LocalStats) domain.SessionStats {
	var rate float64
	if local.TotalLogs > 0 {
		rate = math.Round(float64(local.SuspiciousCount)/float64(local.TotalLogs)*100*100) / 100
	}
	return domain.SessionStats{
		TotalLogsProcessed:     local.TotalLogs,
		TotalAnomaliesDetected: local.SuspiciousCount,
		NormalActivities:       local.NormalCount,
		ThreatRatePercent:      rate,
	}
}

// Synthesize применяет DefaultPolicy.
func Synthesize(local domain.LocalStats, now time.Time) domain.ChartDataset {
	return DefaultPolicy().Synthesize(local, now)
}

func ceilCount(v float64) uint64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return uint64(math.Ceil(v))
}
