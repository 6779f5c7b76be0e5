package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalStats_Consistent(t *testing.T) {
	tests := []struct {
		name  string
		local LocalStats
		want  bool
	}{
		{name: "zero", local: LocalStats{}, want: true},
		{name: "exact split", local: LocalStats{TotalLogs: 100, NormalCount: 90, SuspiciousCount: 10}, want: true},
		{name: "partial", local: LocalStats{TotalLogs: 100, NormalCount: 50, SuspiciousCount: 10}, want: true},
		{name: "exceeds total", local: LocalStats{TotalLogs: 10, NormalCount: 8, SuspiciousCount: 3}, want: false},
		{name: "normal alone exceeds", local: LocalStats{TotalLogs: 1, NormalCount: 2}, want: false},
		{name: "sum wraps around", local: LocalStats{TotalLogs: 1, NormalCount: math.MaxUint64, SuspiciousCount: 2}, want: false},
		{name: "max values", local: LocalStats{TotalLogs: math.MaxUint64, SuspiciousCount: math.MaxUint64}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.local.Consistent())
		})
	}
}
