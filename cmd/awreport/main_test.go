package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/aw-tracker/generic"
)

func TestReportDay(t *testing.T) {
	today := generic.NewTimePoint(2025, time.March, 12)

	tests := []struct {
		month string
		want  string
	}{
		{"", "2025-03-12"},
		{"2025-03", "2025-03-12"},
		{"2025-02", "2025-02-28"},
		{"2024-02", "2024-02-29"},
	}
	for _, tt := range tests {
		got, err := reportDay(tt.month, today)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String(), tt.month)
	}

	_, err := reportDay("March", today)
	assert.Error(t, err)
}
