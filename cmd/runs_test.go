package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/dataset-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Query:       "gaming laptops",
			TargetCount: 10,
			Status:      model.RunStatusComplete,
			Stats:       model.RunStats{Records: 8},
			CreatedAt:   now,
			UpdatedAt:   now.Add(2 * time.Minute),
		},
		{
			ID:          "def12345-6789-0000-0000-000000000000",
			Query:       "independent coffee roasters in the pacific northwest",
			TargetCount: 5,
			Status:      model.RunStatusRunning,
			CreatedAt:   now.Add(-1 * time.Hour),
			UpdatedAt:   now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "QUERY")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "gaming laptops")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "8/10")
	assert.Contains(t, output, "independent coffee roasters...")
	assert.NotContains(t, output, "pacific northwest")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestRunsStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	runs := []model.Run{
		{ID: "1", Status: model.RunStatusComplete, TargetCount: 10, Stats: model.RunStats{Records: 10}, CreatedAt: now, UpdatedAt: now.Add(60 * time.Second)},
		{ID: "2", Status: model.RunStatusComplete, TargetCount: 10, Stats: model.RunStats{Records: 5}, CreatedAt: now, UpdatedAt: now.Add(120 * time.Second)},
		{ID: "3", Status: model.RunStatusNoData, TargetCount: 10, CreatedAt: now, UpdatedAt: now},
		{ID: "4", Status: model.RunStatusFailed, TargetCount: 10, Error: "language model unavailable", CreatedAt: now, UpdatedAt: now},
		{ID: "5", Status: model.RunStatusRunning, CreatedAt: now, UpdatedAt: now},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.NoData)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 15, s.Records)
	assert.Equal(t, 20, s.Target)
	assert.InDelta(t, 90.0, s.AvgDurSecs, 0.01)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "Fill rate:")
	assert.Contains(t, output, "75%")
	assert.Contains(t, output, "90.0s")
}

func TestRunsStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Equal(t, runStats{}, s)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	assert.NotContains(t, buf.String(), "Fill rate")
	assert.NotContains(t, buf.String(), "Avg duration")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
