package ui_test

import (
	"strings"
	"testing"
	"time"

	"github.com/primehuntdev/primehunt/internal/ui"
)

func TestCountdown(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-3 * time.Second, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Second, "00:01:01"},
		{2*time.Hour + 15*time.Minute + 33*time.Second, "02:15:33"},
		{26 * time.Hour, "26:00:00"},
	}
	for _, tt := range tests {
		if got := ui.Countdown(tt.d); got != tt.want {
			t.Errorf("Countdown(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestMetricAlignment(t *testing.T) {
	a := ui.Metric("GENERATION", "5")
	b := ui.Metric("LAST SSE", "0.02")
	// Values must start at the same column regardless of label length.
	if strings.Index(a, "5") != strings.Index(b, "0.02") {
		t.Errorf("metric columns misaligned:\n%q\n%q", a, b)
	}
}

func TestRow(t *testing.T) {
	row := ui.Row("HOST", "vm1", "STATUS", "live", 60)
	if !strings.Contains(row, "HOST:") || !strings.Contains(row, "STATUS: live") {
		t.Errorf("Row = %q", row)
	}
	single := ui.Row("HOST", "vm1", "", "", 60)
	if strings.Contains(single, "  :") {
		t.Errorf("single-pair Row rendered empty second pair: %q", single)
	}
}

func TestSectionIdempotent(t *testing.T) {
	a := ui.Section("Mission", "line1\nline2", 80)
	b := ui.Section("Mission", "line1\nline2", 80)
	if a != b {
		t.Error("Section output differs across identical calls")
	}
}
