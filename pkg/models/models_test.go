package models

import (
	"testing"
	"time"
)

func strPtr(s string) *string   { return &s }
func fltPtr(f float64) *float64 { return &f }

func TestFieldCount(t *testing.T) {
	l := &Listing{}
	if got := l.FieldCount(); got != 0 {
		t.Errorf("empty listing: expected 0, got %d", got)
	}

	l.Title = strPtr("Maison")
	l.Price = fltPtr(250000)
	l.Rooms = strPtr("4")
	if got := l.FieldCount(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}

	// Empty-but-present values still count; only nil means absent
	l.GES = strPtr("")
	if got := l.FieldCount(); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
}

func TestStoredPaths(t *testing.T) {
	l := &Listing{ImagePaths: []string{"/out/1.jpg", "", "/out/3.jpg"}}
	got := l.StoredPaths()
	if len(got) != 2 || got[0] != "/out/1.jpg" || got[1] != "/out/3.jpg" {
		t.Errorf("unexpected stored paths: %v", got)
	}
}

func TestSessionMetricsFinalize(t *testing.T) {
	m := &SessionMetrics{StartedAt: time.Now().Add(-time.Second), Requests: 40, Errors: 4}
	m.Finalize()

	if m.SuccessRate != 90 {
		t.Errorf("expected 90%% success rate, got %f", m.SuccessRate)
	}
	if m.Elapsed < time.Second {
		t.Errorf("expected elapsed >= 1s, got %s", m.Elapsed)
	}
}

func TestSessionMetricsFinalizeNoRequests(t *testing.T) {
	m := &SessionMetrics{StartedAt: time.Now()}
	m.Finalize()
	if m.SuccessRate != 0 {
		t.Errorf("zero requests must report 0%%, got %f", m.SuccessRate)
	}
}
