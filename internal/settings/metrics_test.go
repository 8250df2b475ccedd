package settings

import (
	stderrors "errors"
	"testing"
	"time"
)

func TestMetricsWindowReset(t *testing.T) {
	m := NewMetrics(time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.recordWrite("a")
	m.recordWrite("a")
	m.recordFailure("a", stderrors.New("boom"))
	m.recordRead("b")

	got := m.Get("a")
	if got.Writes != 2 || got.Failures != 1 || got.LastError != "boom" {
		t.Fatalf("unexpected metrics: %+v", got)
	}

	all := m.All()
	if len(all) != 2 || all[0].Key != "a" || all[1].Key != "b" {
		t.Fatalf("All() not sorted by key: %+v", all)
	}

	now = now.Add(2 * time.Hour)
	m.recordWrite("a")
	if got := m.Get("a"); got.Writes != 1 || got.Failures != 0 {
		t.Fatalf("window not reset: %+v", got)
	}

	m.Reset("a")
	if got := m.Get("a"); got.Writes != 0 {
		t.Fatalf("Reset did not clear metrics: %+v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.recordWrite("a")
	if got := m.Get("a"); got.Key != "a" {
		t.Fatalf("unexpected: %+v", got)
	}
}
