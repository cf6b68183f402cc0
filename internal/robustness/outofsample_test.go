package robustness

import (
	"context"
	"testing"
)

func TestOutOfSample_ReportBounds(t *testing.T) {
	bars := risingBars(100)
	tester := newTestTester()
	cfg := testConfig()

	is, oos := SplitBars(bars, cfg.OutOfSamplePct)
	report := tester.runOutOfSample(context.Background(), is, oos, periodicLongs(10), cfg)

	if report.Error != "" {
		t.Fatalf("unexpected error: %s", report.Error)
	}
	if report.StartTime != oos[0].Timestamp {
		t.Errorf("start %d, want first out-of-sample bar %d", report.StartTime, oos[0].Timestamp)
	}
	if report.EndTime != oos[len(oos)-1].Timestamp {
		t.Errorf("end %d, want last out-of-sample bar %d", report.EndTime, oos[len(oos)-1].Timestamp)
	}
	if report.Metrics == nil {
		t.Fatal("metrics must never be nil")
	}
	if report.Significance < 0 || report.Significance > 1 {
		t.Errorf("significance %f outside [0, 1]", report.Significance)
	}
}

func TestOutOfSample_EmptySegment(t *testing.T) {
	bars := risingBars(100)
	tester := newTestTester()
	cfg := testConfig()

	report := tester.runOutOfSample(context.Background(), bars, nil, periodicLongs(10), cfg)

	if report.Error == "" {
		t.Fatal("empty out-of-sample segment must degrade the section")
	}
	if report.Metrics == nil {
		t.Error("degraded section must still carry zeroed metrics")
	}
	if report.Significance != 1 {
		t.Errorf("significance = %f, want 1 when untestable", report.Significance)
	}
}

func TestOutOfSample_TooFewTradesMeansNoEvidence(t *testing.T) {
	// A sparse source yields at most one trade per segment, which is below
	// the minimum sample size for the t-test.
	bars := risingBars(100)
	tester := newTestTester()
	cfg := testConfig()

	is, oos := SplitBars(bars, cfg.OutOfSamplePct)
	report := tester.runOutOfSample(context.Background(), is, oos, periodicLongs(90), cfg)

	if report.Error != "" {
		t.Fatalf("unexpected error: %s", report.Error)
	}
	if report.Significance != 1 {
		t.Errorf("significance = %f, want 1 with too few trades", report.Significance)
	}
}
