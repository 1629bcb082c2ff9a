package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather failed: %v", err)
	}
}

func TestRegistry_RecordRun(t *testing.T) {
	reg := NewRegistry()

	reg.RecordRun(StatusSuccess, 1.5)
	reg.RecordRun(StatusSuccess, 0.2)
	reg.RecordRun(StatusFailed, 0.1)

	if got := testutil.ToFloat64(reg.runsTotal.WithLabelValues(StatusSuccess)); got != 2 {
		t.Errorf("expected 2 successful runs, got %v", got)
	}
	if got := testutil.ToFloat64(reg.runsTotal.WithLabelValues(StatusFailed)); got != 1 {
		t.Errorf("expected 1 failed run, got %v", got)
	}
	if n := testutil.CollectAndCount(reg.runDuration); n != 1 {
		t.Errorf("expected one duration histogram, got %d", n)
	}
}

func TestRegistry_RecordReport(t *testing.T) {
	reg := NewRegistry()

	reg.RecordReport("ema_crossover", backtest.Report{
		TotalTrades:      3,
		TotalProfit:      0.12,
		MaxDrawdown:      -0.04,
		Bars:             1000,
		NullBars:         7,
		DivisionWarnings: 2,
		SkippedTrades:    1,
		OpenPosition:     &backtest.OpenPosition{TradeID: 4, EntryTime: time.Now(), EntryPrice: core.Some(1)},
	})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"bars", testutil.ToFloat64(reg.barsTotal), 1000},
		{"null bars", testutil.ToFloat64(reg.nullBarsTotal), 7},
		{"division warnings", testutil.ToFloat64(reg.divisionWarnings), 2},
		{"trades", testutil.ToFloat64(reg.tradesTotal), 3},
		{"skipped", testutil.ToFloat64(reg.skippedTrades), 1},
		{"profit", testutil.ToFloat64(reg.totalProfit), 0.12},
		{"drawdown", testutil.ToFloat64(reg.maxDrawdown), -0.04},
		{"open position", testutil.ToFloat64(reg.openPosition), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestRegistry_WriteTextfile(t *testing.T) {
	reg := NewRegistry()
	reg.RecordRun(StatusSuccess, 0.3)
	reg.RecordReport("ema_crossover", backtest.Report{TotalTrades: 2, Bars: 10})

	path := filepath.Join(t.TempDir(), "crossover.prom")
	if err := reg.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`crossover_runs_total{status="success"} 1`,
		`crossover_trades_total{strategy="ema_crossover"} 2`,
		`crossover_bars_processed_total{strategy="ema_crossover"} 10`,
		`crossover_open_position{strategy="ema_crossover"} 0`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}

func TestRegistry_WriteTextfile_BadPath(t *testing.T) {
	reg := NewRegistry()
	err := reg.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	if err == nil || !strings.Contains(err.Error(), core.ErrSinkFailed.Code) {
		t.Errorf("expected SINK_FAILED, got %v", err)
	}
}
