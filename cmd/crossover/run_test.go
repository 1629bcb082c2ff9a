package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/newthinker/crossover/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBars writes a CSV where ask and bid both equal the given price for
// every OHLC field.
func writeBars(t *testing.T, dir string, prices ...float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("datetime,ask_open,ask_high,ask_low,ask_close,bid_open,bid_high,bid_low,bid_close\n")
	for i, p := range prices {
		fmt.Fprintf(&b, "2024-01-02 09:%02d:00", i)
		for j := 0; j < 8; j++ {
			fmt.Fprintf(&b, ",%g", p)
		}
		b.WriteString("\n")
	}
	path := filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	bars := writeBars(t, dir, 100, 95, 90, 85, 80, 120, 125, 60, 55)
	outDir := filepath.Join(dir, "out")
	promFile := filepath.Join(dir, "crossover.prom")
	dumpFile := filepath.Join(dir, "bars_dump.csv")

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
strategy:
  fast_span: 2
  slow_span: 4
source:
  type: csv
output:
  storage:
    type: localfs
    path: %q
metrics:
  enabled: true
  textfile: %q
`, outDir, promFile)), 0o644))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"run", "-c", cfgPath, "--path", bars, "--dump-bars", dumpFile})
	require.NoError(t, rootCmd.Execute())

	// golden cross at bar 5 executes at bar 6 (125), death cross at bar 7
	// executes at bar 8 (55)
	want := "========== PERFORMANCE ==========\n" +
		"Total Trades   : 1\n" +
		"Total Profit   : -56.0000%\n" +
		"Max Drawdown   : -56.0000%\n" +
		"=================================\n"
	assert.Equal(t, want, stdout.String())

	trades, err := os.ReadFile(filepath.Join(outDir, "ema_crossover_trades.csv"))
	require.NoError(t, err)
	rows := strings.Split(strings.TrimSpace(string(trades)), "\n")
	require.Len(t, rows, 2)
	assert.Equal(t, "trade_id,entry_time,entry_price,exit_time,exit_price,trade_return", rows[0])
	fields := strings.Split(rows[1], ",")
	require.Len(t, fields, 6)
	assert.Equal(t, []string{"1", "2024-01-02T09:06:00.000000", "125", "2024-01-02T09:08:00.000000", "55"}, fields[:5])
	ret, err := strconv.ParseFloat(fields[5], 64)
	require.NoError(t, err)
	assert.InDelta(t, -0.56, ret, 1e-12)

	dump, err := os.ReadFile(dumpFile)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(dump)), "\n"), 10)

	prom, err := os.ReadFile(promFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `crossover_runs_total{status="success"} 1`)
}

func TestRunCommand_InvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	bars := writeBars(t, dir, 100, 95, 90)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
source:
  type: csv
log:
  level: loud
output:
  storage:
    type: localfs
    path: %q
`, filepath.Join(dir, "out"))), 0o644))

	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"run", "-c", cfgPath, "--path", bars, "--dump-bars", ""})
	var err error
	require.NotPanics(t, func() { err = rootCmd.Execute() })
	assert.True(t, errors.Is(err, core.ErrConfigInvalid), "got %v", err)
}

func TestRunCommand_NoOverwrite(t *testing.T) {
	dir := t.TempDir()
	bars := writeBars(t, dir, 100, 95, 90, 85, 80, 120, 125, 60, 55)
	outDir := filepath.Join(dir, "out")
	promFile := filepath.Join(dir, "crossover.prom")
	existing := filepath.Join(outDir, "ema_crossover_trades.csv")
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	require.NoError(t, os.WriteFile(existing, []byte("keep me\n"), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
strategy:
  fast_span: 2
  slow_span: 4
source:
  type: csv
output:
  overwrite: false
  storage:
    type: localfs
    path: %q
metrics:
  enabled: true
  textfile: %q
`, outDir, promFile)), 0o644))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"run", "-c", cfgPath, "--path", bars, "--dump-bars", ""})
	err := rootCmd.Execute()
	assert.True(t, errors.Is(err, core.ErrSinkFailed), "got %v", err)
	assert.Empty(t, stdout.String())

	kept, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me\n", string(kept))

	prom, err := os.ReadFile(promFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `crossover_runs_total{status="failed"} 1`)
}

func TestVersionCommand(t *testing.T) {
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "crossover dev")
}
