package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/config"
	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/logger"
	"github.com/newthinker/crossover/internal/metrics"
	"github.com/newthinker/crossover/internal/report"
	"github.com/newthinker/crossover/internal/source"
	"github.com/newthinker/crossover/internal/storage/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runSource     string
	runPath       string
	runFast       int
	runSlow       int
	runNullPolicy string
	runOut        string
	runDumpBars   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the EMA crossover backtest",
	Long: `Run the EMA crossover backtest over the configured bar source, store the
trade table and print the performance report. Flags override the config file.`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

func init() {
	runCmd.Flags().StringVar(&runSource, "source", "", "source type: parquet, csv or clickhouse")
	runCmd.Flags().StringVar(&runPath, "path", "", "input file for parquet and csv sources")
	runCmd.Flags().IntVar(&runFast, "fast", 0, "fast EMA span")
	runCmd.Flags().IntVar(&runSlow, "slow", 0, "slow EMA span")
	runCmd.Flags().StringVar(&runNullPolicy, "null-policy", "", "skip-null or reset-on-null")
	runCmd.Flags().StringVar(&runOut, "out", "", "storage key of the trade table")
	runCmd.Flags().StringVar(&runDumpBars, "dump-bars", "", "write every derived bar as CSV to this file")

	rootCmd.AddCommand(runCmd)
}

// applyFlags overrides config values with flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source.Type = runSource
	}
	if flags.Changed("path") {
		cfg.Source.Path = runPath
	}
	if flags.Changed("fast") {
		cfg.Strategy.FastSpan = runFast
	}
	if flags.Changed("slow") {
		cfg.Strategy.SlowSpan = runSlow
	}
	if flags.Changed("null-policy") {
		cfg.Strategy.NullPolicy = runNullPolicy
	}
	if flags.Changed("out") {
		cfg.Output.TradesKey = runOut
	}
}

func runBacktest(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cmd, cfg)

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	log, err := logger.New(debug || cfg.Log.Development, level)
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	defer log.Sync()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults and environment")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}
	start := time.Now()
	var res *backtest.Result
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status, res = metrics.StatusFailed, nil
		}
		recordRun(reg, cfg, log, status, start, res)
	}()

	store, err := archive.New(cfg.Output.Storage.Archive())
	if err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}
	key := cfg.Output.TradesKey
	if cfg.Output.RunSubdir {
		key = path.Join(runID, key)
	}
	if !cfg.Output.Overwrite {
		exists, err := store.Exists(ctx, key)
		if err != nil {
			return core.WrapError(core.ErrSinkFailed, fmt.Errorf("checking %s: %w", store.Location(key), err))
		}
		if exists {
			return core.WrapError(core.ErrSinkFailed,
				fmt.Errorf("%s already exists and output.overwrite is false", store.Location(key)))
		}
	}

	res, err = execute(ctx, cfg, log)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.WriteTrades(&buf, res.Trades); err != nil {
		return err
	}
	if err := store.Put(ctx, key, &buf); err != nil {
		return fmt.Errorf("storing trades: %w", err)
	}
	log.Info("trade table stored",
		zap.String("location", store.Location(key)),
		zap.Int("trades", len(res.Trades)),
	)

	return report.WritePerformance(cmd.OutOrStdout(), res.Report)
}

// execute opens the source and runs the backtest. The bar dump, when
// requested, is removed again if the run fails.
func execute(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backtest.Result, error) {
	src, err := source.Open(ctx, source.Options{
		Type:      cfg.Source.Type,
		Path:      cfg.Source.Path,
		BatchSize: cfg.Source.BatchSize,
		ClickHouse: source.ClickHouseConfig{
			Addr:     cfg.Source.ClickHouse.Addr,
			Database: cfg.Source.ClickHouse.Database,
			Username: cfg.Source.ClickHouse.Username,
			Password: cfg.Source.ClickHouse.Password,
			Table:    cfg.Source.ClickHouse.Table,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	bcfg := backtest.Config{Strategy: cfg.Strategy.Crossover()}

	var dump *report.BarWriter
	if runDumpBars != "" {
		f, err := os.Create(runDumpBars)
		if err != nil {
			return nil, fmt.Errorf("creating bar dump: %w", err)
		}
		defer f.Close()
		dump = report.NewBarWriter(f)
		bcfg.OnBar = dump.Write
	}

	bt, err := backtest.New(bcfg, log)
	if err != nil {
		return nil, err
	}

	log.Debug("running backtest",
		zap.String("source", cfg.Source.Type),
		zap.String("path", cfg.Source.Path),
		zap.Int("fast_span", cfg.Strategy.FastSpan),
		zap.Int("slow_span", cfg.Strategy.SlowSpan),
		zap.String("null_policy", cfg.Strategy.NullPolicy),
	)

	res, err := bt.Run(ctx, src)
	if err == nil && dump != nil {
		err = dump.Flush()
	}
	if err != nil {
		if runDumpBars != "" {
			os.Remove(runDumpBars)
		}
		return nil, err
	}
	return res, nil
}

func recordRun(reg *metrics.Registry, cfg *config.Config, log *zap.Logger, status string, start time.Time, res *backtest.Result) {
	if reg == nil {
		return
	}
	if res != nil {
		reg.RecordReport(res.Strategy, res.Report)
	}
	reg.RecordRun(status, time.Since(start).Seconds())
	if err := reg.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn("metrics not written", zap.Error(err))
	}
}
