// Command goatd is the CLI front end for the GOATd Kernel telemetry
// engine: it wraps the Controller Facade's start/stop/benchmark/record
// operations as cobra subcommands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/madgoathaz/goatd-kernel-telemetry/config"
	"github.com/madgoathaz/goatd-kernel-telemetry/controller"
	"github.com/madgoathaz/goatd-kernel-telemetry/logger"
	"github.com/madgoathaz/goatd-kernel-telemetry/metrics"
)

var (
	version    = "dev"
	configPath string
)

var rootCmd = &cobra.Command{
	Use:     "goatd",
	Short:   "GOATd Kernel telemetry engine",
	Long:    "goatd measures real-time kernel scheduling latency, correlates it with SMIs, and scores the result as a 0-1000 GOAT Score.",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default $XDG_CONFIG_HOME/goatdkernel/config.yaml)")
	rootCmd.AddCommand(monitorCmd, benchmarkCmd, recordsCmd, compareCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	mgr := config.GetManager()
	return mgr.Load(configPath)
}

func maybeServeMetrics(cfg *config.Config, exp *metrics.Exporter) {
	if !cfg.Metrics.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", exp.Handler())
	srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Get().Warnf("metrics server stopped: %v", err)
		}
	}()
}

var monitorDuration time.Duration
var monitorLabel string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the Latency Collector for a fixed duration and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger.Init(cfg.Logging)

		exp := metrics.New()
		maybeServeMetrics(cfg, exp)

		ctl := controller.New(cfg)
		if err := ctl.Start(); err != nil {
			return err
		}

		deadline := time.Now().Add(monitorDuration)
		for time.Now().Before(deadline) {
			time.Sleep(500 * time.Millisecond)
			exp.ObserveMonitoring(ctl.LatestMonitoring())
		}

		if err := ctl.Stop(); err != nil {
			return err
		}

		summary := ctl.CurrentSummary(monitorDuration.Seconds())
		if monitorLabel != "" {
			if err := ctl.SaveSession(monitorLabel, summary); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
		}
		return printJSON(summary)
	},
}

var benchmarkLabel string

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Run the fixed six-phase, 60-second benchmark gauntlet",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger.Init(cfg.Logging)

		exp := metrics.New()
		maybeServeMetrics(cfg, exp)

		ctl := controller.New(cfg)
		if err := ctl.Start(); err != nil {
			return err
		}
		run := ctl.RunBenchmark(context.Background())
		if err := ctl.Stop(); err != nil {
			return err
		}

		exp.ObserveBenchmark(run.Metrics, run.Scoring)

		if benchmarkLabel != "" {
			if err := ctl.SaveBenchmark(benchmarkLabel, run); err != nil {
				return fmt.Errorf("save benchmark: %w", err)
			}
		}
		return printJSON(run)
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect archived performance records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived performance records",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctl := controller.New(cfg)
		records, err := ctl.ListRecords()
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one archived performance record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctl := controller.New(cfg)
		rec, err := ctl.LoadRecord(args[0])
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var recordsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an archived performance record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctl := controller.New(cfg)
		return ctl.DeleteRecord(args[0])
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <id-a> <id-b>",
	Short: "Compute percentage deltas between two archived performance records",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctl := controller.New(cfg)
		a, err := ctl.LoadRecord(args[0])
		if err != nil {
			return err
		}
		b, err := ctl.LoadRecord(args[1])
		if err != nil {
			return err
		}
		return printJSON(controller.Compare(a, b))
	},
}

func init() {
	monitorCmd.Flags().DurationVarP(&monitorDuration, "duration", "d", 30*time.Second, "how long to monitor")
	monitorCmd.Flags().StringVarP(&monitorLabel, "label", "l", "", "save the session under this label")
	benchmarkCmd.Flags().StringVarP(&benchmarkLabel, "label", "l", "", "save the run under this label")
	recordsCmd.AddCommand(recordsListCmd, recordsShowCmd, recordsRmCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
