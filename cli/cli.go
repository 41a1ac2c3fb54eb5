// Package cli wires the pipeline into a cobra command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crawlytics/analyzer"
	"github.com/crawlytics/botmap"
	"github.com/crawlytics/config"
	"github.com/crawlytics/logs"
	"github.com/crawlytics/pipeline"
	"github.com/crawlytics/reporter"
	"github.com/crawlytics/storage"
)

var (
	dataDirFlag string
	botMapFlag  string

	daysFlag    int
	formatFlag  string
	outputFlag  string
	dateFlag    string
	printReport bool
	watchDir    string
)

var rootCmd = &cobra.Command{
	Use:   "crawlytics",
	Short: "ETL and bot analysis for web-server access logs",
	Long: `Crawlytics ingests compressed access logs, parses them into a stable
tabular form, classifies traffic by crawler using a bot definition map,
and produces aggregate per-bot usage reports.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Object store root directory (default from env)")
	rootCmd.PersistentFlags().StringVar(&botMapFlag, "bot-map", "", "Path to bot definitions JSON (default from env)")

	analyzeCmd.Flags().IntVar(&daysFlag, "days", 0, "Analysis window in days back from now (default from env)")
	analyzeCmd.Flags().BoolVar(&printReport, "print", false, "Print the generated report to stdout")
	analyzeCmd.Flags().StringVar(&formatFlag, "format", "table", "Print format: table, json, csv")

	reportCmd.Flags().StringVar(&dateFlag, "date", "", "Report date YYYY-MM-DD (default: yesterday UTC)")
	reportCmd.Flags().StringVar(&formatFlag, "format", "table", "Output format: table, json, csv")
	reportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write to file instead of stdout")

	watchCmd.Flags().StringVar(&watchDir, "dir", "./incoming", "Directory to watch for new .gz logs")

	rootCmd.AddCommand(etlCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(perfCmd)
	rootCmd.AddCommand(trafficCmd)
	rootCmd.AddCommand(watchCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// env bundles the configured collaborators a command needs.
type env struct {
	cfg   *config.Config
	log   *zap.SugaredLogger
	store *storage.DirStore
	pipe  *pipeline.Pipeline
}

func newEnv() (*env, error) {
	cfg := config.Load()
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if botMapFlag != "" {
		cfg.BotMapPath = botMapFlag
	}

	logger := logs.New(cfg.LogLevel)

	store, err := storage.NewDirStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:   cfg,
		log:   logger,
		store: store,
		pipe:  pipeline.New(store, cfg, logger, nil),
	}, nil
}

func (e *env) registry() (*botmap.Registry, error) {
	reg, err := botmap.LoadFile(e.cfg.BotMapPath)
	if err != nil {
		return nil, err
	}
	e.log.Infow("loaded bot definitions", "path", e.cfg.BotMapPath, "bots", reg.Len())
	return reg, nil
}

var etlCmd = &cobra.Command{
	Use:   "etl <key-or-file>...",
	Short: "Process raw compressed logs into parsed CSV documents",
	Long: `Process one or more raw .gz access logs. Arguments naming existing local
files are imported into the store under the raw prefix first; other
arguments are treated as object keys already in the store.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		for _, arg := range args {
			key, err := e.ingest(ctx, arg)
			if err != nil {
				return err
			}
			outKey, err := e.pipe.ProcessRaw(ctx, key)
			if err != nil {
				return err
			}
			e.log.Infow("processed raw log", "input", key, "output", outKey)
		}
		return nil
	},
}

// ingest resolves an etl argument: local files are copied into the store
// under the raw prefix, anything else is assumed to be an object key.
func (e *env) ingest(ctx context.Context, arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return arg, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", arg, err)
	}
	key := path.Join(e.cfg.RawPrefix, filepath.Base(arg))
	if err := e.store.Put(ctx, key, data); err != nil {
		return "", err
	}
	e.log.Infow("imported local log", "file", arg, "key", key)
	return key, nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build the bot usage report from the aggregated CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		reg, err := e.registry()
		if err != nil {
			return err
		}

		days := daysFlag
		if days <= 0 {
			days = e.cfg.AnalysisDays
		}

		key, rep, err := e.pipe.RunAnalysis(cmd.Context(), reg, days)
		if err != nil {
			return err
		}
		e.log.Infow("analysis complete", "report", key)

		if printReport {
			return reporter.Report(rep, reporter.Format(formatFlag), os.Stdout)
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a previously generated bot report",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}

		date := dateFlag
		if date == "" {
			date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
		}

		rep, err := e.pipe.Report(cmd.Context(), date)
		if err != nil {
			return err
		}

		if outputFlag != "" {
			return reporter.WriteToFile(rep, reporter.Format(formatFlag), outputFlag)
		}
		return reporter.Report(rep, reporter.Format(formatFlag), os.Stdout)
	},
}

var perfCmd = &cobra.Command{
	Use:   "perf",
	Short: "Summarize upstream timing of bot traffic",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		reg, err := e.registry()
		if err != nil {
			return err
		}

		rows, err := e.pipe.AggregatedRows(cmd.Context())
		if err != nil {
			return err
		}

		summary, err := analyzer.New(reg, nil).Timings(rows)
		if err != nil {
			return err
		}
		if summary.Samples == 0 {
			fmt.Println("No bot traffic with timing values.")
			return nil
		}

		fmt.Printf("Samples: %d\n", summary.Samples)
		fmt.Printf("Mean:    %.3fs\n", summary.Mean)
		fmt.Printf("Median:  %.3fs\n", summary.Median)
		fmt.Printf("P95:     %.3fs\n", summary.P95)
		fmt.Printf("Max:     %.3fs\n", summary.Max)
		return nil
	},
}

var trafficCmd = &cobra.Command{
	Use:   "traffic",
	Short: "Profile the non-bot remainder of the traffic",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		reg, err := e.registry()
		if err != nil {
			return err
		}

		rows, err := e.pipe.AggregatedRows(cmd.Context())
		if err != nil {
			return err
		}

		profile, err := analyzer.New(reg, nil).ProfileTraffic(rows)
		if err != nil {
			return err
		}

		fmt.Printf("Non-bot requests: %d\n", profile.Total)
		printCounts("Browsers", profile.Browsers)
		printCounts("Operating systems", profile.OSes)
		printCounts("Devices", profile.Devices)
		return nil
	},
}

func printCounts(title string, counts map[string]int) {
	fmt.Printf("\n%s:\n", title)

	type kv struct {
		key string
		val int
	}
	sorted := make([]kv, 0, len(counts))
	for k, v := range counts {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].val != sorted[j].val {
			return sorted[i].val > sorted[j].val
		}
		return sorted[i].key < sorted[j].key
	})

	for _, e := range sorted {
		fmt.Printf("  %6d  %s\n", e.val, e.key)
	}
}
