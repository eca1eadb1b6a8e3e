package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/chazu/trackgen/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	timeout    time.Duration

	logger *zap.Logger
)

// overrides holds generate flags that replace configuration values when set.
type overrides struct {
	numAzim          int
	numPolar         int
	spacing          float64
	maxOpticalLength float64
	threads          int
	cacheDir         string
	withTracks       bool
	output           string
}

var genFlags overrides

var rootCmd = &cobra.Command{
	Use:   "trackgen",
	Short: "Generate characteristic tracks and segments for a 2D geometry",
	Long: `trackgen lays out cyclic tracks over a rectangular domain, links them across
reflective and periodic boundaries, segments them against the geometry's
regions and reports per-region volumes.

Segments are cached on disk when a cache directory is configured.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger("", verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate tracks and print a JSON summary",
	RunE:  runGenerate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "trackgen", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "trackgen.yaml", "Configuration file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Generation timeout")

	f := generateCmd.Flags()
	f.IntVar(&genFlags.numAzim, "num-azim", 0, "Number of azimuthal angles (multiple of 4)")
	f.IntVar(&genFlags.numPolar, "num-polar", 0, "Number of polar angles (even)")
	f.Float64Var(&genFlags.spacing, "spacing", 0, "Requested track spacing in cm")
	f.Float64Var(&genFlags.maxOpticalLength, "max-optical-length", 0, "Maximum optical length of a segment")
	f.IntVar(&genFlags.threads, "threads", 0, "Worker goroutines (0 = all CPUs)")
	f.StringVar(&genFlags.cacheDir, "cache-dir", "", "Segment cache directory")
	f.BoolVar(&genFlags.withTracks, "tracks", false, "Include every track and segment in the output")
	f.StringVarP(&genFlags.output, "output", "o", "", "Write the JSON result to a file instead of stdout")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// apply copies every flag the user set onto cfg.
func (o overrides) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("num-azim") {
		cfg.Generation.NumAzim = o.numAzim
	}
	if f.Changed("num-polar") {
		cfg.Generation.NumPolar = o.numPolar
	}
	if f.Changed("spacing") {
		cfg.Generation.Spacing = o.spacing
	}
	if f.Changed("max-optical-length") {
		cfg.Generation.MaxOpticalLength = o.maxOpticalLength
	}
	if f.Changed("threads") {
		cfg.Generation.Threads = o.threads
	}
	if f.Changed("cache-dir") {
		cfg.Cache.Dir = o.cacheDir
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	genFlags.apply(cmd, cfg)
	// An unknown level is reported with the other validation errors.
	if l, err := newLogger(cfg.Logging.Level, verbose); err == nil {
		_ = logger.Sync()
		logger = l
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger.Debug("Loaded configuration", zap.String("path", configPath), zap.Any("generation", cfg.Generation))
	result, genErr := NewApp(logger).Generate(ctx, cfg, genFlags.withTracks)

	var out io.Writer = cmd.OutOrStdout()
	if genFlags.output != "" {
		file, err := os.Create(genFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer file.Close()
		out = file
	}
	if err := writeResult(out, result); err != nil {
		return err
	}
	return genErr
}

// loggerConfig returns the production config at level, or at debug when
// verbose is set. An empty level means info.
func loggerConfig(level string, verbose bool) (zap.Config, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return zc, nil
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return zc, fmt.Errorf("invalid log level: %w", err)
	}
	zc.Level = lvl
	return zc, nil
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zc, err := loggerConfig(level, verbose)
	if err != nil {
		return nil, err
	}
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

func writeResult(w io.Writer, r Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
