package main

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/permutor/cmd"
	"github.com/smazurov/permutor/internal/config"
	"github.com/smazurov/permutor/internal/logging"
	"github.com/smazurov/permutor/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"permutor.toml"`

	// Run settings
	Encoder               string `help:"Encoder to sweep, see list-encoders" short:"e" default:"h264_nvenc" toml:"run.encoder" env:"ENCODER"`
	Bitrate               int    `help:"Bitrate in Mb/s to start from" short:"b" default:"10" toml:"run.bitrate" env:"BITRATE"`
	MaxBitratePermutation int    `help:"Highest bitrate in Mb/s to sweep, in steps of 5" default:"0" toml:"run.max_bitrate_permutation" env:"MAX_BITRATE_PERMUTATION"`
	CheckQuality          bool   `help:"Measure VMAF of every encode" default:"false" toml:"run.check_quality" env:"CHECK_QUALITY"`
	AllowDuplicateScores  bool   `help:"Run settings expected to repeat an earlier VMAF score" default:"false" toml:"run.allow_duplicate_scores" env:"ALLOW_DUPLICATE_SCORES"`
	DetectOverload        bool   `help:"Stop an encode once it falls behind the source frame rate" default:"false" toml:"run.detect_overload" env:"DETECT_OVERLOAD"`
	TestRun               bool   `help:"Run only the first permutation of each bitrate" default:"false" toml:"run.test_run" env:"TEST_RUN"`
	Gpu                   int    `help:"GPU index for encoders that take one, see list-encoders" default:"0" toml:"run.gpu" env:"GPU"`

	// Files settings
	SourceFile         string `help:"Source file to encode" short:"s" default:"" toml:"files.source_file" env:"SOURCE_FILE"`
	FilesDirectory     string `help:"Directory holding the source files" default:"" toml:"files.directory" env:"FILES_DIRECTORY"`
	LogOutputDirectory string `help:"Directory for reports and ffmpeg logs" default:"." toml:"files.log_output_directory" env:"LOG_OUTPUT_DIRECTORY"`

	// Metrics settings
	MetricsAddr string `help:"Serve Prometheus metrics on this address, e.g. :9464" default:"" toml:"metrics.addr" env:"METRICS_ADDR"`

	// Logging settings
	Verbose       bool   `help:"Shorthand for --logging-level debug" default:"false"`
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingTrial  string `help:"Trial runner logging level" default:"info" toml:"logging.trial" env:"LOGGING_TRIAL"`
	LoggingSearch string `help:"Search loop logging level" default:"info" toml:"logging.search" env:"LOGGING_SEARCH"`
	LoggingFfmpeg string `help:"ffmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
}

func (o *Options) runOptions() cmd.RunOptions {
	return cmd.RunOptions{
		Encoder:              o.Encoder,
		Bitrate:              o.Bitrate,
		MaxBitrate:           o.MaxBitratePermutation,
		CheckQuality:         o.CheckQuality,
		AllowDuplicateScores: o.AllowDuplicateScores,
		DetectOverload:       o.DetectOverload,
		SourceFile:           o.SourceFile,
		FilesDirectory:       o.FilesDirectory,
		LogOutputDirectory:   o.LogOutputDirectory,
		TestRun:              o.TestRun,
		GPU:                  o.Gpu,
		Verbose:              o.Verbose,
		MetricsAddr:          o.MetricsAddr,
	}
}

func main() {
	var cli humacli.CLI
	var parsed *Options

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		level := opts.LoggingLevel
		if opts.Verbose {
			level = "debug"
		}

		// Initialize logging system
		logging.Initialize(logging.Config{
			Level:  level,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"trial":  opts.LoggingTrial,
				"search": opts.LoggingSearch,
				"ffmpeg": opts.LoggingFfmpeg,
			},
		})

		parsed = opts

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		hooks.OnStart(func() {
			defer close(done)
			cmd.Exit(cmd.RunPermute(ctx, opts.runOptions()))
		})

		hooks.OnStop(func() {
			logging.GetLogger("main").Info("Interrupted, writing report for completed trials")
			cancel()
			<-done
		})
	})

	root := cli.Root()
	root.Use = "permutor"
	root.Short = "Benchmark hardware video encoder settings"
	root.Long = `Sweeps every settings permutation of a hardware encoder over a range of bitrates, ` +
		`reporting encode speed and optionally VMAF quality, to find the best settings for streaming.`
	root.Version = version.Get().Full()

	runOptions := func() cmd.RunOptions { return parsed.runOptions() }

	root.AddCommand(cmd.CreateBenchmarkCmd(runOptions))
	root.AddCommand(cmd.CreateListEncodersCmd())
	root.AddCommand(cmd.CreateValidateEncodersCmd(func() int { return parsed.Gpu }))
	root.AddCommand(cmd.CreateFetchInputsCmd(func() string { return parsed.FilesDirectory }))

	// Run the CLI
	cli.Run()
}
