// cmd/secureinfer/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/secureinfer/internal/classifier"
	"github.com/signalnine/secureinfer/internal/config"
	"github.com/signalnine/secureinfer/internal/explainer"
	"github.com/signalnine/secureinfer/internal/pipeline"
	"github.com/signalnine/secureinfer/internal/protocol"
	"github.com/signalnine/secureinfer/internal/replay"
	"github.com/signalnine/secureinfer/internal/samples"
	"github.com/signalnine/secureinfer/internal/server"
	"github.com/signalnine/secureinfer/internal/version"
)

var (
	configPath string
	sampleName string
	inputFile  string
	randomPick bool
)

var rootCmd = &cobra.Command{
	Use:           "secureinfer",
	Short:         "On-device network threat analysis",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServerConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := newLogger(cfg.LogLevel)

		srv, err := server.NewServer(cfg, log)
		if err != nil {
			if errors.Is(err, classifier.ErrModelUnavailable) {
				log.WithError(err).Error("Model artifacts missing; train and export the classifier first")
			}
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one flow record locally and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServerConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := newLogger(cfg.LogLevel)

		record, err := analyzeInput()
		if err != nil {
			return err
		}

		cls, err := classifier.Load(cfg.ModelDir)
		if err != nil {
			return err
		}
		generator := server.GeneratorClient(cfg.Generator, log)
		pipe := pipeline.New(cls, explainer.New(generator, log), log)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pipe.Analyze(ctx, record))
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded flows against a running service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadReplayConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		log := newLogger(cfg.LogLevel)

		r, err := replay.New(cfg, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return r.Run(ctx)
	},
}

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List the built-in reference samples",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range samples.Names() {
			fmt.Println(name)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("secureinfer", version.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config")

	analyzeCmd.Flags().StringVar(&sampleName, "sample", "", "built-in sample to analyze (see 'secureinfer samples')")
	analyzeCmd.Flags().StringVar(&inputFile, "file", "", "JSON file with an /analyze request body")
	analyzeCmd.Flags().BoolVar(&randomPick, "random", false, "analyze a random built-in sample")
	analyzeCmd.MarkFlagsMutuallyExclusive("sample", "file", "random")
	analyzeCmd.MarkFlagsOneRequired("sample", "file", "random")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(samplesCmd)
	rootCmd.AddCommand(versionCmd)
}

func analyzeInput() (protocol.FeatureRecord, error) {
	switch {
	case sampleName != "":
		s, ok := samples.Get(sampleName)
		if !ok {
			return nil, fmt.Errorf("unknown sample %q", sampleName)
		}
		return s.Record, nil
	case randomPick:
		s := samples.Random(rand.New(rand.NewSource(time.Now().UnixNano())))
		fmt.Fprintf(os.Stderr, "sample: %s\n", s.Name)
		return s.Record, nil
	default:
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, err
		}
		var req protocol.AnalyzeRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("parse %s: %w", inputFile, err)
		}
		return req.Record(), nil
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stderr)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
