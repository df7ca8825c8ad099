package main

import (
	"context"
	"os"

	"github.com/keagan/clipforge/internal/config"
	"github.com/keagan/clipforge/internal/logging"
	"github.com/keagan/clipforge/internal/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipforge",
	Short: "clipforge - gameplay highlight shorts generator",
	Long:  "Converts long gameplay recordings into short vertically-framed highlight clips using scene detection, interval merging, and blurred-background reframing.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)

	generateCmd.Flags().String("output", "", "output directory (overrides config)")
	generateCmd.Flags().Int64("seed", 0, "random seed for start-point selection (overrides config)")
	configCmd.AddCommand(configShowCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate [input dir]",
	Short: "Generate shorts from every video in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		inputDir := cfg.InputDir
		if len(args) > 0 {
			inputDir = args[0]
		}
		outputDir := cfg.OutputDir
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			outputDir = out
		}
		if seed, _ := cmd.Flags().GetInt64("seed"); seed != 0 {
			cfg.Seed = seed
		}

		pipe, err := pipeline.New(log.Logger, cfg)
		if err != nil {
			return err
		}

		if err := pipe.ProcessDirectory(cmd.Context(), inputDir, outputDir); err != nil {
			return err
		}

		log.Info().Str("output", outputDir).Msg("generation complete")
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input video]",
	Short: "Detect, merge, and rank scenes without rendering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		pipe, err := pipeline.New(log.Logger, cfg)
		if err != nil {
			return err
		}

		selection, err := pipe.Analyze(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		log.Info().
			Str("video", selection.Source).
			Int("scenes", len(selection.Raw)).
			Int("combined", len(selection.Combined)).
			Int("selected", len(selection.Ranked)).
			Msg("analysis complete")

		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}

		cmd.OutOrStdout().Write(data)
		return nil
	},
}
