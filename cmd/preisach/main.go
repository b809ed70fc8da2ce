package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/preisach/internal/config"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logJSON    bool
	// model overrides
	temperature float64
	meshScale   float64
	meshDensity string
	domain      []float64
	// fit
	iterations int
	noSave     bool
	// predict / suggest / scenario
	runID      string
	mode       string
	fieldsFlag []float64
	target     float64
	gridPoints int
	// compare
	presetNames  []string
	temperatures []float64
	workers      int
	// plot / export
	svgPath string
	width   int
	height  int
	// live / analyze
	amplitude  float64
	cycles     int
	points     int
	decay      float64
	forcPoints int
	periods    int
)

// main registers the commands and flags of the preisach CLI and executes
// the root command, exiting with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "preisach",
		Short:         "differentiable Preisach hysteresis modelling",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset model configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")

	addModelFlags := func(cmd *cobra.Command) {
		cmd.Flags().Float64Var(&temperature, "temperature", config.DefaultTemperature, "relay temperature (0 = hard relay)")
		cmd.Flags().Float64Var(&meshScale, "mesh-scale", config.DefaultMeshScale, "mesh spacing scale")
		cmd.Flags().StringVar(&meshDensity, "mesh-density", "default", "mesh density function")
		cmd.Flags().Float64SliceVar(&domain, "domain", nil, "fixed field domain min,max")
	}

	fitCmd := &cobra.Command{
		Use:   "fit [data.csv]",
		Short: "fit a model to measured h,m data",
		Args:  cobra.ExactArgs(1),
		RunE:  fitData,
	}
	addModelFlags(fitCmd)
	fitCmd.Flags().IntVar(&iterations, "iterations", config.DefaultMaxIterations, "maximum optimizer iterations")
	fitCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	predictCmd := &cobra.Command{
		Use:   "predict [fields.csv]",
		Short: "predict magnetization for a field sequence",
		Args:  cobra.MaximumNArgs(1),
		RunE:  predict,
	}
	addModelFlags(predictCmd)
	predictCmd.Flags().StringVar(&runID, "run", "", "fit run to load the model from")
	predictCmd.Flags().StringVar(&mode, "mode", "future", "evaluation mode (regression, future, next)")
	predictCmd.Flags().Float64SliceVar(&fieldsFlag, "fields", nil, "field values (instead of a file)")
	predictCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	suggestCmd := &cobra.Command{
		Use:   "suggest",
		Short: "suggest the next field reaching a target magnetization",
		Args:  cobra.NoArgs,
		RunE:  suggest,
	}
	suggestCmd.Flags().StringVar(&runID, "run", "", "fit run to load the model from")
	suggestCmd.Flags().Float64Var(&target, "target", 0, "target magnetization")
	suggestCmd.Flags().IntVar(&gridPoints, "grid", config.DefaultGridPoints, "grid search points")
	_ = suggestCmd.MarkFlagRequired("run")
	_ = suggestCmd.MarkFlagRequired("target")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file.yaml]",
		Short: "run a scripted field sequence",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addModelFlags(scenarioCmd)
	scenarioCmd.Flags().StringVar(&runID, "run", "", "fit run to load the model from")

	compareCmd := &cobra.Command{
		Use:   "compare [data.csv]",
		Short: "fit several configurations concurrently and rank them",
		Args:  cobra.ExactArgs(1),
		RunE:  compare,
	}
	addModelFlags(compareCmd)
	compareCmd.Flags().StringSliceVar(&presetNames, "presets", nil, "presets to compare")
	compareCmd.Flags().Float64SliceVar(&temperatures, "temperatures", nil, "temperatures to compare")
	compareCmd.Flags().IntVar(&iterations, "iterations", config.DefaultMaxIterations, "maximum optimizer iterations")
	compareCmd.Flags().IntVar(&workers, "workers", 0, "concurrent fits (0 = all CPUs)")
	compareCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the best run")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "loop figures, reversal curves and harmonics of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&forcPoints, "forc", 0, "trace reversal curves on this many fields")
	analyzeCmd.Flags().IntVar(&periods, "periods", 0, "drive periods for harmonic analysis (0 = skip)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored loop",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the loop as SVG")
	plotCmd.Flags().IntVar(&width, "width", 60, "plot width in characters")
	plotCmd.Flags().IntVar(&height, "height", 16, "plot height in characters")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and curve as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the effective configuration as yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return config.Save(args[0], cfg)
		},
	}
	addModelFlags(configCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "trace a decaying field sweep with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addModelFlags(liveCmd)
	liveCmd.Flags().StringVar(&runID, "run", "", "fit run to load the model from")
	liveCmd.Flags().Float64Var(&amplitude, "amplitude", 0, "sweep amplitude (default: half the domain)")
	liveCmd.Flags().IntVar(&cycles, "cycles", 6, "sweep cycles")
	liveCmd.Flags().IntVar(&points, "points", 60, "points per cycle")
	liveCmd.Flags().Float64Var(&decay, "decay", 0.15, "amplitude lost per cycle")

	rootCmd.AddCommand(fitCmd, predictCmd, suggestCmd, scenarioCmd, compareCmd, analyzeCmd,
		listCmd, plotCmd, exportCmd, presetsCmd, configCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves defaults, then preset, then config file, then flags
// that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("temperature") {
		cfg.Model.Temperature = temperature
	}
	if flags.Changed("mesh-scale") {
		cfg.Model.MeshScale = meshScale
	}
	if flags.Changed("mesh-density") {
		cfg.Model.MeshDensity = meshDensity
	}
	if flags.Changed("domain") {
		cfg.Model.FixedDomain = domain
	}
	if flags.Changed("iterations") {
		cfg.Fit.MaxIterations = iterations
	}
	if flags.Changed("grid") {
		cfg.Planner.GridPoints = gridPoints
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = logJSON
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
