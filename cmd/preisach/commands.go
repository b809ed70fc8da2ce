package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/preisach/internal/analysis"
	"github.com/san-kum/preisach/internal/automation"
	"github.com/san-kum/preisach/internal/config"
	"github.com/san-kum/preisach/internal/experiment"
	"github.com/san-kum/preisach/internal/export"
	"github.com/san-kum/preisach/internal/fit"
	"github.com/san-kum/preisach/internal/metrics"
	"github.com/san-kum/preisach/internal/model"
	"github.com/san-kum/preisach/internal/optim"
	"github.com/san-kum/preisach/internal/storage"
	"github.com/san-kum/preisach/internal/viz"
)

// harmonicsShown is the number of harmonics printed by analyze.
const harmonicsShown = 7

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// loadModel returns the model of --run, or a fresh untrained one built
// from the effective configuration.
func loadModel(cfg *config.Config, logger *slog.Logger) (*model.Model, config.ModelConfig, error) {
	if runID != "" {
		md, meta, err := storage.New(cfg.DataDir).LoadModel(runID, logger)
		if err != nil {
			return nil, config.ModelConfig{}, err
		}
		return md, meta.Model, nil
	}
	opts, err := cfg.ModelOptions(logger)
	if err != nil {
		return nil, config.ModelConfig{}, err
	}
	md, err := model.New(opts, nil, nil)
	if err != nil {
		return nil, config.ModelConfig{}, err
	}
	return md, cfg.Model, nil
}

func saveRun(cfg *config.Config, meta storage.RunMetadata, curve storage.Curve) error {
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	id, err := st.Save(meta, curve)
	if err != nil {
		return err
	}
	fmt.Printf("saved run: %s\n", id)
	return nil
}

func fitData(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	h, m, err := storage.LoadCSV(args[0])
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%s: fitting needs h and m columns", args[0])
	}

	opts, err := cfg.ModelOptions(logger)
	if err != nil {
		return err
	}
	md, err := model.New(opts, h, m)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	res, err := fit.Fit(ctx, md, cfg.FitConfig(logger))
	if err != nil {
		if !cancelled(err) || res == nil {
			return err
		}
		fmt.Println("interrupted, keeping best parameters")
	}

	predicted, err := md.Evaluate(model.Fitting, h, true)
	if err != nil {
		return err
	}
	scores := metrics.Evaluate(metrics.Default(), h, m, predicted)

	rows := []viz.Row{
		{Label: "samples", Value: fmt.Sprintf("%d", len(h))},
		{Label: "mesh points", Value: fmt.Sprintf("%d", md.NMeshPoints())},
		{Label: "status", Value: res.Status},
		{Label: "iterations", Value: fmt.Sprintf("%d", res.Iterations)},
		{Label: "duration", Value: res.Duration.Round(time.Millisecond).String()},
		viz.FloatRow("initial loss", res.InitialLoss),
		viz.FloatRow("final loss", res.FinalLoss),
		viz.FloatRow("scale", md.Scale()),
		viz.FloatRow("offset", md.Offset()),
		viz.FloatRow("slope", md.Slope()),
	}
	for _, mt := range metrics.Default() {
		rows = append(rows, viz.FloatRow(mt.Name(), scores[mt.Name()]))
	}
	fmt.Println(viz.Summary("fit: "+args[0], rows))
	fmt.Println()
	fmt.Println(viz.LoopPlot(h, m, predicted, 60, 16))

	if noSave {
		return nil
	}
	meta := storage.MetadataFor(md, cfg.Model)
	meta.Kind = "fit"
	meta.Source = args[0]
	meta.Preset = preset
	meta.Loss = res.FinalLoss
	meta.Metrics = scores
	return saveRun(cfg, meta, storage.Curve{H: h, Measured: m, Predicted: predicted})
}

func predict(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	var fields, measured []float64
	source := "flags"
	switch {
	case len(args) == 1:
		fields, measured, err = storage.LoadCSV(args[0])
		if err != nil {
			return err
		}
		source = args[0]
	case len(fieldsFlag) > 0:
		fields = fieldsFlag
	default:
		return fmt.Errorf("give a fields file or --fields")
	}

	md, mc, err := loadModel(cfg, logger)
	if err != nil {
		return err
	}
	if runID != "" {
		source = runID
	}
	evalMode, err := model.ParseMode(mode)
	if err != nil {
		return err
	}
	predicted, err := md.Evaluate(evalMode, fields, true)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if measured != nil {
		fmt.Fprintln(w, "H\tM\tMEASURED")
	} else {
		fmt.Fprintln(w, "H\tM")
	}
	for i, v := range predicted {
		if measured != nil {
			fmt.Fprintf(w, "%.6g\t%.6g\t%.6g\n", fields[i], v, measured[i])
			continue
		}
		fmt.Fprintf(w, "%.6g\t%.6g\n", fields[i], v)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if noSave {
		return nil
	}
	meta := storage.MetadataFor(md, mc)
	meta.Kind = "predict"
	meta.Source = source
	meta.Preset = preset
	if measured != nil {
		meta.Metrics = metrics.Evaluate(metrics.Default(), fields, measured, predicted)
	}
	return saveRun(cfg, meta, storage.Curve{H: fields, Measured: measured, Predicted: predicted})
}

func suggest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	md, _, err := loadModel(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	s, err := optim.Suggest(ctx, md, target, cfg.PlannerConfig(logger))
	if err != nil && (s == nil || !cancelled(err)) {
		return err
	}
	d := md.ValidDomain()
	fmt.Println(viz.Summary("next field", []viz.Row{
		viz.FloatRow("target m", s.Target),
		viz.FloatRow("field", s.Field),
		viz.FloatRow("predicted m", s.Predicted),
		viz.FloatRow("error", s.Error),
		{Label: "refined", Value: fmt.Sprintf("%t", s.Refined)},
		{Label: "domain", Value: fmt.Sprintf("[%.4g, %.4g]", d[0], d[1])},
	}))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	md, _, err := loadModel(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	results, err := automation.RunScenario(ctx, sc, md, logger)

	fmt.Printf("scenario: %s\n", sc.Name)
	if sc.Description != "" {
		fmt.Printf("%s\n", sc.Description)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tACTION\tFIELDS\tLAST H\tLAST M")
	for _, r := range results {
		lastH, lastM := "-", "-"
		if n := len(r.Fields); n > 0 {
			lastH = fmt.Sprintf("%.6g", r.Fields[n-1])
		}
		if n := len(r.Magnetization); n > 0 {
			lastM = fmt.Sprintf("%.6g", r.Magnetization[n-1])
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", r.Index, r.Action, len(r.Fields), lastH, lastM)
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func compare(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	h, m, err := storage.LoadCSV(args[0])
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%s: comparing fits needs h and m columns", args[0])
	}

	var trials []experiment.Trial
	if len(presetNames) > 0 {
		pt, err := experiment.PresetTrials(presetNames)
		if err != nil {
			return err
		}
		trials = append(trials, pt...)
	}
	if len(temperatures) > 0 {
		trials = append(trials, experiment.TemperatureTrials(cfg.Model, temperatures)...)
	}
	if len(trials) == 0 {
		trials = experiment.DensityTrials(cfg.Model)
	}

	ctx, stop := interruptContext()
	defer stop()

	outcomes, err := experiment.Run(ctx, h, m, trials, experiment.Config{
		Fit:     cfg.FitConfig(logger),
		Workers: workers,
		Logger:  logger,
	})
	if err != nil && !cancelled(err) {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tTRIAL\tMESH\tT\tLOSS\tITERS\tTIME")
	for i, o := range experiment.Rank(outcomes) {
		fmt.Fprintf(w, "%d\t%s\t%d\t%.3g\t%.6g\t%d\t%s\n",
			i+1,
			o.Trial.Name,
			o.Model.NMeshPoints(),
			o.Model.Temperature(),
			o.Result.FinalLoss,
			o.Result.Iterations,
			o.Result.Duration.Round(time.Millisecond),
		)
	}
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "-\t%s\t-\t-\tfailed: %v\t-\t-\n", o.Trial.Name, o.Err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	best, err := experiment.Best(outcomes)
	if err != nil {
		return err
	}
	fmt.Printf("\nbest: %s\n", best.Trial.Name)
	if noSave {
		return nil
	}

	predicted, err := best.Model.Evaluate(model.Fitting, h, true)
	if err != nil {
		return err
	}
	meta := storage.MetadataFor(best.Model, best.Trial.Model)
	meta.Kind = "compare"
	meta.Source = args[0]
	meta.Preset = best.Trial.Name
	meta.Loss = best.Result.FinalLoss
	meta.Metrics = metrics.Evaluate(metrics.Default(), h, m, predicted)
	return saveRun(cfg, meta, storage.Curve{H: h, Measured: m, Predicted: predicted})
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	id := args[0]
	st := storage.New(cfg.DataDir)
	meta, err := st.Load(id)
	if err != nil {
		return err
	}
	curve, err := st.LoadCurve(id)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%s)\n\n", meta.ID, meta.Kind)
	loops := []struct {
		name string
		m    []float64
	}{{"predicted", curve.Predicted}, {"measured", curve.Measured}}
	for _, l := range loops {
		if l.m == nil {
			continue
		}
		ch, err := analysis.Characterize(curve.H, l.m)
		if err != nil {
			return err
		}
		fmt.Println(viz.Summary(l.name+" loop", []viz.Row{
			{Label: "coercive fields", Value: fmt.Sprintf("%.4g", ch.CoerciveFields)},
			viz.FloatRow("coercivity", ch.Coercivity),
			{Label: "remanence", Value: fmt.Sprintf("%.4g", ch.Remanence)},
			{Label: "saturation", Value: fmt.Sprintf("[%.4g, %.4g]", ch.Saturation[0], ch.Saturation[1])},
			viz.FloatRow("area", ch.Area),
		}))
		fmt.Println()
	}

	if forcPoints <= 0 && periods <= 0 {
		return nil
	}
	md, _, err := st.LoadModel(id, logger)
	if err != nil {
		return err
	}

	if forcPoints > 0 {
		forc, err := analysis.FirstOrderReversalCurves(md, forcPoints)
		if err != nil {
			return err
		}
		rho := forc.Distribution()
		peak, pi, pj := math.Inf(-1), 0, 0
		for i := range rho {
			for j, v := range rho[i] {
				if !math.IsNaN(v) && v > peak {
					peak, pi, pj = v, i, j
				}
			}
		}
		hr, hf := forc.Grid[pi], forc.Grid[pj]
		fmt.Println(viz.Summary("reversal curves", []viz.Row{
			{Label: "curves", Value: fmt.Sprintf("%d", len(forc.Curves))},
			viz.FloatRow("peak density", peak),
			viz.FloatRow("peak coercive", (hf-hr)/2),
			viz.FloatRow("peak interaction", (hf+hr)/2),
		}))
		fmt.Println()
	}

	if periods > 0 {
		d := md.ValidDomain()
		const perPeriod = 64
		// one extra period settles the loop before sampling
		fields, err := automation.Sweep{
			Center:         (d[0] + d[1]) / 2,
			Amplitude:      (d[1] - d[0]) / 2,
			Cycles:         periods + 1,
			PointsPerCycle: perPeriod,
		}.Fields()
		if err != nil {
			return err
		}
		resp, err := md.Evaluate(model.Regression, fields, true)
		if err != nil {
			return err
		}
		steady := resp[perPeriod : len(resp)-1]
		amps, err := analysis.Harmonics(steady, periods, harmonicsShown)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HARMONIC\tAMPLITUDE\tRELATIVE")
		for k, a := range amps {
			fmt.Fprintf(w, "%d\t%.6g\t%.4f\n", k+1, a, a/amps[0])
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nTHD: %.4f\n", analysis.TotalHarmonicDistortion(amps))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	runs, err := storage.New(cfg.DataDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tMESH\tT\tLOSS\tSOURCE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3g\t%.6g\t%s\n",
			run.ID,
			run.Kind,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.MeshPoints,
			run.Model.Temperature,
			run.Loss,
			run.Source,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	id := args[0]

	st := storage.New(cfg.DataDir)
	meta, err := st.Load(id)
	if err != nil {
		return err
	}
	curve, err := st.LoadCurve(id)
	if err != nil {
		return err
	}
	if len(curve.H) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("kind: %s\n", meta.Kind)
	fmt.Printf("samples: %d\n\n", len(curve.H))

	fmt.Println(viz.LoopPlot(curve.H, curve.Measured, curve.Predicted, width, height))
	fmt.Println(viz.Separator(width))
	fmt.Println(viz.SeriesChart(curve.Measured, curve.Predicted, width, height/2))
	if curve.Measured != nil {
		fmt.Println(viz.Separator(width))
		fmt.Println(viz.ResidualLine(curve.Measured, curve.Predicted, width))
	}

	if svgPath == "" {
		return nil
	}
	series := []export.Series{{Label: "predicted", X: curve.H, Y: curve.Predicted, Color: "#ff00ff"}}
	if curve.Measured != nil {
		series = append([]export.Series{{Label: "measured", X: curve.H, Y: curve.Measured, Color: "#00c8c8", Dotted: true}}, series...)
	}
	if err := os.WriteFile(svgPath, []byte(export.LoopSVG(series, 640, 480)), 0644); err != nil {
		return err
	}
	fmt.Printf("\nwrote %s\n", svgPath)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	return storage.New(cfg.DataDir).ExportJSON(args[0], os.Stdout)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	md, _, err := loadModel(cfg, logger)
	if err != nil {
		return err
	}

	d := md.ValidDomain()
	amp := amplitude
	if amp <= 0 {
		amp = (d[1] - d[0]) / 2
	}
	fields, err := automation.Sweep{
		Center:         (d[0] + d[1]) / 2,
		Amplitude:      amp,
		Cycles:         cycles,
		PointsPerCycle: points,
		Decay:          decay,
	}.Fields()
	if err != nil {
		return err
	}
	return viz.RunLive(md, fields)
}
