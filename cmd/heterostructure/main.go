package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"go.temporal.io/sdk/client"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/ingest"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/structure"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/temporal"
)

type config struct {
	values        string
	shutters      string
	settings      string
	location      string
	from          string
	to            string
	displayJSON   bool
	parallelism   int
	gridSteps     int
	exportChannel int

	useTemporal bool
	address     string
	namespace   string
	taskQueue   string
	runID       string
}

func main() {
	// Logs go to stderr, results to stdout
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	var cfg config
	flag.StringVar(&cfg.values, "values", "", "Path to the values log (required)")
	flag.StringVar(&cfg.shutters, "shutters", "", "Path to the shutter log")
	flag.StringVar(&cfg.settings, "settings", "", "Settings file (.json, .yaml, .hcl) or directory of .hcl files (required)")
	flag.StringVar(&cfg.location, "location", "UTC", "Time zone the logs are written in")
	flag.StringVar(&cfg.from, "from", "", "Ignore rows before this time (dd.MM.yyyy HH:mm:ss:SSS)")
	flag.StringVar(&cfg.to, "to", "", "Ignore rows after this time (dd.MM.yyyy HH:mm:ss:SSS)")
	flag.BoolVar(&cfg.displayJSON, "json", false, "Display layers as JSON")
	flag.IntVar(&cfg.parallelism, "parallel", 1, "Channels and layers processed concurrently")
	flag.IntVar(&cfg.gridSteps, "grid-steps", structure.DefaultGridSteps, "Integration steps per layer")
	flag.IntVar(&cfg.exportChannel, "export-channel", 0, "Write the resampled nodes of this channel id instead of layers")
	flag.BoolVar(&cfg.useTemporal, "temporal", false, "Submit the run to a worker instead of computing locally")
	flag.StringVar(&cfg.address, "address", "localhost:7233", "Address of Temporal server")
	flag.StringVar(&cfg.namespace, "namespace", "default", "Temporal namespace")
	flag.StringVar(&cfg.taskQueue, "task-queue", temporal.DefaultTaskQueue, "Temporal task queue of the worker")
	flag.StringVar(&cfg.runID, "run", "", "Run ID used with -temporal, generated when empty")
	flag.Parse()

	if cfg.values == "" || cfg.settings == "" {
		logger.Error("Values log and settings are required")
		flag.Usage()
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.location)
	if err != nil {
		logger.Error("Unknown time zone", "location", cfg.location, "error", err)
		os.Exit(1)
	}
	window, err := parseWindow(cfg.from, cfg.to, loc)
	if err != nil {
		logger.Error("Invalid time window", "error", err)
		os.Exit(1)
	}

	settings, err := ingest.LoadSettings(cfg.settings)
	if err != nil {
		logger.Error("Failed to load settings", "path", cfg.settings, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	opts := structure.Options{GridSteps: cfg.gridSteps, Parallelism: cfg.parallelism}
	if cfg.useTemporal {
		err = runTemporal(ctx, cfg, *settings, window, opts, logger)
	} else {
		err = runLocal(ctx, cfg, *settings, ingest.Options{Location: loc, Window: window}, opts, logger)
	}
	if err != nil {
		logger.Error("Reconstruction failed", "error", err)
		os.Exit(1)
	}
}

// parseWindow turns the -from and -to flags into a window; empty bounds stay open
func parseWindow(from, to string, loc *time.Location) (ingest.Window, error) {
	var window ingest.Window
	var err error
	if from != "" {
		if window.From, err = ingest.ParseTimestamp(from, loc); err != nil {
			return window, fmt.Errorf("-from: %w", err)
		}
	}
	if to != "" {
		if window.To, err = ingest.ParseTimestamp(to, loc); err != nil {
			return window, fmt.Errorf("-to: %w", err)
		}
	}
	if window.To > 0 && window.To < window.From {
		return window, errors.New("-to is before -from")
	}
	return window, nil
}

// runLocal reads the logs and reconstructs the layers in process
func runLocal(ctx context.Context, cfg config, settings structure.Settings, ingestOpts ingest.Options, opts structure.Options, logger *slog.Logger) error {
	loader := ingest.NewLoader(logger, nil, ingestOpts)
	run, err := loader.LoadFiles(ctx, settings, cfg.values, cfg.shutters, cfg.parallelism)
	if err != nil {
		return err
	}

	if cfg.exportChannel != 0 {
		ch := run.Channel(cfg.exportChannel)
		if ch == nil {
			return fmt.Errorf("%w: %d", structure.ErrUnknownChannel, cfg.exportChannel)
		}
		return ingest.WriteSeries(os.Stdout, ch.Curve.Nodes)
	}

	layers, err := structure.Reconstruct(ctx, run, opts)
	if err != nil {
		return err
	}
	logger.Info("Reconstructed layers", "count", len(layers))
	return displayLayers(os.Stdout, layers, ingestOpts.Location, cfg.displayJSON)
}

// runTemporal uploads the run to a worker and waits for the reconstruction
func runTemporal(ctx context.Context, cfg config, settings structure.Settings, window ingest.Window, opts structure.Options, logger *slog.Logger) error {
	values, err := os.ReadFile(cfg.values)
	if err != nil {
		return err
	}
	var shutters []byte
	if cfg.shutters != "" {
		if shutters, err = os.ReadFile(cfg.shutters); err != nil {
			return err
		}
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.address,
		Namespace: cfg.namespace,
	})
	if err != nil {
		return fmt.Errorf("unable to create Temporal client: %w", err)
	}
	defer c.Close()

	runID := cfg.runID
	if runID == "" {
		runID = temporal.NewRunID()
	}
	logger.Info("Submitting run", "runID", runID, "valuesBytes", len(values), "shutterBytes", len(shutters))

	var ingested *temporal.IngestResult
	err = execute(ctx, c, cfg.taskQueue, temporal.GenerateIngestWorkflowID(runID), temporal.IngestRunWorkflow, temporal.IngestRequest{
		RunID:    runID,
		Settings: &settings,
		Values:   string(values),
		Shutters: string(shutters),
		Location: cfg.location,
		Window:   window,
	}, &ingested)
	if err != nil {
		return fmt.Errorf("failed to ingest run: %w", err)
	}
	logger.Info("Ingested run", "runID", runID, "channels", len(ingested.Channels), "samples", ingested.Samples)

	if cfg.exportChannel != 0 {
		var nodes *temporal.ValuesResult
		err = execute(ctx, c, cfg.taskQueue, temporal.GenerateValuesWorkflowID(runID), temporal.ChannelValuesWorkflow,
			temporal.ValuesRequest{RunID: runID, ChannelID: cfg.exportChannel}, &nodes)
		if err != nil {
			return fmt.Errorf("failed to query channel: %w", err)
		}
		return ingest.WriteSeries(os.Stdout, nodes.Nodes)
	}

	var result *temporal.ReconstructResult
	err = execute(ctx, c, cfg.taskQueue, temporal.GenerateReconstructWorkflowID(runID), temporal.ReconstructionWorkflow,
		temporal.ReconstructRequest{RunID: runID, Options: opts}, &result)
	if err != nil {
		return fmt.Errorf("failed to reconstruct run: %w", err)
	}
	loc, _ := time.LoadLocation(cfg.location)
	return displayLayers(os.Stdout, result.Layers, loc, cfg.displayJSON)
}

// execute starts a workflow on taskQueue and waits for its result
func execute(ctx context.Context, c client.Client, taskQueue, workflowID string, workflow, request, result interface{}) error {
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: taskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, options, workflow, request)
	if err != nil {
		return err
	}
	return run.Get(ctx, result)
}

// displayLayers shows the layers in human-readable or JSON format
func displayLayers(w io.Writer, layers []structure.Layer, loc *time.Location, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(layers)
	}

	fmt.Fprintf(w, "%d layers\n", len(layers))
	for _, layer := range layers {
		fmt.Fprintf(w, "Layer %d: %s .. %s\n", layer.Index,
			ingest.FormatTimestamp(layer.Start, loc), ingest.FormatTimestamp(layer.Stop, loc))
		fmt.Fprintf(w, "  Material: %s -> %s\n", describe(layer.StartMaterial), describe(layer.StopMaterial))
		fmt.Fprintf(w, "  Thickness: %.4g\n", layer.NominalThickness)
		fmt.Fprintf(w, "  Substrate: %.1f -> %.1f\n",
			layer.StartMaterial.SubstrateTemperature, layer.StopMaterial.SubstrateTemperature)
		for _, ch := range layer.ActiveChannels {
			fmt.Fprintf(w, "    %-20s %s -> %s\n", ch.Name, optional(ch.Start), optional(ch.Stop))
		}
	}
	return nil
}

func describe(m structure.Material) string {
	s := m.Formula()
	if m.MetalRich {
		s += " (metal-rich)"
	}
	for _, d := range m.Dopants {
		s += fmt.Sprintf(" :%s %.3g", d.Species, d.Concentration)
	}
	return s
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', 6, 64)
}
