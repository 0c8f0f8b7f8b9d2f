package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/deepnoodle-ai/stepgraph"
	"github.com/deepnoodle-ai/stepgraph/internal/config"
	"github.com/deepnoodle-ai/stepgraph/work"
)

// CLI configuration
type Options struct {
	PlanFile string
	Inspect  string
	List     bool
	Format   string
	Timeout  time.Duration
	Verbose  bool
}

// workHelp describes each unit of work in the default registry
var workHelp = map[string]string{
	"print":  "Print a message, expanding ${args.<name>} expressions",
	"echo":   "Return the 'value' argument",
	"sleep":  "Wait for 'duration'",
	"fail":   "Fail with 'message', optionally 'recoverable'",
	"time":   "Return the current time",
	"tokens": "Return 'output' with a token usage report",
	"script": "Evaluate Risor 'code' with the other arguments as 'args'",
	"http":   "Fetch 'url', returning its content and links",
}

func workUsage() string {
	var b strings.Builder
	for _, name := range work.DefaultRegistry().Names() {
		fmt.Fprintf(&b, "  %-7s - %s\n", name, workHelp[name])
	}
	return b.String()
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := setupLogger(cfg, opts.Verbose)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open graph store: %v", err)
	}
	defer closeStore()

	stepLogger, closeStepLogger, err := openStepLogger(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open step sink: %v", err)
	}
	defer closeStepLogger()

	memoryOpts := stepgraph.MemoryOptions{
		Logger:     logger,
		Store:      store,
		StepLogger: stepLogger,
		Formatter:  &consoleFormatter{},
		AutoSave:   true,
	}

	var code int
	switch {
	case opts.List:
		code = listGraphs(ctx, store)
	case opts.Inspect != "":
		code = inspectGraph(ctx, opts, memoryOpts)
	default:
		code = runPlan(ctx, opts, memoryOpts)
	}
	if code != 0 {
		closeStepLogger()
		closeStore()
		os.Exit(code)
	}
}

func parseFlags() *Options {
	opts := &Options{}

	flag.StringVar(&opts.PlanFile, "file", "", "Path to the YAML plan file")
	flag.StringVar(&opts.PlanFile, "f", "", "Path to the YAML plan file (shorthand)")

	flag.StringVar(&opts.Inspect, "inspect", "", "Load a saved graph by id and print its report")
	flag.BoolVar(&opts.List, "list", false, "List saved graphs")

	flag.StringVar(&opts.Format, "format", "", "Also dump the graph document as json or yaml")

	flag.DurationVar(&opts.Timeout, "timeout", 0, "Run timeout (e.g., 30s, 5m, 1h)")
	flag.DurationVar(&opts.Timeout, "t", 0, "Run timeout (shorthand)")

	flag.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&opts.Verbose, "v", false, "Enable verbose logging (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `stepgraph - Trace a checkpointed plan as an execution graph

Usage: %s [options] -file <plan.yaml>
       %s -inspect <graph-id>
       %s -list

Options:
`, os.Args[0], os.Args[0], os.Args[0])
		flag.PrintDefaults()

		fmt.Fprintf(os.Stderr, `
Available work:
%s
Backends are configured through the environment:
  STEPGRAPH_STORE=file|badger|postgres|none, STEPGRAPH_STEP_SINK=none|file|redis

`, workUsage())
	}

	flag.Parse()

	if opts.PlanFile == "" && opts.Inspect == "" && !opts.List {
		color.Red("Error: one of -file, -inspect or -list is required")
		flag.Usage()
		os.Exit(1)
	}
	switch opts.Format {
	case "", "json", "yaml":
	default:
		color.Red("Error: -format must be json or yaml")
		os.Exit(1)
	}
	return opts
}

func setupLogger(cfg *config.Config, verbose bool) *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = cfg.Level()
	}
	if cfg.LogFormat == "json" {
		return stepgraph.NewJSONLogger(level)
	}
	return stepgraph.NewLogger(level)
}

func runPlan(ctx context.Context, opts *Options, memoryOpts stepgraph.MemoryOptions) int {
	if _, err := os.Stat(opts.PlanFile); os.IsNotExist(err) {
		color.Red("Error: plan file '%s' not found", opts.PlanFile)
		return 1
	}
	color.Blue("Loading plan from: %s", opts.PlanFile)
	plan, err := stepgraph.LoadPlanFile(opts.PlanFile)
	if err != nil {
		color.Red("Failed to load plan: %v", err)
		return 1
	}
	color.Cyan("Plan: %s", plan.Name)
	if plan.Description != "" {
		color.White("Description: %s", plan.Description)
	}

	memory, err := stepgraph.NewMemory(memoryOpts)
	if err != nil {
		color.Red("Failed to create memory: %v", err)
		return 1
	}
	if _, err := memory.Build(plan.Specs()); err != nil {
		color.Red("Failed to build graph: %v", err)
		return 1
	}
	color.Green("Tracing graph %s", memory.ID())

	registry := work.DefaultRegistry()
	startTime := time.Now()
	failed := 0
	for {
		checkpoint, err := memory.NextAvailable()
		if err != nil {
			if stepgraph.NoWorkReasonOf(err) == stepgraph.NoWorkTaskComplete {
				break
			}
			color.Red("Error: %v", err)
			return 1
		}
		color.Yellow("Checkpoint %d: %s", checkpoint.Ordinal, checkpoint.Description)

		previous := checkpoint.ID
		for _, planned := range plan.StepsFor(checkpoint.Ordinal) {
			w, err := registry.Bind(planned)
			if err != nil {
				color.Red("Error: %v", err)
				return 1
			}
			step, err := memory.Trace(ctx, w, stepgraph.StepRef{
				CheckpointID:   checkpoint.ID,
				PreviousStepID: previous,
			})
			if err != nil {
				color.Red("Failed to record step: %v", err)
				return 1
			}
			if step.Status == stepgraph.StepStatusError {
				failed++
			}
			previous = step.ID
		}

		if err := memory.MarkCompleted(ctx, checkpoint.ID); err != nil {
			color.Red("Failed to complete checkpoint: %v", err)
			return 1
		}
	}

	color.White("Completed in %v", time.Since(startTime))
	printReport(memory.Report())
	if err := dumpDocument(memory.Document(), opts.Format); err != nil {
		color.Red("Error: %v", err)
		return 1
	}
	if failed > 0 {
		color.Red("%d step(s) failed", failed)
		return 1
	}
	color.Green("All steps succeeded")
	return 0
}

func inspectGraph(ctx context.Context, opts *Options, memoryOpts stepgraph.MemoryOptions) int {
	memory, err := stepgraph.LoadMemory(ctx, opts.Inspect, memoryOpts)
	if err != nil {
		if errors.Is(err, stepgraph.ErrGraphNotFound) {
			color.Red("No saved graph with id %s", opts.Inspect)
		} else {
			color.Red("Failed to load graph: %v", err)
		}
		return 1
	}
	progress := memory.Tracker().Progress()
	color.Cyan("Graph %s: %d/%d checkpoints completed", memory.ID(), progress.Completed, progress.Total)
	printReport(memory.Report())
	if err := dumpDocument(memory.Document(), opts.Format); err != nil {
		color.Red("Error: %v", err)
		return 1
	}
	return 0
}

func listGraphs(ctx context.Context, store stepgraph.GraphStore) int {
	summaries, err := store.ListGraphs(ctx)
	if err != nil {
		color.Red("Failed to list graphs: %v", err)
		return 1
	}
	printSummaries(summaries)
	return 0
}

func dumpDocument(doc *stepgraph.Document, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "":
		return nil
	case "json":
		data, err = doc.JSON()
	case "yaml":
		data, err = doc.YAML()
	}
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	fmt.Println()
	fmt.Println(string(data))
	return nil
}
