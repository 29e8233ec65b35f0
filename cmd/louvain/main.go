// Command louvain clusters a weighted graph read from an edge list file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-louvain/pkg/config"
)

// Exit codes
const (
	exitOK      = 0
	exitUsage   = 1
	exitInput   = 2
	exitCluster = 3
	exitOutput  = 4
)

// exitError carries the process exit code of a failed stage.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "louvain: %v\n", err)
		return exitUsage
	}

	p := newPipeline(cfg, stdin, stdout, stderr)
	if err := p.run(ctx); err != nil {
		fmt.Fprintf(stderr, "louvain: %v\n", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return exitCluster
	}
	return exitOK
}

// parseArgs loads the config file named by -config, then applies every flag
// given on the command line over it.
func parseArgs(args []string, stderr io.Writer) (*config.Config, error) {
	fs := flag.NewFlagSet("louvain", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: louvain [flags] [input]\n\nReads stdin when no input is given or input is \"-\".\n\nFlags:\n")
		fs.PrintDefaults()
	}

	var (
		configPath = fs.String("config", "", "YAML configuration file")
		format     = fs.String("format", "", "Input format: edgelist or ncol")
		epsilon    = fs.Float64("epsilon", 0, "Minimum move gain and level improvement")
		maxPasses  = fs.Int("max-passes", 0, "Local moving passes allowed per level")
		truncate   = fs.Bool("truncate", false, "Keep the partition reached at the pass bound instead of failing")
		workers    = fs.Int("workers", 0, "Workers for parallel gain evaluation")
		batch      = fs.Int("batch", 0, "Nodes per parallel batch (0 for a default)")
		levels     = fs.String("levels", "", "Write the level report here (- for stdout)")
		clusters   = fs.String("clusters", "", "Write best-level clusters here (- for stdout)")
		jsonOut    = fs.String("json", "", "Write the JSON report here (- for stdout)")
		summary    = fs.Bool("summary", false, "Print a level summary table to stderr")
		snapPath   = fs.String("snapshot", "", "Write a run snapshot to this file")
		s3Upload   = fs.Bool("s3", false, "Upload the snapshot to S3")
		dbURL      = fs.String("database", "", "PostgreSQL URL to persist the run")
		eventsURL  = fs.String("events", "", "Publish level and run events on this mangos URL")
		textfile   = fs.String("metrics-textfile", "", "Write Prometheus metrics to this file")
		logLevel   = fs.String("log-level", "", "Log level: debug, info, warn, error")
	)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected at most one input, got %d", fs.NArg())
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if fs.NArg() == 1 {
		cfg.Input.Path = fs.Arg(0)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Input.Format = *format
		case "epsilon":
			cfg.Louvain.Epsilon = *epsilon
		case "max-passes":
			cfg.Louvain.MaxPassesPerLevel = *maxPasses
		case "truncate":
			cfg.Louvain.TruncateOnPassBound = *truncate
		case "workers":
			cfg.Louvain.Workers = *workers
		case "batch":
			cfg.Louvain.BatchSize = *batch
		case "levels":
			cfg.Output.Levels = *levels
		case "clusters":
			cfg.Output.Clusters = *clusters
		case "json":
			cfg.Output.JSON = *jsonOut
		case "summary":
			cfg.Output.Summary = *summary
		case "snapshot":
			cfg.Snapshot.Path = *snapPath
		case "s3":
			cfg.S3.Enabled = *s3Upload
		case "database":
			cfg.Database.URL = *dbURL
		case "events":
			cfg.Events.URL = *eventsURL
		case "metrics-textfile":
			cfg.Metrics.Textfile = *textfile
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
