package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/config"
	"github.com/dd0wney/cluso-louvain/pkg/edgelist"
	"github.com/dd0wney/cluso-louvain/pkg/events"
	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/metrics"
	"github.com/dd0wney/cluso-louvain/pkg/report"
	"github.com/dd0wney/cluso-louvain/pkg/snapshot"
	"github.com/dd0wney/cluso-louvain/pkg/store"
)

// pipeline runs one clustering job: read, cluster, then write every
// configured output.
type pipeline struct {
	cfg     *config.Config
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	logger  logging.Logger
	metrics *metrics.Registry
	runID   uuid.UUID
}

func newPipeline(cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) *pipeline {
	runID := uuid.New()
	return &pipeline{
		cfg:     cfg,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		logger:  logging.NewJSONLogger(stderr, cfg.LogLevel()).With(logging.RunID(runID.String())),
		metrics: metrics.NewRegistry(),
		runID:   runID,
	}
}

func (p *pipeline) run(ctx context.Context) error {
	parsed, err := p.readInput()
	if err != nil {
		return &exitError{code: exitInput, err: err}
	}
	g, err := parsed.Graph()
	if err != nil {
		return &exitError{code: exitInput, err: err}
	}
	p.logger.Info("graph loaded", logging.Nodes(g.NodeCount()), logging.Edges(g.EdgeCount()))
	p.metrics.SetGraphSize(g.NodeCount(), g.EdgeCount())

	var bus *events.Bus
	if p.cfg.Events.URL != "" {
		bus = events.NewBus()
		publisher, err := events.NewPublisher(p.cfg.Events.URL, p.logger, p.metrics)
		if err != nil {
			bus.Shutdown()
			return &exitError{code: exitUsage, err: err}
		}
		if err := publisher.Forward(bus, events.TopicLevel, events.TopicRun); err != nil {
			bus.Shutdown()
			publisher.Close()
			return &exitError{code: exitUsage, err: err}
		}
		defer func() {
			bus.Shutdown()
			if err := publisher.Close(); err != nil {
				p.logger.Warn("failed to close event publisher", logging.Error(err))
			}
		}()
	}

	opts := p.cfg.LouvainOptions()
	opts.Logger = p.logger
	opts.Metrics = p.metrics
	if bus != nil {
		opts.Observer = events.Observer(bus, p.runID.String())
	}

	start := time.Now()
	result, err := algorithms.ClusterContext(ctx, g, opts)
	elapsed := time.Since(start)
	if bus != nil {
		events.PublishRun(bus, p.runID.String(), result, err)
	}
	if err != nil {
		p.writeTextfile()
		return &exitError{code: exitCluster, err: fmt.Errorf("clustering failed (%s): %w", algorithms.ErrorKind(err), err)}
	}

	p.logger.Info("clustering completed",
		logging.Int("levels", len(result.Levels)),
		logging.LevelNumber(result.BestLevel),
		logging.Modularity(result.BestModularity),
		logging.Communities(result.Best().CommunityCount),
		logging.Latency(elapsed))
	for _, warning := range report.VerifyBest(result) {
		p.logger.Warn(warning)
	}

	snap := snapshot.New(g, opts, result, parsed.Names)
	snap.RunID = p.runID

	if err := p.writeReports(parsed, result, snap, elapsed); err != nil {
		return &exitError{code: exitOutput, err: err}
	}
	if err := p.persist(ctx, snap); err != nil {
		return &exitError{code: exitOutput, err: err}
	}
	if err := p.writeTextfile(); err != nil {
		return &exitError{code: exitOutput, err: err}
	}
	return nil
}

func (p *pipeline) readInput() (*edgelist.Parsed, error) {
	format, err := edgelist.ParseFormat(p.cfg.Input.Format)
	if err != nil {
		return nil, err
	}
	if p.cfg.Input.Path == "" || p.cfg.Input.Path == "-" {
		return edgelist.Parse(p.stdin, format)
	}
	return edgelist.ReadFile(p.cfg.Input.Path, format)
}

func (p *pipeline) writeReports(parsed *edgelist.Parsed, result *algorithms.LouvainResult, snap *snapshot.Snapshot, elapsed time.Duration) error {
	out := p.cfg.Output

	if err := p.withOutput(out.Levels, func(w io.Writer) error {
		return report.WriteLevels(w, result)
	}); err != nil {
		return fmt.Errorf("failed to write levels: %w", err)
	}

	if err := p.withOutput(out.Clusters, func(w io.Writer) error {
		return report.WriteClusters(w, result, parsed.Name)
	}); err != nil {
		return fmt.Errorf("failed to write clusters: %w", err)
	}

	meta := report.Meta{
		RunID:       snap.RunID.String(),
		Fingerprint: snap.Fingerprint,
		Input:       p.cfg.Input.Path,
		Nodes:       snap.Nodes,
		Edges:       snap.Edges,
		Duration:    elapsed,
	}
	if err := p.withOutput(out.JSON, func(w io.Writer) error {
		return report.WriteJSON(w, result, meta)
	}); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	if out.Summary {
		if err := report.WriteSummary(p.stderr, result); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

// withOutput calls write with stdout for "-", a created file for any other
// non-empty path, and not at all for an empty path.
func (p *pipeline) withOutput(path string, write func(io.Writer) error) error {
	switch path {
	case "":
		return nil
	case "-":
		return write(p.stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// persist writes the snapshot file, uploads it and saves the run, as configured.
func (p *pipeline) persist(ctx context.Context, snap *snapshot.Snapshot) error {
	if path := p.cfg.Snapshot.Path; path != "" {
		timer := logging.StartTimer(p.logger, "snapshot written", logging.Path(path))
		err := snapshot.WriteFile(path, snap)
		p.metrics.RecordOperation("snapshot", "write_file", status(err), timer.Finish(err))
		if err != nil {
			return err
		}
	}

	if s3cfg := p.cfg.S3; s3cfg.Enabled {
		uploader, err := snapshot.NewS3Uploader(ctx, snapshot.S3Options{
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			UsePathStyle:    s3cfg.UsePathStyle,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		}, p.logger)
		if err != nil {
			return err
		}
		timer := logging.StartTimer(p.logger, "snapshot uploaded",
			logging.String("bucket", s3cfg.Bucket),
			logging.String("key", uploader.Key(snap)))
		_, err = uploader.Upload(ctx, snap)
		p.metrics.RecordOperation("snapshot", "upload", status(err), timer.Finish(err))
		if err != nil {
			return err
		}
	}

	if db := p.cfg.Database; db.URL != "" {
		runs, err := store.NewPGStore(ctx, store.PGConfig{
			URL:            db.URL,
			MaxConns:       db.MaxConns,
			MinConns:       db.MinConns,
			ConnectTimeout: db.ConnectTimeout,
		}, p.logger)
		if err != nil {
			return err
		}
		defer runs.Close()

		timer := logging.StartTimer(p.logger, "run saved", logging.Fingerprint(snap.Fingerprint))
		err = runs.SaveRun(ctx, snap)
		p.metrics.RecordOperation("store", "save_run", status(err), timer.Finish(err))
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) writeTextfile() error {
	path := p.cfg.Metrics.Textfile
	if path == "" {
		return nil
	}
	p.metrics.UpdateSystemMetrics()
	if err := p.metrics.WriteTextfile(path); err != nil {
		p.logger.Warn("failed to write metrics textfile", logging.Path(path), logging.Error(err))
		return err
	}
	return nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
