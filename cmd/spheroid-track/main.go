package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/LdDl/spheroid-mot/internal/chart"
	"github.com/LdDl/spheroid-mot/internal/config"
	"github.com/LdDl/spheroid-mot/internal/export"
	"github.com/LdDl/spheroid-mot/internal/monitoring"
	"github.com/LdDl/spheroid-mot/internal/replay"
	"github.com/LdDl/spheroid-mot/internal/store"
	"github.com/LdDl/spheroid-mot/mot"
	"github.com/pkg/errors"
)

var (
	configPath     = flag.String("config", "", "Path to YAML config (default spheroid.yaml or $SPHEROID_CONFIG)")
	detectionsPath = flag.String("detections", "", "Path to recorded detections (YAML or JSON)")
	outDir         = flag.String("out", "", "Output directory for CSV tables and charts (overrides config)")
	dbPath         = flag.String("db", "", "SQLite database path (overrides config)")
	charts         = flag.Bool("chart", false, "Write growth charts")
)

// runOptions are command line overrides on top of the loaded config
type runOptions struct {
	detections string
	outDir     string
	dbPath     string
	charts     bool
}

// summary is what a run produced
type summary struct {
	result *mot.SessionResult
	series *mot.TimeSeries
	files  []string
}

func main() {
	flag.Parse()
	if *detectionsPath == "" {
		log.Fatal("-detections is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := run(ctx, cfg, runOptions{
		detections: *detectionsPath,
		outDir:     *outDir,
		dbPath:     *dbPath,
		charts:     *charts,
	})
	if out != nil && out.result != nil {
		log.Printf("session %s: %s, %d records, %d tracks, %d failed frames",
			out.result.SessionID, out.result.State, len(out.result.Records), len(out.result.TrackIDs), out.result.FailedFrames)
	}
	if err != nil {
		log.Fatalf("tracking failed: %v", err)
	}
	for _, path := range out.files {
		log.Printf("wrote %s", path)
	}
}

func run(ctx context.Context, cfg *config.Config, opts runOptions) (*summary, error) {
	if opts.outDir != "" {
		cfg.OutputDir = opts.outDir
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if opts.charts {
		cfg.Charts = true
	}

	recording, err := replay.Load(opts.detections)
	if err != nil {
		return nil, err
	}
	registry, err := mot.NewBoundsRegistry(cfg.SizeBounds())
	if err != nil {
		return nil, err
	}
	registry.Subscribe(mot.BoundsObserverFunc(func(previous, current mot.SizeBounds) {
		monitoring.Logf("size bounds changed: [%g, %g] -> [%g, %g]", previous.MinSize, previous.MaxSize, current.MinSize, current.MaxSize)
	}))

	sessionOpts := cfg.SessionOptions(registry)
	var db *store.Store
	if cfg.DBPath != "" {
		db, err = store.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		sessionOpts = append(sessionOpts, mot.WithFrameObserver(db.FrameObserver()))
	}

	session, err := mot.NewSession(recording.Frames(), recording, sessionOpts...)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := db.CreateSession(session.ID(), opts.detections); err != nil {
			return nil, err
		}
		registry.Subscribe(db.BoundsObserver(session.ID()))
	}

	result, runErr := session.Run(ctx)
	out := &summary{result: result}
	if db != nil {
		if err := db.FinishSession(session.ID(), result.State, result.FailedFrames); err != nil {
			monitoring.Warnf("session %s: can't store final state: %v", session.ID(), err)
		}
	}
	if runErr != nil {
		return out, runErr
	}

	series, err := session.TimeSeries(cfg.AggregateOptions()...)
	if err != nil {
		return out, err
	}
	out.series = series
	for _, rate := range mot.GrowthRates(series) {
		monitoring.Logf("spheroid %s: %d frames, diameter %+.5f/frame (R2 %.3f), volume %+.5f/frame (R2 %.3f)",
			rate.TrackID, rate.Frames, rate.DiameterSlope, rate.DiameterR2, rate.VolumeSlope, rate.VolumeR2)
	}

	files, err := export.WriteDir(cfg.OutputDir, series)
	out.files = append(out.files, files...)
	if err != nil {
		return out, errors.Wrap(err, "export")
	}

	if cfg.Charts {
		var smoothed map[mot.TrackID][]mot.SeriesRow
		if cfg.Smoothing {
			smoothed = make(map[mot.TrackID][]mot.SeriesRow, series.Len())
			for _, id := range series.TrackIDs {
				rows, err := mot.SmoothSeries(series.Track(id), cfg.SmoothingConfig())
				if err != nil {
					return out, errors.Wrapf(err, "smoothing spheroid %s", id)
				}
				smoothed[id] = rows
			}
		}
		files, err := chart.WriteGrowthCharts(cfg.OutputDir, series, smoothed)
		out.files = append(out.files, files...)
		if err != nil {
			return out, errors.Wrap(err, "charts")
		}
	}
	return out, nil
}
