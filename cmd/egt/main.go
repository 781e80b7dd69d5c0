// Command egt segments grayscale microscopy images with the empirical
// gradient threshold and writes one binary mask per input.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"egt-segmenter/internal/config"
	"egt-segmenter/internal/imageio"
	"egt-segmenter/internal/logger"
	"egt-segmenter/internal/models"
	"egt-segmenter/internal/pipeline"
	"egt-segmenter/internal/shutdown"

	"github.com/dustin/go-humanize"
)

const component = "egt"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

type options struct {
	configFile string
	outDir     string
	truthDir   string
}

func run(parent context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("egt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: egt [flags] image...\n\n")
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVar(&opts.configFile, "config", "", "TOML configuration file")
	fs.StringVar(&opts.outDir, "out", ".", "directory for <name>_mask.png outputs")
	fs.StringVar(&opts.truthDir, "truth", "", "directory of reference <name>_mask.png files to score against")

	defaults := config.Default()
	workers := fs.Int("workers", defaults.Runtime.Workers, "planes segmented in parallel")
	stopOnError := fs.Bool("stop-on-error", false, "stop scheduling planes after the first failure")
	minObject := fs.Float64("min-object-size", defaults.Segmentation.MinObjectSize, "smallest object kept, in pixels")
	minHole := fs.Float64("min-hole-size", defaults.Segmentation.MinHoleSize, "holes must be larger than this to be kept")
	maxHole := fs.Float64("max-hole-size", defaults.Segmentation.MaxHoleSize, "holes must be smaller than this to be kept")
	join := fs.String("join", string(defaults.Segmentation.JoinOperator), "AND or OR of the hole size and intensity rules")
	minHoleIntensity := fs.Float64("min-hole-intensity", defaults.Segmentation.MinHoleIntensityPercentile, "lower foreground intensity percentile for kept holes")
	maxHoleIntensity := fs.Float64("max-hole-intensity", defaults.Segmentation.MaxHoleIntensityPercentile, "upper foreground intensity percentile for kept holes")
	greedy := fs.Int("greedy", defaults.Segmentation.Greedy,
		fmt.Sprintf("threshold bias, nominally within ±%d; positive keeps more foreground", models.GreedyRange))
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	logFormat := fs.String("log-format", "", "console or json")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg := defaults
	if opts.configFile != "" {
		loaded, err := config.Load(opts.configFile)
		if err != nil {
			fmt.Fprintf(stderr, "egt: %v\n", err)
			return 2
		}
		cfg = loaded
	}

	var joinErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Runtime.Workers = *workers
		case "stop-on-error":
			cfg.Runtime.StopOnError = *stopOnError
		case "min-object-size":
			cfg.Segmentation.MinObjectSize = *minObject
		case "min-hole-size":
			cfg.Segmentation.MinHoleSize = *minHole
		case "max-hole-size":
			cfg.Segmentation.MaxHoleSize = *maxHole
		case "join":
			cfg.Segmentation.JoinOperator, joinErr = models.ParseJoinOperator(*join)
		case "min-hole-intensity":
			cfg.Segmentation.MinHoleIntensityPercentile = *minHoleIntensity
		case "max-hole-intensity":
			cfg.Segmentation.MaxHoleIntensityPercentile = *maxHoleIntensity
		case "greedy":
			cfg.Segmentation.Greedy = *greedy
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "log-format":
			cfg.Logging.Format = *logFormat
		}
	})
	if joinErr != nil {
		fmt.Fprintf(stderr, "egt: %v\n", joinErr)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "egt: %v\n", err)
		return 2
	}

	log, err := logger.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(stderr, "egt: %v\n", err)
		return 2
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		log.Error(component, err, map[string]interface{}{"out": opts.outDir})
		return 1
	}

	shutdownMgr := shutdown.NewManager(parent, log)
	shutdownMgr.Listen()
	defer shutdownMgr.Stop()

	if !segmentFiles(shutdownMgr.Context(), log, cfg, opts, fs.Args()) {
		return 1
	}
	return 0
}

// segmentFiles loads, segments and saves every input. It reports whether all
// of them succeeded.
func segmentFiles(ctx context.Context, log logger.Logger, cfg config.Config, opts options, paths []string) bool {
	start := time.Now()
	ok := true

	planes := make([]models.Plane, 0, len(paths))
	sources := make(map[string]string, len(paths))
	var pixels uint64
	for _, path := range paths {
		loaded, err := imageio.Load(path)
		if err != nil {
			log.Error(component, err, map[string]interface{}{"path": path})
			ok = false
			if cfg.Runtime.StopOnError {
				return false
			}
			continue
		}
		for _, plane := range loaded {
			// masks are named after labels, so a repeated label would overwrite
			if prev, dup := sources[plane.Label]; dup {
				log.Error(component, fmt.Errorf("duplicate plane label %q", plane.Label), map[string]interface{}{
					"path":     path,
					"previous": prev,
				})
				return false
			}
			sources[plane.Label] = path
			pixels += uint64(plane.Len())
			planes = append(planes, plane)
		}
	}

	log.Info(component, "inputs loaded", map[string]interface{}{
		"planes": len(planes),
		"pixels": humanize.Comma(int64(pixels)),
		"buffer": humanize.Bytes(pixels * 4),
	})

	segmenter := pipeline.NewSegmenter(log)
	results, err := segmenter.SegmentStack(ctx, planes, cfg.Segmentation, pipeline.StackOptions{
		Workers:     cfg.Runtime.Workers,
		StopOnError: cfg.Runtime.StopOnError,
		Progress: func(done, total int) {
			log.Debug(component, "progress", map[string]interface{}{"done": done, "total": total})
		},
	})
	if err != nil {
		ok = false
		if errors.Is(err, context.Canceled) {
			log.Warning(component, "segmentation interrupted", map[string]interface{}{
				"completed": len(results),
				"planes":    len(planes),
			})
		} else {
			log.Error(component, err, nil)
		}
	}

	var (
		foreground int64
		written    int
	)
	for _, r := range results {
		if r.Err != nil {
			ok = false
			continue
		}
		out := imageio.MaskPath(opts.outDir, r.Label)
		if err := imageio.SaveMask(out, r.Mask); err != nil {
			log.Error(component, err, map[string]interface{}{"label": r.Label})
			ok = false
			continue
		}
		written++
		foreground += int64(r.Report.Foreground)

		if opts.truthDir != "" {
			if err := score(log, r, opts.truthDir); err != nil {
				log.Warning(component, "could not score mask", map[string]interface{}{
					"label": r.Label,
					"error": err.Error(),
				})
			}
		}
	}

	log.Info(component, "done", map[string]interface{}{
		"written":    written,
		"foreground": humanize.Comma(foreground),
		"elapsed":    time.Since(start).Round(time.Millisecond).String(),
	})
	return ok
}

// score compares a result with the first page of
// <truthDir>/<label>_mask.png, where any nonzero pixel is foreground.
func score(log logger.Logger, r pipeline.PlaneResult, truthDir string) error {
	pages, err := imageio.Load(imageio.MaskPath(truthDir, r.Label))
	if err != nil {
		return err
	}
	ref := pages[0]
	truth := models.NewMask(ref.Width, ref.Height)
	for i, v := range ref.Pix {
		if v > 0 {
			truth.Pix[i] = 1
		}
	}

	metrics, err := pipeline.CalculateSegmentationMetrics(r.Mask, truth)
	if err != nil {
		return err
	}
	fields := metrics.Fields()
	fields["label"] = r.Label
	log.Info(component, "mask scored", fields)
	return nil
}
