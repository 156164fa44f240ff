package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pspoerri/img2tiles/internal/config"
	"github.com/pspoerri/img2tiles/internal/coord"
	"github.com/pspoerri/img2tiles/internal/encode"
	"github.com/pspoerri/img2tiles/internal/output"
	"github.com/pspoerri/img2tiles/internal/tile"
)

const incompleteBoundsMessage = "All coordinates must be specified to output an image."

func setupLogging(verbose bool) {
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

func run(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	setupLogging(cfg.Verbose)
	logger := log.WithField("run", uuid.NewString()[:8])

	wantImage := cfg.Image != ""
	if wantImage && !cfg.HasBounds() {
		fmt.Fprintln(cmd.OutOrStdout(), incompleteBoundsMessage)
		wantImage = false
	}
	if !wantImage && !cfg.DebugTiles {
		if cfg.Image == "" {
			logger.Warn("nothing to do: pass --image with bounds or --debugtiles")
		}
		return nil
	}

	enc, err := encode.NewEncoder(cfg.Format, cfg.Quality)
	if err != nil {
		return fmt.Errorf("encoder: %w", err)
	}

	var renderer *tile.ImageRenderer
	bound := orb.Bound{Min: orb.Point{coord.MinLongitude, coord.MinLatitude}, Max: orb.Point{coord.MaxLongitude, coord.MaxLatitude}}
	if wantImage {
		bounds, err := cfg.Bounds()
		if err != nil {
			return err
		}
		start := time.Now()
		src, format, err := encode.LoadImage(cfg.Image)
		if err != nil {
			return err
		}
		logger.Infof("loaded %s image %s (%dx%d) in %v", format, cfg.Image,
			src.Bounds().Dx(), src.Bounds().Dy(), time.Since(start).Round(time.Millisecond))

		renderer = tile.NewImageRenderer(src, bounds, tile.ImageOptions{
			Opacity:     cfg.Opacity,
			MemoryLimit: tile.ComputeMemoryLimit(cfg.MemoryFraction, logger),
		})
		bound = bounds.Bound()
		logFootprint(logger, renderer, bounds, cfg.MaxZoom)
	}

	printSettings(cmd.OutOrStdout(), cfg, enc)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := output.Open(cfg.Layout, cfg.Output, enc.FileExtension(), output.Metadata{
		ID:      uuid.NewString(),
		Name:    "img2tiles",
		Format:  enc.Format(),
		Bounds:  bound,
		MinZoom: 1,
		MaxZoom: cfg.MaxZoom,
	})
	if err != nil {
		return fmt.Errorf("opening %s output: %w", cfg.Layout, err)
	}

	start := time.Now()
	stats, err := generate(ctx, cfg, enc, renderer, w, logger)
	if err != nil {
		w.Abort()
		if errors.Is(err, context.Canceled) {
			return errors.New("interrupted")
		}
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing %s output: %w", cfg.Layout, err)
	}

	size := stats.TotalBytes
	if cfg.Layout.IsArchive() {
		if fi, err := os.Stat(cfg.Output); err == nil {
			size = fi.Size()
		}
	}
	logger.Infof("done: %d tiles (%d empty skipped), %s, %v → %s",
		stats.TileCount, stats.EmptyTiles, humanSize(size), time.Since(start).Round(time.Millisecond), cfg.Output)
	return nil
}

// generate writes the debug pyramid, then the image pyramid, into w. Image
// tiles replace debug tiles with the same coordinates.
func generate(ctx context.Context, cfg config.Config, enc encode.Encoder, r *tile.ImageRenderer, w output.Writer, logger log.FieldLogger) (tile.Stats, error) {
	gcfg := tile.Config{
		MaxZoom:     cfg.MaxZoom,
		Concurrency: cfg.Concurrency,
		Encoder:     enc,
		Progress:    cfg.Progress,
		Logger:      logger,
	}

	var total tile.Stats
	if cfg.DebugTiles {
		stats, err := tile.Generate(ctx, gcfg, tile.DebugRenderer{}, w)
		total = addStats(total, stats)
		if err != nil {
			return total, fmt.Errorf("debug tiles: %w", err)
		}
		logger.Infof("debug tiles: %d written", stats.TileCount)
	}
	if r != nil {
		stats, err := tile.Generate(ctx, gcfg, r, w)
		total = addStats(total, stats)
		if err != nil {
			return total, fmt.Errorf("image tiles: %w", err)
		}
		logger.Infof("image tiles: %d written", stats.TileCount)
	}
	return total, nil
}

func addStats(a, b tile.Stats) tile.Stats {
	return tile.Stats{
		TileCount:  a.TileCount + b.TileCount,
		EmptyTiles: a.EmptyTiles + b.EmptyTiles,
		TotalBytes: a.TotalBytes + b.TotalBytes,
	}
}

func logFootprint(logger log.FieldLogger, r *tile.ImageRenderer, b coord.GeoBounds, maxZoom int) {
	native := r.NativeZoom()
	if maxZoom > native {
		logger.Infof("zoom %d exceeds the image's native zoom %d; deeper levels are upsampled", maxZoom, native)
	}
	lat, _ := b.Center()
	for z := 1; z <= maxZoom; z++ {
		rect := r.PixelRect(z)
		nLat, wLon := coord.PixelToLatLon(rect.Min.X, rect.Min.Y, z)
		logger.Debugf("zoom %2d: %dx%d px at %v, snapped NW corner (%.6f, %.6f), %.2f m/px at center",
			z, rect.Dx(), rect.Dy(), rect.Min, nLat, wLon, coord.GroundResolution(lat, z))
		if !r.CenterInside(z) {
			logger.Warnf("zoom %d: the image is smaller than the pixel grid; its snapped footprint no longer covers its centre", z)
		}
	}
}

func printSettings(out io.Writer, cfg config.Config, enc encode.Encoder) {
	fmt.Fprintf(out, "img2tiles %s (commit %s, built %s)\n", version, commit, buildDate)
	switch enc.Format() {
	case "jpeg", "webp":
		fmt.Fprintf(out, "  %-14s %s (quality: %d)\n", "Format:", enc.Format(), cfg.Quality)
	default:
		fmt.Fprintf(out, "  %-14s %s\n", "Format:", enc.Format())
	}
	fmt.Fprintf(out, "  %-14s 1 – %d\n", "Zoom:", cfg.MaxZoom)
	fmt.Fprintf(out, "  %-14s %s\n", "Layout:", cfg.Layout)
	fmt.Fprintf(out, "  %-14s %d\n", "Concurrency:", cfg.Concurrency)
	if cfg.Image != "" {
		fmt.Fprintf(out, "  %-14s %s (opacity %.2f)\n", "Image:", cfg.Image, cfg.Opacity)
	}
	if cfg.DebugTiles {
		fmt.Fprintf(out, "  %-14s yes\n", "Debug tiles:")
	}
	fmt.Fprintf(out, "  %-14s %s\n", "Output:", cfg.Output)
}

func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
