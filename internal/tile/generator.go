package tile

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pspoerri/img2tiles/internal/coord"
	"github.com/pspoerri/img2tiles/internal/encode"
)

// DefaultMaxZoom is used when Config.MaxZoom is not set.
const DefaultMaxZoom = 6

// Config holds pyramid generation configuration.
type Config struct {
	MaxZoom     int
	Concurrency int
	Encoder     encode.Encoder
	Progress    bool
	Logger      log.FieldLogger
}

// Stats holds generation statistics.
type Stats struct {
	TileCount  int64
	EmptyTiles int64
	TotalBytes int64
}

// TileWriter stores encoded tiles. It is called from many goroutines.
type TileWriter interface {
	WriteTile(z, x, y int, data []byte) error
}

type counters struct {
	tiles, empty, bytes atomic.Int64
}

func (c *counters) stats() Stats {
	return Stats{
		TileCount:  c.tiles.Load(),
		EmptyTiles: c.empty.Load(),
		TotalBytes: c.bytes.Load(),
	}
}

// Generate renders zoom levels 1 through cfg.MaxZoom in order and writes every
// non-empty tile. Tiles within a level are rendered concurrently, one column
// per job. The first error stops the run.
func Generate(ctx context.Context, cfg Config, r Renderer, w TileWriter) (Stats, error) {
	if cfg.MaxZoom <= 0 {
		cfg.MaxZoom = DefaultMaxZoom
	}
	if cfg.MaxZoom > coord.MaxZoom {
		return Stats{}, fmt.Errorf("max zoom %d exceeds %d", cfg.MaxZoom, coord.MaxZoom)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Encoder == nil {
		cfg.Encoder = &encode.PNGEncoder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}

	var c counters
	for z := 1; z <= cfg.MaxZoom; z++ {
		if err := ctx.Err(); err != nil {
			return c.stats(), err
		}

		level, err := r.PrepareLevel(z)
		if err != nil {
			return c.stats(), fmt.Errorf("preparing zoom %d: %w", z, err)
		}
		err = generateLevel(ctx, cfg, z, level, w, &c)
		level.Release()
		if err != nil {
			return c.stats(), err
		}

		cfg.Logger.Debugf("%s zoom %d: completed (%d tiles so far)", r.Name(), z, c.tiles.Load())
	}
	return c.stats(), nil
}

func generateLevel(ctx context.Context, cfg Config, z int, level Level, w TileWriter, c *counters) error {
	n := coord.TileCount(z)
	cols := image.Rect(0, 0, n, n)
	if e, ok := level.(Extent); ok {
		cols = cols.Intersect(e.TileRange())
	}
	if cols.Empty() {
		return nil
	}
	valid := func(x, y int) bool { return true }
	if v, ok := level.(Validator); ok {
		valid = v.IsValid
	}

	cfg.Logger.Debugf("zoom %d: columns %d-%d, rows %d-%d", z, cols.Min.X, cols.Max.X-1, cols.Min.Y, cols.Max.Y-1)

	bar := newProgressBar(cfg.Progress, z, cols.Dx())
	defer bar.Finish()

	workers := min(cfg.Concurrency, cols.Dx())
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int, workers*2)

	g.Go(func() error {
		defer close(jobs)
		for x := cols.Min.X; x < cols.Max.X; x++ {
			select {
			case jobs <- x:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			for x := range jobs {
				for y := cols.Min.Y; y < cols.Max.Y; y++ {
					if err := gctx.Err(); err != nil {
						return err
					}
					if !valid(x, y) {
						continue
					}
					if err := renderTile(cfg.Encoder, z, x, y, level, w, c); err != nil {
						return err
					}
				}
				bar.Increment()
			}
			return nil
		})
	}

	return g.Wait()
}

func renderTile(enc encode.Encoder, z, x, y int, level Level, w TileWriter, c *counters) error {
	img, err := level.RenderTile(x, y)
	if err != nil {
		return fmt.Errorf("rendering tile z%d/%d/%d: %w", z, x, y, err)
	}
	if img == nil {
		c.empty.Add(1)
		return nil
	}

	data, err := enc.Encode(img)
	PutCanvas(img)
	if err != nil {
		return fmt.Errorf("encoding tile z%d/%d/%d: %w", z, x, y, err)
	}

	if err := w.WriteTile(z, x, y, data); err != nil {
		return fmt.Errorf("writing tile z%d/%d/%d: %w", z, x, y, err)
	}

	c.tiles.Add(1)
	c.bytes.Add(int64(len(data)))
	return nil
}
