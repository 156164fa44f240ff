// Package config maps command line flags, environment variables and an
// optional config file (all via viper) onto a validated run configuration.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/pspoerri/img2tiles/internal/coord"
	"github.com/pspoerri/img2tiles/internal/encode"
	"github.com/pspoerri/img2tiles/internal/output"
	"github.com/pspoerri/img2tiles/internal/tile"
)

// Keys shared by flags, environment variables and config files.
const (
	KeyOutput         = "output"
	KeyNorth          = "north"
	KeySouth          = "south"
	KeyEast           = "east"
	KeyWest           = "west"
	KeyImage          = "image"
	KeyZoom           = "zoom"
	KeyDebugTiles     = "debugtiles"
	KeyLayout         = "layout"
	KeyFormat         = "format"
	KeyQuality        = "quality"
	KeyConcurrency    = "concurrency"
	KeyOpacity        = "opacity"
	KeyMemoryFraction = "memory-fraction"
	KeyVerbose        = "verbose"
	KeyNoProgress     = "no-progress"
)

// DefaultZoom is the maximum zoom level when none is configured.
const DefaultZoom = 14

var (
	// ErrConfiguration marks invalid or inconsistent run settings.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrIncompleteBounds is returned when only some of the four bounds are
	// given. It wraps ErrConfiguration.
	ErrIncompleteBounds = fmt.Errorf("%w: all coordinates must be specified", ErrConfiguration)
)

// Config is a validated run configuration.
type Config struct {
	Output         string
	Image          string
	MaxZoom        int
	DebugTiles     bool
	Layout         output.Layout
	Format         string
	Quality        int
	Concurrency    int
	Opacity        float64
	MemoryFraction float64
	Verbose        bool
	Progress       bool

	north, south, east, west float64
	boundsGiven              int
}

// SetDefaults registers the default values on v. Bounds have no default:
// whether they were given is part of the configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyZoom, DefaultZoom)
	v.SetDefault(KeyLayout, output.LayoutFolders.String())
	v.SetDefault(KeyFormat, "png")
	v.SetDefault(KeyQuality, encode.DefaultQuality)
	v.SetDefault(KeyConcurrency, runtime.NumCPU())
	v.SetDefault(KeyOpacity, tile.DefaultOpacity)
	v.SetDefault(KeyMemoryFraction, tile.DefaultMemoryFraction)
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	layout, err := output.ParseLayout(v.GetString(KeyLayout))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	cfg := Config{
		Output:         strings.TrimSpace(v.GetString(KeyOutput)),
		Image:          strings.TrimSpace(v.GetString(KeyImage)),
		MaxZoom:        v.GetInt(KeyZoom),
		DebugTiles:     v.GetBool(KeyDebugTiles),
		Layout:         layout,
		Format:         strings.ToLower(strings.TrimSpace(v.GetString(KeyFormat))),
		Quality:        v.GetInt(KeyQuality),
		Concurrency:    v.GetInt(KeyConcurrency),
		Opacity:        v.GetFloat64(KeyOpacity),
		MemoryFraction: v.GetFloat64(KeyMemoryFraction),
		Verbose:        v.GetBool(KeyVerbose),
		Progress:       !v.GetBool(KeyNoProgress),
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Format == "jpg" {
		cfg.Format = "jpeg"
	}
	for _, b := range []struct {
		key string
		dst *float64
	}{
		{KeyNorth, &cfg.north},
		{KeySouth, &cfg.south},
		{KeyEast, &cfg.east},
		{KeyWest, &cfg.west},
	} {
		if v.IsSet(b.key) {
			*b.dst = v.GetFloat64(b.key)
			cfg.boundsGiven++
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and required fields. Partial bounds are not an
// error here; Bounds reports them when an image run needs them.
func (c Config) Validate() error {
	switch {
	case c.Output == "":
		return fmt.Errorf("%w: output path is required", ErrConfiguration)
	case c.MaxZoom < 1 || c.MaxZoom > coord.MaxZoom:
		return fmt.Errorf("%w: zoom %d outside [1, %d]", ErrConfiguration, c.MaxZoom, coord.MaxZoom)
	case !slices.Contains(encode.Formats, c.Format):
		return fmt.Errorf("%w: unsupported tile format %q (supported: %s)",
			ErrConfiguration, c.Format, strings.Join(encode.Formats, ", "))
	case c.Quality < 1 || c.Quality > 100:
		return fmt.Errorf("%w: quality %d outside [1, 100]", ErrConfiguration, c.Quality)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be at least 1", ErrConfiguration)
	case !(c.Opacity > 0 && c.Opacity <= 1):
		return fmt.Errorf("%w: opacity %v outside (0, 1]", ErrConfiguration, c.Opacity)
	case !(c.MemoryFraction > 0 && c.MemoryFraction <= 1):
		return fmt.Errorf("%w: memory fraction %v outside (0, 1]", ErrConfiguration, c.MemoryFraction)
	}
	return nil
}

// HasBounds reports whether all four bounds were given.
func (c Config) HasBounds() bool {
	return c.boundsGiven == 4
}

// Bounds returns the image footprint. It fails with ErrIncompleteBounds
// unless all four bounds were given.
func (c Config) Bounds() (coord.GeoBounds, error) {
	if !c.HasBounds() {
		return coord.GeoBounds{}, ErrIncompleteBounds
	}
	b, err := coord.NewGeoBounds(c.north, c.south, c.east, c.west)
	if err != nil {
		return coord.GeoBounds{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return b, nil
}
