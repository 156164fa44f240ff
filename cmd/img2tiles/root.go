package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pspoerri/img2tiles/internal/config"
	"github.com/pspoerri/img2tiles/internal/encode"
	"github.com/pspoerri/img2tiles/internal/output"
	"github.com/pspoerri/img2tiles/internal/tile"
)

// newRootCmd builds the command with its own viper instance, so flag and
// config state never leak between invocations.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "img2tiles",
		Short: "Cut a georeferenced image into a slippy-map tile pyramid",
		Long: `img2tiles resamples one image, placed on the globe by its north, south,
east and west edges, into 256x256 Web Mercator tiles for zoom levels 1..zoom.

Tiles are written as {z}/{x}/{y}.png folders, flat quadkey files, or a single
MBTiles or PMTiles archive. Debug tiles label every grid cell with its
coordinates and can be written alone or underneath an image pyramid.

Examples:
  # Switzerland up to zoom 10 as z/x/y folders
  img2tiles -i swiss.png -n 47.8 -s 45.8 -e 10.5 -w 5.9 -z 10 -o tiles/

  # Debug grid only, flat quadkey files
  img2tiles -d -z 4 -l quadkey -o debug/

  # MBTiles archive with WebP tiles
  img2tiles -i map.jpg -n 1 -s -1 -e 1 -w -1 -l mbtiles --format webp -o map.mbtiles`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cmd, v, cfgFile); err != nil {
				return err
			}
			return run(cmd, v)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	f.StringP(config.KeyOutput, "o", "", "output directory, or archive file for mbtiles/pmtiles (required)")
	f.Float64P(config.KeyNorth, "n", 0, "north edge of the image in degrees")
	f.Float64P(config.KeySouth, "s", 0, "south edge of the image in degrees")
	f.Float64P(config.KeyEast, "e", 0, "east edge of the image in degrees")
	f.Float64P(config.KeyWest, "w", 0, "west edge of the image in degrees")
	f.StringP(config.KeyImage, "i", "", "source image (png, jpeg, gif, tiff, bmp, webp)")
	f.IntP(config.KeyZoom, "z", config.DefaultZoom, "maximum zoom level")
	f.BoolP(config.KeyDebugTiles, "d", false, "write debug tiles labelled z/x/y")
	f.StringP(config.KeyLayout, "l", output.LayoutFolders.String(),
		"output layout: "+strings.Join(output.Layouts, ", ")+" (flat = quadkey)")
	f.String(config.KeyFormat, "png", "tile encoding: "+strings.Join(encode.Formats, ", "))
	f.Int(config.KeyQuality, encode.DefaultQuality, "JPEG/WebP quality 1-100")
	f.Int(config.KeyConcurrency, 0, "parallel column workers (0 = number of CPUs)")
	f.Float64(config.KeyOpacity, tile.DefaultOpacity, "opacity of the image over transparent tiles")
	f.Float64(config.KeyMemoryFraction, tile.DefaultMemoryFraction, "share of RAM one resampled level may use")
	f.Bool(config.KeyVerbose, false, "debug logging")
	f.Bool(config.KeyNoProgress, false, "hide per-level progress bars")

	// Bounds stay unset in viper unless the flag was given.
	cobra.CheckErr(v.BindPFlags(f))
	return cmd
}

// initConfig reads the config file, if any, and enables IMG2TILES_* environment variables.
func initConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", v.ConfigFileUsed())
	}

	v.SetEnvPrefix("IMG2TILES")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return nil
}
