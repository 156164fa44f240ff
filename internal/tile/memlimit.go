package tile

import (
	"errors"
	"runtime"

	log "github.com/sirupsen/logrus"
)

// DefaultMemoryFraction is the share of physical RAM a single level raster
// may occupy.
const DefaultMemoryFraction = 0.75

// ErrLevelTooLarge is returned when a level raster would not fit in the
// memory limit.
var ErrLevelTooLarge = errors.New("level raster exceeds memory limit")

const gib = 1 << 30

// ComputeMemoryLimit returns the largest level raster in bytes: fraction of
// total system RAM minus what the Go runtime already holds (decoded source
// image included). Returns 0, meaning no limit, if RAM detection fails.
func ComputeMemoryLimit(fraction float64, logger log.FieldLogger) int64 {
	totalRAM, err := totalSystemRAM()
	if err != nil {
		logger.Debugf("cannot detect system RAM: %v; level size check disabled", err)
		return 0
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	limit := int64(float64(totalRAM)*fraction) - int64(m.Sys)
	if limit <= 0 {
		logger.Warnf("no memory headroom left (RAM %.1f GB, in use %.1f GB); level size check disabled",
			float64(totalRAM)/gib, float64(m.Sys)/gib)
		return 0
	}

	logger.Debugf("level raster memory limit: %.1f GB (%.0f%% of %.1f GB RAM)",
		float64(limit)/gib, fraction*100, float64(totalRAM)/gib)
	return limit
}

// rasterBytes is the size of an RGBA raster of w×h pixels.
func rasterBytes(w, h int) int64 {
	return int64(w) * int64(h) * 4
}
