//go:build !darwin && !linux

package tile

import "errors"

func totalSystemRAM() (uint64, error) {
	return 0, errors.New("RAM detection not supported on this platform")
}
