//go:build darwin

package tile

import "golang.org/x/sys/unix"

func totalSystemRAM() (uint64, error) {
	return unix.SysctlUint64("hw.memsize")
}
