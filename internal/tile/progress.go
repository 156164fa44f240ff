package tile

import (
	"fmt"
	"os"

	"github.com/cheggaaa/pb/v3"
)

// progressBar tracks completed columns of one zoom level on stderr. A nil
// *progressBar is valid and does nothing, so callers need not check whether
// progress output is enabled.
type progressBar struct {
	bar *pb.ProgressBar
}

func newProgressBar(enabled bool, z, total int) *progressBar {
	if !enabled {
		return nil
	}
	bar := pb.Full.New(total).
		Set("prefix", fmt.Sprintf("Zoom %2d ", z)).
		SetWriter(os.Stderr).
		Start()
	return &progressBar{bar: bar}
}

// Increment marks one more column as done. Safe for concurrent use.
func (p *progressBar) Increment() {
	if p == nil {
		return
	}
	p.bar.Increment()
}

// Finish stops the refresh loop and prints the final bar state.
func (p *progressBar) Finish() {
	if p == nil {
		return
	}
	p.bar.Finish()
}
