package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/opd-ai/ferry"
)

// progressPrinter renders one progress bar per file, replacing the bar
// whenever the client moves on to the next file in a transfer.
type progressPrinter struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	current string
}

func newProgressPrinter() *progressPrinter {
	return &progressPrinter{}
}

// Update is registered as the client's progress callback.
func (p *progressPrinter) Update(u ferry.ProgressUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil || p.current != u.FileName {
		p.finishLocked()
		p.current = u.FileName
		p.bar = newTransferBar(u.FileName, u.Total)
	}

	p.bar.Set64(u.Transferred)
	if u.Speed > 0 {
		p.bar.Describe(fmt.Sprintf("Sending %s (%s)", u.FileName, formatRate(u.Speed)))
	}

	if u.Transferred >= u.Total {
		p.finishLocked()
	}
}

// Close finishes any bar still on screen.
func (p *progressPrinter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *progressPrinter) finishLocked() {
	if p.bar == nil {
		return
	}
	p.bar.Finish()
	fmt.Fprintln(os.Stderr)
	p.bar = nil
	p.current = ""
}

func newTransferBar(fileName string, total int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription("Sending "+fileName),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
}

func formatRate(bytesPerSec float64) string {
	const unit = 1024.0
	switch {
	case bytesPerSec >= unit*unit:
		return fmt.Sprintf("%.1f MiB/s", bytesPerSec/(unit*unit))
	case bytesPerSec >= unit:
		return fmt.Sprintf("%.1f KiB/s", bytesPerSec/unit)
	default:
		return fmt.Sprintf("%.0f B/s", bytesPerSec)
	}
}
