package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ligustah/fetchd/pkg/fetch"
)

// Options configures the progress reporter.
type Options struct {
	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// SourceURL is the URL being downloaded (for display).
	SourceURL string
}

// Reporter outputs human-readable progress for a single download. It
// implements fetch.Observer.
type Reporter struct {
	opts Options

	totalSize    atomic.Int64 // -1 until known
	writtenBytes atomic.Int64
	chunks       atomic.Int64

	mu         sync.Mutex
	target     string
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    bool
	stopped    bool
}

var _ fetch.Observer = (*Reporter)(nil)

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	r := &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	r.totalSize.Store(-1)
	return r
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	r.startTime = time.Now()
	r.lastUpdate = r.startTime
	r.started = true
	fmt.Fprintf(r.opts.Output, "[fetchd] Downloading: %s\n", r.opts.SourceURL)
	r.mu.Unlock()

	go r.updateLoop()
}

// Stop stops the reporter and prints the final status. It waits for the
// update loop to exit.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// Resolved records the destination and the declared size.
func (r *Reporter) Resolved(target fetch.Target, contentLength int64) {
	r.totalSize.Store(contentLength)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = target.Location()
	if r.started {
		fmt.Fprintf(r.opts.Output, "[fetchd] Destination: %s | Size: %s\n", r.target, sizeText(contentLength))
	}
}

// Written records a chunk accepted by the sink.
func (r *Reporter) Written(n int) {
	r.writtenBytes.Add(int64(n))
	r.chunks.Add(1)
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	written := r.writtenBytes.Load()
	total := r.totalSize.Load()

	// Calculate speed
	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(written-r.lastBytes) / elapsed

	r.lastUpdate = now
	r.lastBytes = written

	if total <= 0 {
		fmt.Fprintf(r.opts.Output, "\r[fetchd] Progress: %s | Speed: %s/s    ",
			FormatBytes(written),
			FormatBytes(int64(speed)),
		)
		return
	}

	percent := float64(written) / float64(total) * 100
	eta := "calculating..."
	if speed > 0 {
		remaining := float64(total - written)
		eta = formatDuration(time.Duration(remaining / speed * float64(time.Second)))
	}

	fmt.Fprintf(r.opts.Output, "\r[fetchd] Progress: %.1f%% | %s / %s | Speed: %s/s | ETA: %s    ",
		percent,
		FormatBytes(written),
		FormatBytes(total),
		FormatBytes(int64(speed)),
		eta,
	)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	r.mu.Lock()
	defer r.mu.Unlock()

	written := r.writtenBytes.Load()
	duration := time.Since(r.startTime)
	avgSpeed := float64(written) / max(duration.Seconds(), 0.001)

	fmt.Fprintf(r.opts.Output, "\r[fetchd] Transferred: %s in %d chunks    \n",
		FormatBytes(written),
		r.chunks.Load(),
	)
	fmt.Fprintf(r.opts.Output, "[fetchd] Total time: %s | Average speed: %s/s\n",
		formatDuration(duration),
		FormatBytes(int64(avgSpeed)),
	)
}

func sizeText(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return FormatBytes(n)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes formats b with IEC units, e.g. "1.5 KiB".
func FormatBytes(b int64) string {
	if b < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(b))
}

// ParseBytes parses a human-readable byte string. SI units ("1MB") are powers
// of 1000, IEC units ("1MiB") powers of 1024.
func ParseBytes(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}
	if n > uint64(1<<63-1) {
		return 0, fmt.Errorf("byte string too large: %s", s)
	}
	return int64(n), nil
}
