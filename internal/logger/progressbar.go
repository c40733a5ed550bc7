package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressBar is an ASCII byte-progress bar with a moving-average
// throughput/ETA estimate, used to render model pull progress (spec.md
// §4.5's "progress feedback" requirement).
type ProgressBar struct {
	current     int64
	total       int64
	width       int
	enableColor bool

	mu          sync.Mutex
	lastSample  time.Time
	lastBytes   int64
	avgBytesSec float64
}

// NewProgressBar creates a progress bar for total bytes, rendered width
// characters wide.
func NewProgressBar(total int64, width int, enableColor bool) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{total: total, width: width, enableColor: enableColor}
}

// Update sets the current byte count and folds the implied throughput into
// a moving average (weight 0.3 for the new sample), used for the ETA shown
// in Render.
func (pb *ProgressBar) Update(current int64) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	now := time.Now()
	if !pb.lastSample.IsZero() {
		elapsed := now.Sub(pb.lastSample).Seconds()
		if elapsed > 0 {
			sampleRate := float64(current-pb.lastBytes) / elapsed
			if pb.avgBytesSec == 0 {
				pb.avgBytesSec = sampleRate
			} else {
				pb.avgBytesSec = 0.3*sampleRate + 0.7*pb.avgBytesSec
			}
		}
	}
	pb.lastSample = now
	pb.lastBytes = current
	pb.current = current
}

// SetTotal updates the total byte count, for pulls that learn the real
// size only after the transfer begins.
func (pb *ProgressBar) SetTotal(total int64) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.total = total
}

func (pb *ProgressBar) percentage() int {
	if pb.total <= 0 {
		return 0
	}
	perc := int(pb.current * 100 / pb.total)
	if perc > 100 {
		perc = 100
	}
	if perc < 0 {
		perc = 0
	}
	return perc
}

// Render draws the bar, byte counters, and an ETA derived from the current
// moving-average throughput.
func (pb *ProgressBar) Render() string {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	perc := pb.percentage()
	filled := perc * pb.width / 100

	bar := make([]byte, 0, pb.width+2)
	bar = append(bar, '[')
	for i := 0; i < pb.width; i++ {
		if i < filled {
			bar = append(bar, '=')
		} else {
			bar = append(bar, ' ')
		}
	}
	bar = append(bar, ']')

	eta := pb.etaString()
	result := fmt.Sprintf("%s %s/%s (%d%%)%s", bar, formatBytes(pb.current), formatBytes(pb.total), perc, eta)

	if !pb.enableColor {
		return result
	}
	if perc >= 100 {
		return "\033[32m" + result + "\033[0m"
	}
	return "\033[36m" + result + "\033[0m"
}

func (pb *ProgressBar) etaString() string {
	if pb.avgBytesSec <= 0 || pb.total <= 0 || pb.current >= pb.total {
		return ""
	}
	remaining := float64(pb.total-pb.current) / pb.avgBytesSec
	return fmt.Sprintf(" eta %s", time.Duration(remaining*float64(time.Second)).Round(time.Second))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
