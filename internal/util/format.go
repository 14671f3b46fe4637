package util

import (
	"fmt"
	"math"
	"time"
)

// Statify converts bytes processed, total bytes, and a start time into a
// progress fraction, throughput in MiB/s, and an ETA string.
func Statify(done, total int64, start time.Time) (float32, float64, string) {
	if total <= 0 {
		return 0, 0, "00:00:00"
	}

	progress := float32(done) / float32(total)

	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return float32(math.Min(float64(progress), 1)), 0, "00:00:00"
	}

	speed := float64(done) / elapsed / float64(MiB)

	var eta int
	if speed > 0 {
		eta = int(math.Floor(float64(total-done) / (speed * float64(MiB))))
	}

	return float32(math.Min(float64(progress), 1)), speed, Timeify(eta)
}

// Timeify converts seconds to "HH:MM:SS".
func Timeify(seconds int) string {
	hours := int(math.Floor(float64(seconds) / 3600))
	seconds %= 3600
	minutes := int(math.Floor(float64(seconds) / 60))
	seconds %= 60
	hours = int(math.Max(float64(hours), 0))
	minutes = int(math.Max(float64(minutes), 0))
	seconds = int(math.Max(float64(seconds), 0))
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// Sizeify converts bytes to a human-readable string.
func Sizeify(size int64) string {
	switch {
	case size >= int64(TiB):
		return fmt.Sprintf("%.2f TiB", float64(size)/float64(TiB))
	case size >= int64(GiB):
		return fmt.Sprintf("%.2f GiB", float64(size)/float64(GiB))
	case size >= int64(MiB):
		return fmt.Sprintf("%.2f MiB", float64(size)/float64(MiB))
	default:
		return fmt.Sprintf("%.2f KiB", float64(size)/float64(KiB))
	}
}

// Throughput reports MiB/s for n bytes processed over d.
func Throughput(n int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds() / float64(MiB)
}

// ProgressReporter lets a pipeline (encipher/decipher/digest) report
// status and progress without depending on any particular UI or CLI.
// Grounded in the teacher's volume.ProgressReporter / app.UIReporter
// split between a pure interface and a UI-bound implementation.
type ProgressReporter interface {
	SetStatus(text string)
	SetProgress(fraction float32, info string)
	IsCancelled() bool
}

// NullReporter discards all progress reporting; used when a caller
// doesn't supply a ProgressReporter.
type NullReporter struct{}

func (NullReporter) SetStatus(string)              {}
func (NullReporter) SetProgress(float32, string)    {}
func (NullReporter) IsCancelled() bool              { return false }

// CallbackReporter adapts plain function callbacks (the shape a thin CLI
// front-end hands in) to ProgressReporter.
type CallbackReporter struct {
	OnStatus    func(string)
	OnProgress  func(float32, string)
	CheckCancel func() bool
}

func (c *CallbackReporter) SetStatus(text string) {
	if c.OnStatus != nil {
		c.OnStatus(text)
	}
}

func (c *CallbackReporter) SetProgress(fraction float32, info string) {
	if c.OnProgress != nil {
		c.OnProgress(fraction, info)
	}
}

func (c *CallbackReporter) IsCancelled() bool {
	if c.CheckCancel != nil {
		return c.CheckCancel()
	}
	return false
}
