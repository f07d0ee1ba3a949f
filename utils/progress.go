package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"splitget/internal"
)

const partTemplate = `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}`

// partProgress is the running state of one segment
type partProgress struct {
	total   int64
	current int64
	bar     *pb.ProgressBar
}

// ProgressTracker shows one progress bar per segment and keeps byte counts for the summary.
// Report and SetTotal are safe for concurrent use by fetchers.
type ProgressTracker struct {
	pool      *pb.Pool
	quiet     bool
	output    io.Writer
	startTime time.Time
	filename  string
	parts     map[int]*partProgress
	started   bool
	mutex     sync.Mutex
}

// DownloadSummary contains final download statistics
type DownloadSummary struct {
	TotalBytes   int64
	FetchedBytes int64
	TotalTime    time.Duration
	AverageSpeed float64 // bytes per second
	Parts        int
	Filename     string
}

// NewProgressTracker creates a tracker. In quiet mode nothing is drawn, but counts are still kept.
func NewProgressTracker(quiet bool) *ProgressTracker {
	return &ProgressTracker{
		quiet:     quiet,
		output:    os.Stdout,
		startTime: time.Now(),
		parts:     make(map[int]*partProgress),
	}
}

// SetOutput changes where the summary is printed
func (p *ProgressTracker) SetOutput(w io.Writer) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.output = w
}

// AddPart registers segment index with its planned total and the bytes already on disk
func (p *ProgressTracker) AddPart(index int, total, initial int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.addPart(index, total, initial)
}

func (p *ProgressTracker) addPart(index int, total, initial int64) *partProgress {
	part := &partProgress{total: total, current: initial}
	if !p.quiet {
		bar := pb.New64(total).SetTemplateString(partTemplate)
		bar.Set(pb.Bytes, true)
		bar.Set(pb.SIBytesPrefix, true)
		bar.Set("prefix", fmt.Sprintf("Part %d: ", index))
		bar.SetCurrent(initial)
		part.bar = bar
		if p.pool != nil {
			p.pool.Add(bar)
		}
	}
	p.parts[index] = part
	return part
}

// Start begins drawing the registered bars. It is called on the first
// report if the caller did not. Without a terminal the bars are skipped and
// only the counts are kept.
func (p *ProgressTracker) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.start()
}

func (p *ProgressTracker) start() {
	if p.started {
		return
	}
	p.started = true
	p.startTime = time.Now()
	if p.quiet {
		return
	}

	indices := p.sortedIndices()
	bars := make([]*pb.ProgressBar, 0, len(indices))
	for _, index := range indices {
		if bar := p.parts[index].bar; bar != nil {
			bars = append(bars, bar)
		}
	}

	pool, err := pb.StartPool(bars...)
	if err != nil {
		internal.LogDebug("Progress display unavailable: %v", err)
		return
	}
	p.pool = pool
}

// Report adds delta freshly written bytes to segment index
func (p *ProgressTracker) Report(index int, delta int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	part, ok := p.parts[index]
	if !ok {
		return
	}
	p.start()
	part.current += delta
	if part.bar != nil {
		part.bar.Add64(delta)
	}
}

// SetTotal sets the expected total of segment index, registering the
// segment if it is new. Single-part downloads call it as bytes arrive.
func (p *ProgressTracker) SetTotal(index int, total int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	part, ok := p.parts[index]
	if !ok {
		p.addPart(index, total, 0)
		return
	}
	part.total = total
	if part.bar != nil {
		part.bar.SetTotal(total)
	}
}

// SetFilename sets the filename for the download summary
func (p *ProgressTracker) SetFilename(filename string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.filename = filename
}

// Finish stops the bars and returns the download summary. fetched is the
// number of bytes transferred during this run.
func (p *ProgressTracker) Finish(fetched int64) *DownloadSummary {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, part := range p.parts {
		if part.bar != nil {
			part.bar.Finish()
		}
	}
	if p.pool != nil {
		if err := p.pool.Stop(); err != nil {
			internal.LogDebug("Failed to stop progress display: %v", err)
		}
		p.pool = nil
	}

	var total int64
	for _, part := range p.parts {
		total += part.current
	}

	totalTime := time.Since(p.startTime)
	summary := &DownloadSummary{
		TotalBytes:   total,
		FetchedBytes: fetched,
		TotalTime:    totalTime,
		Parts:        len(p.parts),
		Filename:     p.filename,
	}
	if seconds := totalTime.Seconds(); seconds > 0 {
		summary.AverageSpeed = float64(fetched) / seconds
	}

	if !p.quiet {
		p.displaySummary(summary)
	}

	return summary
}

// displaySummary prints the download summary statistics
func (p *ProgressTracker) displaySummary(summary *DownloadSummary) {
	fmt.Fprintf(p.output, "\n")
	fmt.Fprintf(p.output, "Total size: %s in %d part(s)\n", formatBytes(summary.TotalBytes), summary.Parts)
	fmt.Fprintf(p.output, "Fetched this run: %s\n", formatBytes(summary.FetchedBytes))
	fmt.Fprintf(p.output, "Total time: %v\n", summary.TotalTime.Round(time.Millisecond))
	fmt.Fprintf(p.output, "Average speed: %s/s\n", formatBytes(int64(summary.AverageSpeed)))
	if summary.Filename != "" {
		fmt.Fprintf(p.output, "Saved to: %s\n", summary.Filename)
	}
}

func (p *ProgressTracker) sortedIndices() []int {
	indices := make([]int, 0, len(p.parts))
	for index := range p.parts {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices
}

// FormatBytes formats byte count as human-readable string
func FormatBytes(bytes int64) string {
	return formatBytes(bytes)
}

// formatBytes formats byte count as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
