package downloader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"splitget/internal"
	"splitget/utils"
)

// Status describes how a session ended
type Status int

const (
	// StatusCompleted means segments were fetched and merged
	StatusCompleted Status = iota
	// StatusAlreadyDownloaded means the output already had the probed length
	StatusAlreadyDownloaded
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusAlreadyDownloaded:
		return "already downloaded"
	default:
		return "unknown"
	}
}

// Result summarizes a finished session
type Result struct {
	Status     Status
	Filename   string
	OutputPath string
	Length     int64
	Merged     int64
	Reports    []internal.SegmentReport
}

// Failed returns the reports of segments that did not complete
func (r *Result) Failed() []internal.SegmentReport {
	var failed []internal.SegmentReport
	for _, report := range r.Reports {
		if !report.OK() {
			failed = append(failed, report)
		}
	}
	return failed
}

// Truncated reports whether the merged output is shorter or longer than the probed length
func (r *Result) Truncated() bool {
	return r.Status == StatusCompleted && r.Merged != r.Length
}

// Fetched returns the bytes transferred over the network during the session
func (r *Result) Fetched() int64 {
	var total int64
	for _, report := range r.Reports {
		total += report.Written
	}
	return total
}

// Session drives one download: probe, plan, fetch, merge
type Session struct {
	ID      string
	config  *internal.DownloadConfig
	client  internal.HTTPDoer
	sink    internal.ProgressSink
	printer *utils.Printer
	logger  *internal.SecureLogger
	fileOps *utils.FileOperations
}

// NewSession creates a session for config. sink may be nil.
func NewSession(config *internal.DownloadConfig, client internal.HTTPDoer, sink internal.ProgressSink) (*Session, error) {
	if config == nil {
		return nil, internal.NewValidationError("config", "download config cannot be nil")
	}
	if client == nil {
		return nil, internal.NewValidationError("client", "HTTP client cannot be nil")
	}
	if err := utils.NewURLValidator().ValidateURL(config.URL); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = discardSink{}
	}

	id := uuid.New().String()
	return &Session{
		ID:      id,
		config:  config,
		client:  client,
		sink:    sink,
		printer: utils.NewPrinter(io.Discard, true),
		logger:  internal.GetLogger().With("session", id),
		fileOps: utils.NewFileOperations(),
	}, nil
}

// SetPrinter sets where user-facing status lines go
func (s *Session) SetPrinter(printer *utils.Printer) {
	s.printer = printer
}

// Connections returns the clamped connection count used for the plan
func (s *Session) Connections() int {
	return internal.ClampConnections(s.config.MaxConnections)
}

// PartsDir returns the directory holding segments and ledgers
func (s *Session) PartsDir() string {
	return ResolvePartsDir(s.config.Dir, s.config.PartsDir)
}

// ResolvePartsDir places partsDir under dir unless it is absolute. An empty
// partsDir means the default.
func ResolvePartsDir(dir, partsDir string) string {
	if partsDir == "" {
		partsDir = internal.DefaultPartsDir
	}
	if filepath.IsAbs(partsDir) {
		return partsDir
	}
	return filepath.Join(dir, partsDir)
}

// OutputPath returns where filename is written
func (s *Session) OutputPath(filename string) string {
	return filepath.Join(s.config.Dir, filename)
}

// Run performs the download. Segment failures do not stop the merge; they
// are listed in the result. A cancelled ctx leaves segments in place for the next run.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	n := s.Connections()
	s.logger.Debug("Starting session for %s with %d connection(s)", s.config.URL, n)

	probe := NewProber(s.client).Probe(ctx, s.config.URL)
	if !IsDownloadable(probe) {
		s.printer.Error("Remote file has no length!")
		if probe.Err != nil {
			s.logger.Debug("Probe failed: %v", probe.Err)
		}
		return nil, notDownloadableError(s.config.URL, probe)
	}

	filename := probe.Filename
	outputPath := s.OutputPath(filename)
	s.printer.Info("File name: %s", filename)
	s.printer.Info("File size: %s", utils.FormatBytes(probe.Length))

	result := &Result{
		Status:     StatusCompleted,
		Filename:   filename,
		OutputPath: outputPath,
		Length:     probe.Length,
	}

	done, err := s.IsAlreadyDownloaded(outputPath, probe.Length)
	if err != nil {
		return nil, err
	}
	if done {
		s.printer.Success("Aborting, file already downloaded!")
		result.Status = StatusAlreadyDownloaded
		result.Merged = probe.Length
		return result, nil
	}

	partsDir := s.PartsDir()
	if !s.fileOps.FileExists(partsDir) {
		if err := s.fileOps.EnsureDir(partsDir); err != nil {
			return nil, internal.NewFileSystemError("create", partsDir, err)
		}
		s.printer.Info("Parts folder created")
	}

	store := NewSegmentStore(partsDir, filename)
	ledger := NewResumeLedger(store)
	reset, err := ledger.CheckAndReset(n)
	if err != nil {
		return nil, err
	}
	if reset {
		s.printer.Warning("Max number of parts has changed, restarting file download")
		s.logger.Warn("%s", internal.NewDownloadError(0, "segments from a different plan were discarded", internal.ErrStalePlan).
			WithContext("file", filename).
			WithContext("connections", n).Error())
	}

	specs, err := NewDownloadPlanner().PlanDownload(probe.Length, n)
	if err != nil {
		return nil, err
	}
	s.printer.Info("Split file into %d parts", len(specs))

	for _, spec := range specs {
		existing, err := store.Size(spec.Index)
		if err != nil {
			return nil, internal.NewFileSystemError("stat", store.PartPath(spec.Index), err)
		}
		s.sink.AddPart(spec.Index, spec.Size, min(existing, spec.Size))
	}

	fetcher := NewSegmentFetcher(s.client, store, probe.FinalURL, s.sink, len(specs) == 1)
	s.printer.Info("Start downloading")
	result.Reports = NewScheduler(n).Run(ctx, specs, fetcher.Fetch)

	if err := ctx.Err(); err != nil {
		s.logger.Warn("Interrupted; %d segment(s) kept in %s for resume", len(specs), partsDir)
		return result, err
	}

	for _, report := range result.Reports {
		if isFatal(report.Err) {
			s.logger.Error("Part-%d: %v; segments kept for resume", report.Index, report.Err)
			return result, report.Err
		}
		if report.Err != nil {
			s.logger.Error("Part-%d failed after %d bytes: %v", report.Index, report.Total(), report.Err)
		} else {
			s.logger.Debug("Part-%d => downloaded %s of %s", report.Index,
				utils.FormatBytes(report.Total()), utils.FormatBytes(report.Declared))
		}
	}

	s.printer.Info("Merge %d parts into one file", len(specs))
	merged, err := NewMerger(store, ledger).Merge(specs, outputPath)
	result.Merged = merged
	if err != nil {
		return result, err
	}

	if result.Truncated() {
		s.logger.Warn("Merged %d bytes but the server advertised %d", merged, probe.Length)
	}
	s.printer.Success("File downloaded %s", outputPath)
	return result, nil
}

// IsDownloadable reports whether the probe found a length and a usable file name
func IsDownloadable(probe internal.ProbeResult) bool {
	return probe.Length > 0 && probe.Filename != ""
}

// IsAlreadyDownloaded reports whether outputPath exists with exactly length bytes
func (s *Session) IsAlreadyDownloaded(outputPath string, length int64) (bool, error) {
	info, err := os.Stat(outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, internal.NewFileSystemError("stat", outputPath, err)
	}
	return info.Mode().IsRegular() && info.Size() == length, nil
}

// isFatal reports whether err is a critical DownloadError, such as a failed
// write to a segment file. Such failures stop the run before the merge.
func isFatal(err error) bool {
	var de *internal.DownloadError
	return errors.As(err, &de) && de.IsCritical()
}

func notDownloadableError(url string, probe internal.ProbeResult) error {
	reason := "server did not advertise a Content-Length"
	switch {
	case probe.Err != nil:
		reason = "probe request failed"
	case probe.Length > 0 && probe.Filename == "":
		reason = "no file name could be derived from the URL"
	}

	err := internal.NewNotDownloadableError(url, reason)
	if probe.Err != nil {
		err = err.WithCause(probe.Err)
	}
	return err
}
