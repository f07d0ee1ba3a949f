package downloader

import (
	"fmt"
	"io"
	"os"
	"sort"

	"splitget/internal"
)

// Merger concatenates a target's segments into the output file
type Merger struct {
	store  *SegmentStore
	ledger *ResumeLedger
}

// NewMerger creates a merger for the segments in store
func NewMerger(store *SegmentStore, ledger *ResumeLedger) *Merger {
	return &Merger{store: store, ledger: ledger}
}

// MergingExt marks an output file that is still being assembled
const MergingExt = ".merging"

// Merge appends each spec's segment in ascending index order into a
// temporary file next to outputPath, deleting every segment right after it
// is copied, then renames the result over outputPath. The ledger is removed
// last. Nothing is touched unless every segment is present. It returns the
// number of bytes written.
func (m *Merger) Merge(specs []*internal.RangeSpec, outputPath string) (int64, error) {
	indices := make([]int, 0, len(specs))
	for _, spec := range specs {
		indices = append(indices, spec.Index)
	}
	sort.Ints(indices)

	for _, index := range indices {
		if !m.store.Exists(index) {
			return 0, internal.NewDownloadError(0, fmt.Sprintf("segment %d is missing", index), internal.ErrMergeFailed).
				WithContext("path", m.store.PartPath(index))
		}
	}

	tempPath := outputPath + MergingExt
	merged, err := m.concat(indices, tempPath)
	if err != nil {
		return merged, err
	}

	if err := m.store.fileOps.AtomicRename(tempPath, outputPath); err != nil {
		return merged, internal.NewFileSystemError("rename", tempPath, err)
	}

	if err := m.ledger.Remove(); err != nil {
		return merged, err
	}
	if err := m.store.fileOps.RemoveDirIfEmpty(m.store.Dir()); err != nil {
		internal.LogDebug("Keeping parts directory %s: %v", m.store.Dir(), err)
	}

	return merged, nil
}

func (m *Merger) concat(indices []int, path string) (merged int64, err error) {
	output, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, internal.NewFileSystemError("create", path, err)
	}
	defer func() {
		if cerr := output.Close(); cerr != nil && err == nil {
			err = internal.NewFileSystemError("close", path, cerr)
		}
	}()

	for _, index := range indices {
		n, err := m.appendSegment(output, index)
		merged += n
		if err != nil {
			return merged, err
		}
	}

	if err := output.Sync(); err != nil {
		return merged, internal.NewFileSystemError("sync", path, err)
	}
	return merged, nil
}

func (m *Merger) appendSegment(output io.Writer, index int) (int64, error) {
	path := m.store.PartPath(index)

	input, err := os.Open(path)
	if err != nil {
		return 0, internal.NewDownloadError(0, fmt.Sprintf("segment %d is missing", index), internal.ErrMergeFailed).
			WithContext("path", path).
			WithCause(err)
	}

	n, err := io.Copy(output, input)
	input.Close()
	if err != nil {
		return n, internal.NewDownloadError(0, fmt.Sprintf("failed to copy segment %d", index), internal.ErrMergeFailed).
			WithContext("path", path).
			WithCause(err)
	}

	if err := m.store.Remove(index); err != nil {
		return n, internal.NewFileSystemError("remove", path, err)
	}

	internal.LogDebug("Merged Part-%d (%d bytes)", index, n)
	return n, nil
}
