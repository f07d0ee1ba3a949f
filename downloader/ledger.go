package downloader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"splitget/internal"
)

// ResumeLedger persists the part count a target was split into, so a run with
// a different count can tell the segments on disk belong to another plan.
type ResumeLedger struct {
	store *SegmentStore
	path  string
}

// NewResumeLedger creates the ledger of store's target
func NewResumeLedger(store *SegmentStore) *ResumeLedger {
	return &ResumeLedger{
		store: store,
		path:  store.LedgerPath(),
	}
}

// Exists reports whether a ledger is on disk
func (l *ResumeLedger) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Read returns the stored part count
func (l *ResumeLedger) Read() (int32, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}

	var count int32
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &count); err != nil {
		return 0, fmt.Errorf("malformed ledger %s: %w", l.path, err)
	}
	return count, nil
}

// Write stores count as a 4-byte big-endian signed integer
func (l *ResumeLedger) Write(count int) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, int32(count)); err != nil {
		return err
	}
	if err := os.WriteFile(l.path, buf.Bytes(), 0644); err != nil {
		return internal.NewFileSystemError("write", l.path, err)
	}
	return nil
}

// Remove deletes the ledger; a missing ledger is not an error
func (l *ResumeLedger) Remove() error {
	if err := l.store.fileOps.RemoveIfExists(l.path); err != nil {
		return internal.NewFileSystemError("remove", l.path, err)
	}
	return nil
}

// CheckAndReset makes the ledger record requested. When an existing ledger
// disagrees, or cannot be read, every segment of the target is discarded first.
// It reports whether segments were discarded.
func (l *ResumeLedger) CheckAndReset(requested int) (bool, error) {
	reset := false

	if l.Exists() {
		stored, err := l.Read()
		if err != nil {
			internal.LogWarn("Ignoring unreadable ledger %s: %v", l.path, err)
		}
		if err != nil || int(stored) != requested {
			removed, err := l.store.RemoveAll()
			if err != nil {
				return false, err
			}
			internal.LogDebug("Discarded %d stale segment(s) of %s (ledger %d, requested %d)",
				removed, l.store.Filename(), stored, requested)
			reset = true
		}
	}

	if err := l.Write(requested); err != nil {
		return reset, err
	}
	return reset, nil
}
