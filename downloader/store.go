package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"splitget/internal"
	"splitget/utils"
)

const (
	// SegmentExt separates the target name from the 1-based segment index
	SegmentExt = ".part-"
	// LedgerExt is appended to the target name for the resume ledger
	LedgerExt = ".metadata"
)

// SegmentStore maps the ranges of one target to segment files in the parts directory
type SegmentStore struct {
	dir       string
	filename  string
	segmentRe *regexp.Regexp
	fileOps   *utils.FileOperations
}

// NewSegmentStore creates a store for filename's segments under dir
func NewSegmentStore(dir, filename string) *SegmentStore {
	return &SegmentStore{
		dir:       dir,
		filename:  filename,
		segmentRe: regexp.MustCompile(`^` + regexp.QuoteMeta(filename+SegmentExt) + `(\d+)$`),
		fileOps:   utils.NewFileOperations(),
	}
}

// Dir returns the parts directory
func (s *SegmentStore) Dir() string {
	return s.dir
}

// Filename returns the target name the store is keyed on
func (s *SegmentStore) Filename() string {
	return s.filename
}

// PartPath returns the segment file path for index
func (s *SegmentStore) PartPath(index int) string {
	return filepath.Join(s.dir, s.filename+SegmentExt+strconv.Itoa(index))
}

// LedgerPath returns the path of the resume ledger for the target
func (s *SegmentStore) LedgerPath() string {
	return filepath.Join(s.dir, s.filename+LedgerExt)
}

// Open opens the segment of spec for appending and returns the bytes it already holds.
// A segment longer than spec.Size is cut back to spec.Size first.
func (s *SegmentStore) Open(spec *internal.RangeSpec) (*os.File, int64, error) {
	path := s.PartPath(spec.Index)

	existing, err := s.fileOps.SizeOrZero(path)
	if err != nil {
		return nil, 0, internal.NewFileSystemError("stat", path, err)
	}

	if existing > spec.Size {
		internal.LogWarn("Segment %s holds %d bytes, more than its %d byte range; truncating", path, existing, spec.Size)
		if err := s.fileOps.TruncateTo(path, spec.Size); err != nil {
			return nil, 0, internal.NewFileSystemError("truncate", path, err)
		}
		existing = spec.Size
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, 0, internal.NewFileSystemError("open", path, err)
	}

	return file, existing, nil
}

// Size returns the current length of segment index, 0 when it does not exist
func (s *SegmentStore) Size(index int) (int64, error) {
	return s.fileOps.SizeOrZero(s.PartPath(index))
}

// Exists reports whether segment index is on disk
func (s *SegmentStore) Exists(index int) bool {
	return s.fileOps.FileExists(s.PartPath(index))
}

// Remove deletes segment index; a missing file is not an error
func (s *SegmentStore) Remove(index int) error {
	return s.fileOps.RemoveIfExists(s.PartPath(index))
}

// List returns the indices of the target's segments present on disk, ascending
func (s *SegmentStore) List() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, internal.NewFileSystemError("read dir", s.dir, err)
	}

	var indices []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := s.segmentRe.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		indices = append(indices, index)
	}

	sort.Ints(indices)
	return indices, nil
}

// RemoveAll deletes every segment of the target and returns how many were removed
func (s *SegmentStore) RemoveAll() (int, error) {
	indices, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, index := range indices {
		if err := s.Remove(index); err != nil {
			return removed, internal.NewFileSystemError("remove", s.PartPath(index), err)
		}
		removed++
	}
	return removed, nil
}

// Clean removes the segments and ledger of filename from dir. With an empty
// filename the whole parts directory is removed.
func Clean(dir, filename string) (int, error) {
	if filename == "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return 0, nil
			}
			return 0, internal.NewFileSystemError("read dir", dir, err)
		}
		if err := os.RemoveAll(dir); err != nil {
			return 0, internal.NewFileSystemError("remove", dir, err)
		}
		return len(entries), nil
	}

	store := NewSegmentStore(dir, filename)
	removed, err := store.RemoveAll()
	if err != nil {
		return removed, err
	}

	ledger := NewResumeLedger(store)
	if ledger.Exists() {
		if err := ledger.Remove(); err != nil {
			return removed, err
		}
		removed++
	}

	if err := store.fileOps.RemoveDirIfEmpty(dir); err != nil {
		return removed, fmt.Errorf("failed to remove parts directory: %w", err)
	}
	return removed, nil
}
