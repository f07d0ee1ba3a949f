package utils

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

// partState reads the counters of segment index, zero if unregistered
func partState(tracker *ProgressTracker, index int) (current, total int64) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	if part, ok := tracker.parts[index]; ok {
		return part.current, part.total
	}
	return 0, 0
}

func TestProgressTracker_BasicFunctionality(t *testing.T) {
	tracker := NewProgressTracker(true)

	tracker.AddPart(1, 500, 100)
	tracker.AddPart(2, 500, 0)
	tracker.Start()

	tracker.Report(1, 150)
	tracker.Report(2, 250)

	if got, _ := partState(tracker, 1); got != 250 {
		t.Errorf("Expected part 1 at 250, got %d", got)
	}
	if got, _ := partState(tracker, 2); got != 250 {
		t.Errorf("Expected part 2 at 250, got %d", got)
	}

	summary := tracker.Finish(400)
	if summary == nil {
		t.Fatal("Expected summary to be returned")
	}
	if summary.TotalBytes != 500 {
		t.Errorf("Expected 500 bytes, got %d", summary.TotalBytes)
	}
	if summary.FetchedBytes != 400 {
		t.Errorf("Expected 400 fetched bytes, got %d", summary.FetchedBytes)
	}
	if summary.Parts != 2 {
		t.Errorf("Expected 2 parts, got %d", summary.Parts)
	}
}

func TestProgressTracker_SetTotal(t *testing.T) {
	tracker := NewProgressTracker(true)
	tracker.AddPart(1, 0, 0)

	tracker.Report(1, 64)
	tracker.SetTotal(1, 64)
	tracker.Report(1, 36)
	tracker.SetTotal(1, 100)

	current, total := partState(tracker, 1)
	if total != 100 {
		t.Errorf("Expected total 100, got %d", total)
	}
	if current != 100 {
		t.Errorf("Expected current 100, got %d", current)
	}
}

func TestProgressTracker_UnknownPart(t *testing.T) {
	tracker := NewProgressTracker(true)

	tracker.Report(7, 10)
	if current, total := partState(tracker, 7); current != 0 || total != 0 {
		t.Error("Reports for unregistered parts should be ignored")
	}

	tracker.SetTotal(7, 10)
	tracker.Report(7, 4)
	if current, total := partState(tracker, 7); current != 4 || total != 10 {
		t.Errorf("SetTotal should register the part, got current=%d total=%d", current, total)
	}
}

func TestProgressTracker_ConcurrentReports(t *testing.T) {
	tracker := NewProgressTracker(true)
	for i := 1; i <= 4; i++ {
		tracker.AddPart(i, 1000, 0)
	}

	var wg sync.WaitGroup
	for i := 1; i <= 4; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Report(index, 10)
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i <= 4; i++ {
		if got, _ := partState(tracker, i); got != 1000 {
			t.Errorf("Part %d: expected 1000, got %d", i, got)
		}
	}
}

func TestProgressTracker_StatisticsCalculation(t *testing.T) {
	tracker := NewProgressTracker(true)
	tracker.AddPart(1, 1000, 0)
	tracker.Start()

	tracker.Report(1, 100)
	time.Sleep(10 * time.Millisecond)
	tracker.Report(1, 500)

	if got, _ := partState(tracker, 1); got != 600 {
		t.Errorf("Expected 600 bytes recorded, got %d", got)
	}

	tracker.Report(1, 400)
	summary := tracker.Finish(1000)
	if summary.TotalBytes != 1000 {
		t.Errorf("Expected 1000 bytes, got %d", summary.TotalBytes)
	}
	if summary.TotalTime <= 0 || summary.AverageSpeed < 0 {
		t.Error("Expected a positive duration and a non-negative speed")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
		{5368709120, "5.0 GB"},
	}

	for _, test := range tests {
		result := FormatBytes(test.bytes)
		if result != test.expected {
			t.Errorf("FormatBytes(%d) = %s, expected %s", test.bytes, result, test.expected)
		}
	}
}

func TestProgressTracker_NonQuietMode(t *testing.T) {
	// Without a terminal the pool may fail to start; counts must still work.
	var out bytes.Buffer
	tracker := NewProgressTracker(false)
	tracker.SetOutput(&out)
	tracker.SetFilename("file.iso")

	tracker.AddPart(1, 1000, 0)
	tracker.Start()
	tracker.Report(1, 250)
	tracker.Report(1, 750)

	summary := tracker.Finish(1000)
	if summary == nil {
		t.Fatal("Expected summary to be returned")
	}
	if summary.TotalBytes != 1000 {
		t.Errorf("Expected 1000 bytes, got %d", summary.TotalBytes)
	}
	if !strings.Contains(out.String(), "Saved to: file.iso") {
		t.Errorf("Summary should name the output file, got: %s", out.String())
	}
}
