package downloader

import (
	"testing"

	"splitget/internal"
)

func TestPlan_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		length   int64
		n        int
		expected []internal.RangeSpec
	}{
		{
			name:   "even_split",
			length: 1000,
			n:      4,
			expected: []internal.RangeSpec{
				{Index: 1, Offset: 0, Size: 250},
				{Index: 2, Offset: 250, Size: 250},
				{Index: 3, Offset: 500, Size: 250},
				{Index: 4, Offset: 750, Size: 250},
			},
		},
		{
			name:   "remainder_goes_to_last",
			length: 1001,
			n:      4,
			expected: []internal.RangeSpec{
				{Index: 1, Offset: 0, Size: 250},
				{Index: 2, Offset: 250, Size: 250},
				{Index: 3, Offset: 500, Size: 250},
				{Index: 4, Offset: 750, Size: 251},
			},
		},
		{
			name:   "single_part",
			length: 12345,
			n:      1,
			expected: []internal.RangeSpec{
				{Index: 1, Offset: 0, Size: 12345},
			},
		},
		{
			name:   "fewer_bytes_than_parts",
			length: 3,
			n:      4,
			expected: []internal.RangeSpec{
				{Index: 1, Offset: 0, Size: 0},
				{Index: 2, Offset: 0, Size: 0},
				{Index: 3, Offset: 0, Size: 0},
				{Index: 4, Offset: 0, Size: 3},
			},
		},
		{
			name:   "zero_parts_treated_as_one",
			length: 10,
			n:      0,
			expected: []internal.RangeSpec{
				{Index: 1, Offset: 0, Size: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs := Plan(tt.length, tt.n)

			if len(specs) != len(tt.expected) {
				t.Fatalf("Expected %d specs, got %d", len(tt.expected), len(specs))
			}
			for i, spec := range specs {
				if *spec != tt.expected[i] {
					t.Errorf("Spec %d = %+v, want %+v", i, *spec, tt.expected[i])
				}
			}
		})
	}
}

func TestPlan_Properties(t *testing.T) {
	lengths := []int64{0, 1, 7, 8, 9, 1000, 1001, 65537, 1<<30 + 3}

	for _, length := range lengths {
		for n := 1; n <= internal.MaxConnections; n++ {
			specs := Plan(length, n)

			if len(specs) != n {
				t.Errorf("Plan(%d, %d) returned %d specs", length, n, len(specs))
				continue
			}

			if err := ValidatePlan(specs, length); err != nil {
				t.Errorf("Plan(%d, %d) invalid: %v", length, n, err)
			}

			last := specs[n-1]
			want := length - int64(n-1)*(length/int64(n))
			if last.Size != want {
				t.Errorf("Plan(%d, %d) last size = %d, want %d", length, n, last.Size, want)
			}
		}
	}
}

func TestDownloadPlanner_PlanDownload(t *testing.T) {
	planner := NewDownloadPlanner()

	t.Run("clamps_to_max_connections", func(t *testing.T) {
		specs, err := planner.PlanDownload(1000, 12)
		if err != nil {
			t.Fatalf("PlanDownload failed: %v", err)
		}
		if len(specs) != internal.MaxConnections {
			t.Errorf("Expected %d specs, got %d", internal.MaxConnections, len(specs))
		}
	})

	t.Run("negative_length", func(t *testing.T) {
		if _, err := planner.PlanDownload(-1, 4); err == nil {
			t.Error("Expected error for negative length")
		}
	})

	t.Run("header_of_each_spec", func(t *testing.T) {
		specs, err := planner.PlanDownload(1001, 4)
		if err != nil {
			t.Fatalf("PlanDownload failed: %v", err)
		}
		headers := []string{"bytes=0-249", "bytes=250-499", "bytes=500-749", "bytes=750-1000"}
		for i, spec := range specs {
			if spec.Header() != headers[i] {
				t.Errorf("Spec %d header = %q, want %q", spec.Index, spec.Header(), headers[i])
			}
		}
	})
}

func TestValidatePlan(t *testing.T) {
	tests := []struct {
		name   string
		specs  []*internal.RangeSpec
		length int64
	}{
		{"empty", nil, 0},
		{"gap", []*internal.RangeSpec{{Index: 1, Offset: 0, Size: 10}, {Index: 2, Offset: 11, Size: 9}}, 20},
		{"overlap", []*internal.RangeSpec{{Index: 1, Offset: 0, Size: 10}, {Index: 2, Offset: 9, Size: 11}}, 20},
		{"short", []*internal.RangeSpec{{Index: 1, Offset: 0, Size: 10}}, 20},
		{"bad_index", []*internal.RangeSpec{{Index: 2, Offset: 0, Size: 20}}, 20},
		{"not_from_zero", []*internal.RangeSpec{{Index: 1, Offset: 5, Size: 15}}, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePlan(tt.specs, tt.length); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
