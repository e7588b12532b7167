package storage

import (
	"errors"
	"testing"
	"time"
)

func TestReportFilename(t *testing.T) {
	date := time.Date(2024, 8, 20, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		zoneName string
		expected string
	}{
		{"simple name", "Forest", "carbon-sink-report-Forest-2024-08-20.pdf"},
		{"spaces", "North Ridge", "carbon-sink-report-North_Ridge-2024-08-20.pdf"},
		{"path separators", "a/b\\c", "carbon-sink-report-a_b_c-2024-08-20.pdf"},
		{"empty", "  ", "carbon-sink-report-zone-2024-08-20.pdf"},
		{"unicode kept", "森林", "carbon-sink-report-森林-2024-08-20.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReportFilename(tt.zoneName, date); got != tt.expected {
				t.Errorf("ReportFilename() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestReportPath(t *testing.T) {
	got := ReportPath(42, "carbon-sink-report-x-2024-08-20.pdf")
	want := "zones/42/carbon-sink-report-x-2024-08-20.pdf"
	if got != want {
		t.Errorf("ReportPath() = %q, want %q", got, want)
	}
	if id := ZoneIDFromPath(got); id != 42 {
		t.Errorf("ZoneIDFromPath() = %d, want 42", id)
	}
	if id := ZoneIDFromPath("other/42/file.pdf"); id != 0 {
		t.Errorf("ZoneIDFromPath() outside zones = %d, want 0", id)
	}
}

func TestCleanObjectPath(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"zones/1/report.pdf", "zones/1/report.pdf", false},
		{"/zones/1/report.pdf", "zones/1/report.pdf", false},
		{"zones//1/./report.pdf", "zones/1/report.pdf", false},
		{"../etc/passwd", "", true},
		{"zones/../../secret", "", true},
		{"zones\\1\\report.pdf", "", true},
		{"", "", true},
		{"/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := CleanObjectPath(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("CleanObjectPath(%q) error = %v, want ErrInvalidPath", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CleanObjectPath(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("CleanObjectPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSortAndLimit(t *testing.T) {
	base := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)
	reports := []ReportInfo{
		{Path: "zones/1/a.pdf", Updated: base},
		{Path: "zones/2/b.pdf", Updated: base.Add(2 * time.Hour)},
		{Path: "zones/3/c.pdf", Updated: base.Add(time.Hour)},
		{Path: "zones/4/d.pdf", Updated: base},
	}

	got := sortAndLimit(reports, 3)
	want := []string{"zones/2/b.pdf", "zones/3/c.pdf", "zones/4/d.pdf"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Path != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i].Path, want[i])
		}
	}
}

func TestGetContentType(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"report.pdf", "application/pdf"},
		{"REPORT.PDF", "application/pdf"},
		{"index.html", "text/html"},
		{"chart.png", "image/png"},
		{"chart.svg", "image/svg+xml"},
		{"data.json", "application/json"},
		{"blob", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := GetContentType(tt.filename); got != tt.expected {
				t.Errorf("GetContentType(%q) = %q, want %q", tt.filename, got, tt.expected)
			}
		})
	}
}
