package parser

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"iso date", "2024-01-15", "2024-01-15", true},
		{"iso datetime", "2024-01-15 10:30:00", "2024-01-15", true},
		{"slash ymd", "2024/01/15", "2024-01-15", true},
		{"dot ymd", "2024.01.15", "2024-01-15", true},
		{"dash dmy", "15-01-2024", "2024-01-15", true},
		{"slash dmy", "15/01/2024", "2024-01-15", true},
		{"dot dmy", "15.01.2024", "2024-01-15", true},
		{"compact", "20240115", "2024-01-15", true},
		{"mdy only valid as mdy", "12/25/2024", "2024-12-25", true},
		{"empty", "", "", false},
		{"garbage", "not a date", "", false},
		{"korean label", "탐지일", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

// The day-first layouts precede the month-first ones, so an ambiguous value
// must resolve as day/month. This ordering is deliberate and preserved.
func TestParseDateAmbiguityResolvesDayFirst(t *testing.T) {
	got, ok := ParseDate("01/02/2024")
	if !ok {
		t.Fatal("expected ambiguous date to parse")
	}
	want := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDate(\"01/02/2024\") = %v, want %v (day-first)", got, want)
	}
}

func TestDateLayoutsOrder(t *testing.T) {
	want := []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006/01/02",
		"2006.01.02",
		"02-01-2006",
		"02/01/2006",
		"02.01.2006",
		"20060102",
		"01/02/2006",
		"01-02-2006",
	}
	if len(DateLayouts) != len(want) {
		t.Fatalf("DateLayouts has %d entries, want %d", len(DateLayouts), len(want))
	}
	for i, layout := range want {
		if DateLayouts[i] != layout {
			t.Errorf("DateLayouts[%d] = %q, want %q", i, DateLayouts[i], layout)
		}
	}
}

func TestParseDatePtr(t *testing.T) {
	if got := ParseDatePtr(""); got != nil {
		t.Errorf("ParseDatePtr(\"\") = %v, want nil", got)
	}
	got := ParseDatePtr("2024-01-15")
	if got == nil {
		t.Fatal("ParseDatePtr(\"2024-01-15\") = nil, want value")
	}
	if got.Year() != 2024 || got.Month() != time.January || got.Day() != 15 {
		t.Errorf("ParseDatePtr(\"2024-01-15\") = %v", got)
	}
}
