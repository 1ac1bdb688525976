package parser

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestParseExcel(t *testing.T) {
	payload := buildWorkbook(t, [][]interface{}{
		{"IP Address", "국가", "사유", "탐지일"},
		{"1.2.3.4", "KR", "Malware C2", "2024-01-15"},
	})

	meta := SourceMeta{Name: "REGTECH", DefaultReason: "추후 보완예정", Confidence: 85}
	records := ParseExcel(payload, meta)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.IPAddress != "1.2.3.4" {
		t.Errorf("IPAddress = %q, want %q", rec.IPAddress, "1.2.3.4")
	}
	if rec.Source != "REGTECH" {
		t.Errorf("Source = %q, want %q", rec.Source, "REGTECH")
	}
	if rec.Country != "KR" {
		t.Errorf("Country = %q, want %q", rec.Country, "KR")
	}
	if rec.Reason != "Malware C2" {
		t.Errorf("Reason = %q, want %q", rec.Reason, "Malware C2")
	}
	if rec.Confidence != 85 {
		t.Errorf("Confidence = %d, want 85", rec.Confidence)
	}
	wantDate := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	if rec.DetectionDate == nil || !rec.DetectionDate.Equal(wantDate) {
		t.Errorf("DetectionDate = %v, want %v", rec.DetectionDate, wantDate)
	}
	if rec.RemovalDate != nil {
		t.Errorf("RemovalDate = %v, want nil", rec.RemovalDate)
	}
}

func TestParseExcelSkipsInvalidRows(t *testing.T) {
	payload := buildWorkbook(t, [][]interface{}{
		{"IP", "사유"},
		{"총 3건", ""},
		{"1.2.3.4", "Phishing"},
		{"not-an-ip", "Spam"},
		{"203.0.113.9", "-"},
	})

	meta := SourceMeta{Name: "REGTECH", DefaultReason: "추후 보완예정", Confidence: 85}
	records := ParseExcel(payload, meta)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].IPAddress != "1.2.3.4" || records[1].IPAddress != "203.0.113.9" {
		t.Errorf("records = %q, %q", records[0].IPAddress, records[1].IPAddress)
	}
	if records[0].Reason != "Phishing" {
		t.Errorf("Reason = %q, want %q", records[0].Reason, "Phishing")
	}
	if records[1].Reason != "추후 보완예정" {
		t.Errorf("dash reason = %q, want placeholder", records[1].Reason)
	}
}

func TestParseExcelKeepsUnmappedColumns(t *testing.T) {
	payload := buildWorkbook(t, [][]interface{}{
		{"IP", "위험도", "사유"},
		{"8.8.4.4", "HIGH", "Botnet"},
	})

	records := ParseExcel(payload, SourceMeta{Name: "SECUDIUM", DefaultReason: "보안위협IP", Confidence: 80})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if got := records[0].RawMetadata["위험도"]; got != "HIGH" {
		t.Errorf("RawMetadata[위험도] = %q, want %q", got, "HIGH")
	}
}

func TestParseExcelRejectsBadPayloads(t *testing.T) {
	meta := SourceMeta{Name: "REGTECH", DefaultReason: "추후 보완예정", Confidence: 85}

	tests := []struct {
		name    string
		payload []byte
	}{
		{"html error page", []byte("<html><body>세션이 만료되었습니다</body></html>")},
		{"empty payload", nil},
		{"truncated zip", []byte{0x50, 0x4b, 0x03, 0x04, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if records := ParseExcel(tt.payload, meta); len(records) != 0 {
				t.Errorf("got %d records, want 0", len(records))
			}
		})
	}
}

func TestParseExcelHeaderOnly(t *testing.T) {
	payload := buildWorkbook(t, [][]interface{}{
		{"IP Address", "국가", "사유"},
	})
	meta := SourceMeta{Name: "REGTECH", DefaultReason: "추후 보완예정", Confidence: 85}
	if records := ParseExcel(payload, meta); len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}
