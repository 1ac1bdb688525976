package parser

import (
	"testing"
	"time"
)

func TestParseJSONFeedWrappedArray(t *testing.T) {
	payload := []byte(`{
		"resultCode": "SUCCESS",
		"blackList": [
			{"ip": "1.2.3.4", "country": "KR", "reason": "Malware C2", "regDt": "2024-01-15"},
			{"ip": "5.6.7.8", "country": "US", "reason": "", "regDt": "2024/01/16"}
		]
	}`)

	meta := SourceMeta{Name: "SECUDIUM", DefaultReason: "보안위협IP", Confidence: 80}
	records := ParseJSONFeed(payload, meta)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.IPAddress != "1.2.3.4" || first.Country != "KR" || first.Reason != "Malware C2" {
		t.Errorf("first record = %+v", first)
	}
	wantDate := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	if first.DetectionDate == nil || !first.DetectionDate.Equal(wantDate) {
		t.Errorf("DetectionDate = %v, want %v", first.DetectionDate, wantDate)
	}
	if records[1].Reason != "보안위협IP" {
		t.Errorf("empty reason = %q, want placeholder", records[1].Reason)
	}
}

func TestParseJSONFeedBareArray(t *testing.T) {
	payload := []byte(`[{"ipAddr": "203.0.113.9", "detectDate": "20240115"}]`)
	meta := SourceMeta{Name: "SECUDIUM", DefaultReason: "보안위협IP", Confidence: 80}

	records := ParseJSONFeed(payload, meta)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].IPAddress != "203.0.113.9" {
		t.Errorf("IPAddress = %q, want %q", records[0].IPAddress, "203.0.113.9")
	}
	if records[0].DetectionDate == nil {
		t.Error("DetectionDate = nil, want value")
	}
}

func TestParseJSONFeedSkipsInvalidRows(t *testing.T) {
	payload := []byte(`{"data": [
		{"ip": "999.1.1.1", "reason": "bad octet"},
		{"reason": "no ip at all"},
		{"ip": "8.8.4.4", "reason": "Scanner"}
	]}`)

	meta := SourceMeta{Name: "SECUDIUM", DefaultReason: "보안위협IP", Confidence: 80}
	records := ParseJSONFeed(payload, meta)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].IPAddress != "8.8.4.4" {
		t.Errorf("IPAddress = %q, want %q", records[0].IPAddress, "8.8.4.4")
	}
}

func TestParseJSONFeedKeepsExtraKeys(t *testing.T) {
	payload := []byte(`[{"ip": "8.8.4.4", "reason": "Scanner", "riskLevel": "HIGH", "seq": 12}]`)
	meta := SourceMeta{Name: "SECUDIUM", DefaultReason: "보안위협IP", Confidence: 80}

	records := ParseJSONFeed(payload, meta)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if got := records[0].RawMetadata["riskLevel"]; got != "HIGH" {
		t.Errorf("RawMetadata[riskLevel] = %q, want %q", got, "HIGH")
	}
	if got := records[0].RawMetadata["seq"]; got != "12" {
		t.Errorf("RawMetadata[seq] = %q, want %q", got, "12")
	}
}

func TestParseJSONFeedBadPayloads(t *testing.T) {
	meta := SourceMeta{Name: "SECUDIUM", DefaultReason: "보안위협IP", Confidence: 80}

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "<html>login required</html>"},
		{"scalar", `"just a string"`},
		{"empty wrapper", `{"data": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if records := ParseJSONFeed([]byte(tt.payload), meta); len(records) != 0 {
				t.Errorf("got %d records, want 0", len(records))
			}
		})
	}
}
