package parser

import (
	"bytes"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/seclab-kr/blacklist-collector/common/ipaddr"
	"github.com/seclab-kr/blacklist-collector/common/models"
)

// xlsxMagic is the zip local header every real workbook starts with
var xlsxMagic = []byte("PK\x03\x04")

// LooksLikeWorkbook reports whether the payload can be an xlsx archive.
// Portals answer broken sessions with HTML error pages under spreadsheet
// content types, so download paths check the bytes before parsing.
func LooksLikeWorkbook(payload []byte) bool {
	return bytes.HasPrefix(payload, xlsxMagic)
}

// ParseExcel extracts candidate records from an xlsx payload. The first row
// of the first sheet is treated as the header row; the IP column is located
// by header substring and every further column is mapped through the field
// alias table. Rows whose IP cell fails validation are skipped. A payload
// that is not a readable workbook yields an empty slice and a warning, never
// an error: portals occasionally serve an HTML error page with an xlsx
// content type and one bad download must not kill the run.
func ParseExcel(payload []byte, meta SourceMeta) []models.CandidateRecord {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		log.Warn().Err(err).Str("source", meta.Name).Msg("Payload is not a readable workbook")
		return nil
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		log.Warn().Str("source", meta.Name).Msg("Workbook has no sheets")
		return nil
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		log.Warn().Err(err).Str("source", meta.Name).Str("sheet", sheet).Msg("Failed to read sheet rows")
		return nil
	}
	if len(rows) < 2 {
		log.Warn().Str("source", meta.Name).Int("rows", len(rows)).Msg("Workbook has no data rows")
		return nil
	}

	headers := rows[0]
	columns := MapColumns(headers)
	ipCol := columns[FieldIPAddress]

	records := make([]models.CandidateRecord, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		ip := strings.TrimSpace(cell(row, ipCol))
		if !ipaddr.IsValidIPv4(ip) {
			skipped++
			continue
		}

		rec := models.CandidateRecord{
			IPAddress:  ip,
			Source:     meta.Name,
			Confidence: meta.Confidence,
		}
		if col, ok := columns[FieldCountry]; ok {
			rec.Country = strings.TrimSpace(cell(row, col))
		}
		reason := ""
		if col, ok := columns[FieldReason]; ok {
			reason = cell(row, col)
		}
		rec.Reason = reasonOrDefault(reason, meta)
		if col, ok := columns[FieldDetectionDate]; ok {
			rec.DetectionDate = ParseDatePtr(strings.TrimSpace(cell(row, col)))
		}
		if col, ok := columns[FieldRemovalDate]; ok {
			rec.RemovalDate = ParseDatePtr(strings.TrimSpace(cell(row, col)))
		}
		rec.RawMetadata = unmappedCells(headers, row, columns)

		records = append(records, rec)
	}

	log.Info().
		Str("source", meta.Name).
		Int("records", len(records)).
		Int("skipped", skipped).
		Msg("Parsed workbook payload")

	return records
}

// cell returns the row value at index i. GetRows drops trailing empty cells,
// so short rows are routine rather than malformed.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// unmappedCells keeps columns outside the field table so the archive trail
// preserves the full export row.
func unmappedCells(headers, row []string, columns map[FieldKind]int) map[string]string {
	mapped := make(map[int]bool, len(columns))
	for _, idx := range columns {
		mapped[idx] = true
	}

	var extra map[string]string
	for i, h := range headers {
		if mapped[i] {
			continue
		}
		value := strings.TrimSpace(cell(row, i))
		if value == "" {
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		extra[strings.TrimSpace(h)] = value
	}
	return extra
}
