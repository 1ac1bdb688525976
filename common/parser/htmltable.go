package parser

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/ipaddr"
	"github.com/seclab-kr/blacklist-collector/common/models"
)

// ParseHTMLTable extracts candidate records from board-style detail pages.
// The portals render result tables with a fixed column order: IP, country,
// reason, detection date and an optional removal date. Rows with fewer than
// four cells are navigation or separator rows and are skipped silently, as
// are rows whose first cell is not a valid address.
func ParseHTMLTable(payload []byte, meta SourceMeta) []models.CandidateRecord {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		log.Warn().Err(err).Str("source", meta.Name).Msg("Payload is not parseable HTML")
		return nil
	}

	var records []models.CandidateRecord
	skipped := 0

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		ip := strings.TrimSpace(cells.Eq(0).Text())
		if !ipaddr.IsValidIPv4(ip) {
			skipped++
			return
		}

		rec := models.CandidateRecord{
			IPAddress:     ip,
			Source:        meta.Name,
			Country:       strings.TrimSpace(cells.Eq(1).Text()),
			Reason:        reasonOrDefault(cellText(cells.Eq(2)), meta),
			DetectionDate: ParseDatePtr(strings.TrimSpace(cells.Eq(3).Text())),
			Confidence:    meta.Confidence,
		}
		if cells.Length() > 4 {
			rec.RemovalDate = ParseDatePtr(strings.TrimSpace(cells.Eq(4).Text()))
		}

		records = append(records, rec)
	})

	if len(records) == 0 {
		log.Warn().Str("source", meta.Name).Int("skipped", skipped).Msg("No records found in HTML table payload")
	} else {
		log.Info().
			Str("source", meta.Name).
			Int("records", len(records)).
			Int("skipped", skipped).
			Msg("Parsed HTML table payload")
	}

	return records
}

// cellText returns the text of a cell, preferring nested anchor text. Reason
// cells on the detail pages frequently wrap the reason in a link to the
// incident record and the anchor text is the cleaner value.
func cellText(cell *goquery.Selection) string {
	if anchor := cell.Find("a"); anchor.Length() > 0 {
		if text := strings.TrimSpace(anchor.First().Text()); text != "" {
			return text
		}
	}
	return strings.TrimSpace(cell.Text())
}
