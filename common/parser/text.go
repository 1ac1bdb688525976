package parser

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/ipaddr"
	"github.com/seclab-kr/blacklist-collector/common/models"
)

// feedIPPattern pulls IPv4-looking substrings out of arbitrary feed lines.
// Candidates still pass through full validation afterwards; the pattern only
// locates them inside whatever else the feed puts on the line.
var feedIPPattern = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

// ParseTextFeed extracts candidate records from a plaintext threat feed.
// Comment lines starting with # or ; are skipped; private, loopback,
// multicast and broadcast addresses are dropped because public feeds
// routinely leak internal test entries. Every surviving address gets the
// feed's fixed reason and confidence.
func ParseTextFeed(payload []byte, meta SourceMeta) []models.CandidateRecord {
	var records []models.CandidateRecord
	dropped := 0

	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		for _, token := range feedIPPattern.FindAllString(line, -1) {
			if !ipaddr.IsPublic(token) {
				dropped++
				continue
			}
			records = append(records, models.CandidateRecord{
				IPAddress:  token,
				Source:     meta.Name,
				Reason:     meta.DefaultReason,
				Confidence: meta.Confidence,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Str("source", meta.Name).Msg("Feed payload truncated while scanning")
	}

	log.Info().
		Str("source", meta.Name).
		Int("records", len(records)).
		Int("dropped", dropped).
		Msg("Parsed text feed payload")

	return records
}
