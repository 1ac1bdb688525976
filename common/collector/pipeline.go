package collector

import (
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/seclab-kr/blacklist-collector/common/ipaddr"
	"github.com/seclab-kr/blacklist-collector/common/models"
)

// PrepareRecords validates, normalizes and deduplicates candidates before
// persistence. Invalid and non-routable addresses are dropped and counted,
// never fatal. Duplicates within a run collapse to the first occurrence, so
// metadata from the earliest endpoint wins regardless of how many fallback
// endpoints re-reported the same address.
func PrepareRecords(records []models.CandidateRecord, source string) ([]models.CandidateRecord, int) {
	kept := make([]models.CandidateRecord, 0, len(records))
	for _, rec := range records {
		normalized, ok := ipaddr.Normalize(rec.IPAddress)
		if !ok {
			log.Debug().Str("source", source).Str("ip", rec.IPAddress).Msg("Dropping invalid address")
			continue
		}
		if ipaddr.IsPrivate(normalized) {
			log.Debug().Str("source", source).Str("ip", normalized).Msg("Dropping non-routable address")
			continue
		}
		rec.IPAddress = normalized
		rec.Source = source
		kept = append(kept, rec)
	}

	unique := lo.UniqBy(kept, func(rec models.CandidateRecord) string {
		return rec.IPAddress
	})

	dropped := len(records) - len(unique)
	if dropped > 0 {
		log.Info().
			Str("source", source).
			Int("candidates", len(records)).
			Int("kept", len(unique)).
			Int("dropped", dropped).
			Msg("Candidate records filtered")
	}
	return unique, dropped
}
