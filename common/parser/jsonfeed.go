package parser

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/ipaddr"
	"github.com/seclab-kr/blacklist-collector/common/models"
)

// collectionKeys are the wrapper keys under which the portals nest their
// record arrays. Checked in order; the first present array wins.
var collectionKeys = []string{"data", "list", "rows", "items", "blackList", "result"}

// ParseJSONFeed extracts candidate records from a JSON payload, either a
// bare array of objects or an object wrapping one under a known key. Object
// keys are resolved through the same field alias table as spreadsheet
// headers, so a portal renaming "ip" to "ipAddr" between releases keeps
// parsing. Undecodable payloads yield an empty slice and a warning.
func ParseJSONFeed(payload []byte, meta SourceMeta) []models.CandidateRecord {
	var root interface{}
	if err := json.Unmarshal(payload, &root); err != nil {
		log.Warn().Err(err).Str("source", meta.Name).Msg("Payload is not valid JSON")
		return nil
	}

	rows := jsonRows(root)
	if len(rows) == 0 {
		log.Warn().Str("source", meta.Name).Msg("No record array found in JSON payload")
		return nil
	}

	records := make([]models.CandidateRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		rec, ok := recordFromObject(row, meta)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	log.Info().
		Str("source", meta.Name).
		Int("records", len(records)).
		Int("skipped", skipped).
		Msg("Parsed JSON payload")

	return records
}

// jsonRows digs the record objects out of the decoded payload.
func jsonRows(root interface{}) []map[string]interface{} {
	switch v := root.(type) {
	case []interface{}:
		return objectSlice(v)
	case map[string]interface{}:
		for _, key := range collectionKeys {
			if arr, ok := v[key].([]interface{}); ok {
				if rows := objectSlice(arr); len(rows) > 0 {
					return rows
				}
			}
		}
		// No known wrapper key; a single object may itself be one record.
		return []map[string]interface{}{v}
	default:
		return nil
	}
}

func objectSlice(arr []interface{}) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		if obj, ok := item.(map[string]interface{}); ok {
			rows = append(rows, obj)
		}
	}
	return rows
}

// recordFromObject maps a decoded object to a candidate record. Keys are
// visited in sorted order so that two keys matching the same field resolve
// identically on every run; the first match wins and later duplicates are
// kept as raw metadata.
func recordFromObject(obj map[string]interface{}, meta SourceMeta) (models.CandidateRecord, bool) {
	rec := models.CandidateRecord{
		Source:     meta.Name,
		Confidence: meta.Confidence,
	}
	seen := make(map[FieldKind]bool, 5)

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := obj[key]
		kind, ok := ClassifyKey(key)
		text := strings.TrimSpace(stringify(value))
		if !ok || seen[kind] {
			if text != "" {
				if rec.RawMetadata == nil {
					rec.RawMetadata = make(map[string]string)
				}
				rec.RawMetadata[key] = text
			}
			continue
		}
		seen[kind] = true

		switch kind {
		case FieldIPAddress:
			rec.IPAddress = text
		case FieldCountry:
			rec.Country = text
		case FieldReason:
			rec.Reason = text
		case FieldDetectionDate:
			rec.DetectionDate = ParseDatePtr(text)
		case FieldRemovalDate:
			rec.RemovalDate = ParseDatePtr(text)
		}
	}

	if !ipaddr.IsValidIPv4(rec.IPAddress) {
		return models.CandidateRecord{}, false
	}
	rec.Reason = reasonOrDefault(rec.Reason, meta)
	return rec, true
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
