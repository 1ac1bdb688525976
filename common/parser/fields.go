package parser

import "strings"

// FieldKind identifies which candidate-record field a payload column or key
// feeds. Korean portals and English feeds label the same columns differently
// across portal revisions, so the mapping is a fixed alias table consulted by
// substring match rather than ad hoc key lookups.
type FieldKind int

const (
	FieldIPAddress FieldKind = iota
	FieldCountry
	FieldReason
	FieldDetectionDate
	FieldRemovalDate
)

func (k FieldKind) String() string {
	switch k {
	case FieldIPAddress:
		return "ip_address"
	case FieldCountry:
		return "country"
	case FieldReason:
		return "reason"
	case FieldDetectionDate:
		return "detection_date"
	case FieldRemovalDate:
		return "removal_date"
	default:
		return "unknown"
	}
}

// fieldAliases holds every header/key substring observed for a field across
// REGTECH and SECUDIUM exports. Matching is case-insensitive.
var fieldAliases = map[FieldKind][]string{
	FieldIPAddress:     {"ip", "addr"},
	FieldCountry:       {"국가", "country"},
	FieldReason:        {"사유", "reason", "이유"},
	FieldDetectionDate: {"탐지", "등록", "detect", "regdt"},
	FieldRemovalDate:   {"해제", "삭제", "remov"},
}

// matchOrder fixes the scan order for non-IP fields so a header matching two
// alias sets resolves the same way on every run.
var matchOrder = []FieldKind{FieldCountry, FieldReason, FieldDetectionDate, FieldRemovalDate}

func matchesField(header string, kind FieldKind) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return false
	}
	for _, alias := range fieldAliases[kind] {
		if strings.Contains(h, alias) {
			return true
		}
	}
	return false
}

// MapColumns resolves a header row to column indexes per field. The IP column
// is located first by the ip/addr substrings and falls back to column 0 when
// no header matches; the remaining fields claim the first unclaimed matching
// column each, in matchOrder.
func MapColumns(headers []string) map[FieldKind]int {
	columns := make(map[FieldKind]int, len(matchOrder)+1)
	claimed := make(map[int]bool, len(headers))

	columns[FieldIPAddress] = 0
	for i, h := range headers {
		if matchesField(h, FieldIPAddress) {
			columns[FieldIPAddress] = i
			break
		}
	}
	claimed[columns[FieldIPAddress]] = true

	for _, kind := range matchOrder {
		for i, h := range headers {
			if claimed[i] {
				continue
			}
			if matchesField(h, kind) {
				columns[kind] = i
				claimed[i] = true
				break
			}
		}
	}

	return columns
}

// ClassifyKey maps a JSON object key to a field. IP wins over the other
// fields when a key matches several alias sets.
func ClassifyKey(key string) (FieldKind, bool) {
	if matchesField(key, FieldIPAddress) {
		return FieldIPAddress, true
	}
	for _, kind := range matchOrder {
		if matchesField(key, kind) {
			return kind, true
		}
	}
	return 0, false
}
