package utils

import (
	"regexp"
	"strconv"
	"strings"
)

// Unit factors in seconds, with English and Spanish spellings.
var unitFactors = map[string]int{
	"s": 1, "sec": 1, "second": 1, "seconds": 1,
	"seg": 1, "segundo": 1, "segundos": 1,

	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"minuto": 60, "minutos": 60,

	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
	"hora": 3600, "horas": 3600,

	"d": 86400, "day": 86400, "days": 86400,
	"dia": 86400, "días": 86400, "dias": 86400,
}

var segmentRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*([a-zA-Záéíóúñ]*)`)

var accentReplacer = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u")

// ParseSeconds parses a human-readable duration ("15m", "1h 30m", "2d3h",
// "90 minutos") into seconds. Bare numbers use defaultUnit, as do segments
// whose unit token is unrecognized. Empty or unparseable input yields 0;
// the function never fails.
func ParseSeconds(value, defaultUnit string) int {
	text := strings.ToLower(strings.TrimSpace(value))
	if text == "" {
		return 0
	}

	defFactor, ok := unitFactors[strings.ToLower(defaultUnit)]
	if !ok {
		defFactor = 60
	}

	total := 0
	for _, m := range segmentRe.FindAllStringSubmatch(text, -1) {
		num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			continue
		}
		unit := strings.TrimRight(m[2], ".")
		factor, ok := unitFactors[unit]
		if !ok {
			factor, ok = unitFactors[accentReplacer.Replace(unit)]
		}
		if !ok {
			factor = defFactor
		}
		total += int(num * float64(factor))
	}
	return total
}

// SecondsFromAny accepts the loosely-typed values that show up in rule
// files: numbers mean defaultUnit, strings go through ParseSeconds,
// anything else is 0.
func SecondsFromAny(v any, defaultUnit string) int {
	factor, ok := unitFactors[strings.ToLower(defaultUnit)]
	if !ok {
		factor = 60
	}
	switch x := v.(type) {
	case nil:
		return 0
	case int:
		return x * factor
	case int64:
		return int(x) * factor
	case float64:
		return int(x * float64(factor))
	case string:
		return ParseSeconds(x, defaultUnit)
	default:
		return 0
	}
}
