package service

import (
	"strings"
	"time"
)

type NormalizeKind int

const (
	Normalized NormalizeKind = iota
	PassThrough
)

const (
	clockLayout    = "3:04 PM"
	dailyKeyLayout = "15:04:05"
	shortKeyLayout = "15:04"
)

type NormalizedTime struct {
	Value string
	Kind  NormalizeKind
}

// Normalize turns "h:mm AM/PM" into "HH:MM:SS". Anything else comes back
// untouched as PassThrough so the caller decides whether the key is usable.
func Normalize(raw string) NormalizedTime {
	candidate := strings.ToUpper(strings.TrimSpace(raw))
	parsed, err := time.Parse(clockLayout, candidate)
	if err != nil {
		return NormalizedTime{Value: raw, Kind: PassThrough}
	}
	return NormalizedTime{Value: parsed.Format(dailyKeyLayout), Kind: Normalized}
}

// parseDailyKey accepts the two forms a daily trigger key can take.
func parseDailyKey(key string) (hour, minute, sec int, ok bool) {
	for _, layout := range []string{dailyKeyLayout, shortKeyLayout} {
		t, err := time.Parse(layout, key)
		if err == nil {
			return t.Hour(), t.Minute(), t.Second(), true
		}
	}
	return 0, 0, 0, false
}
