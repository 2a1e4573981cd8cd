// pkg/converter/timestamps.go
package converter

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// timestampLayouts are tried in priority order for non-epoch inputs.
// Zoneless layouts are interpreted as UTC, matching the source API's
// implied zone.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalizer converts heterogeneous source timestamp encodings into
// canonical UTC instants.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Timestamp parses a raw source timestamp into a UTC instant. Supported
// encodings: a string of decimal digits (epoch milliseconds), ISO-8601 with
// or without fractional seconds and zone suffix, and a bare date. Returns
// nil on empty input or total parse failure; never returns an error.
func (n *Normalizer) Timestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if isAllDigits(raw) {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			t := time.UnixMilli(ms).UTC()
			return &t
		}
		// Falls through: a digit run too long for int64 is not a timestamp.
	}

	// Normalize the explicit-UTC offset spelling so one layout covers both.
	candidate := strings.Replace(raw, "+00:00", "Z", 1)

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			t = t.UTC()
			return &t
		}
	}

	if n.logger != nil {
		n.logger.Warn("Could not parse timestamp", zap.String("value", raw))
	}
	return nil
}

// isAllDigits reports whether s consists only of decimal digits.
func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
