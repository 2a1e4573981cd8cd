// pkg/converter/values.go
package converter

import "strconv"

// SafeFloat converts a raw property value to a float, returning nil for
// empty or non-numeric input rather than an error.
func SafeFloat(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// SafeInt converts a raw property value to an integer. Values with a
// fractional component are truncated; empty or non-numeric input yields nil.
func SafeInt(raw string) *int64 {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	v := int64(f)
	return &v
}
