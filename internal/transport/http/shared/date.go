package shared

import "time"

const dateOnly = "2006-01-02"

// ParseDate reads a date from a query or body value. Both RFC3339 timestamps
// and plain YYYY-MM-DD dates are accepted; an empty value yields the zero time.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(dateOnly, value)
}
