package nmea

import "strconv"

// ParseFloat converts a sentence field to float64. Empty fields are common in
// NMEA output and convert to 0 without error.
func ParseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &NumberError{Input: s, Err: err}
	}
	return v, nil
}

// ParseInt converts a sentence field to int64 in the given base. Empty fields
// convert to 0 without error.
func ParseInt(s string, base int) (int64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return 0, &NumberError{Input: s, Err: err}
	}
	return v, nil
}
